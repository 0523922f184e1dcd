//go:build linux

// Package bluez exposes the bridged characteristic through BlueZ, the Linux
// Bluetooth daemon, over D-Bus.
//
// Some documentation for the BlueZ D-Bus interface:
// https://git.kernel.org/pub/scm/bluetooth/bluez.git/tree/doc
package bluez

import (
	"context"
	"strings"
	"sync"

	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/api/service"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/advertising"
	"github.com/muka/go-bluetooth/bluez/profile/gatt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

// DefaultAdapterID is the adapter used when none is configured.
const DefaultAdapterID = "hci0"

// Registry registers the characteristic as a BlueZ GATT application.
type Registry struct {
	adapterID string
	log       logrus.FieldLogger

	mu        sync.Mutex
	adapter   *adapter.Adapter1
	app       *service.App
	conn      bridge.ConnectionHandler
	stopAdv   func()
	cancel    context.CancelFunc
	watchDone chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithAdapter selects the adapter, for example "hci1".
func WithAdapter(id string) Option {
	return func(r *Registry) {
		r.adapterID = id
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry looks up the adapter and powers it on if needed.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	if r.adapterID == "" {
		r.adapter, err = api.GetDefaultAdapter()
		if err != nil {
			return nil, errors.Wrap(err, "bluez: default adapter")
		}
		r.adapterID, err = r.adapter.GetAdapterID()
		if err != nil {
			return nil, errors.Wrap(err, "bluez: adapter id")
		}
	} else {
		r.adapter, err = adapter.NewAdapter1FromAdapterID(r.adapterID)
		if err != nil {
			return nil, errors.Wrapf(err, "bluez: adapter %s", r.adapterID)
		}
	}

	powered, err := r.adapter.GetPowered()
	if err != nil {
		return nil, errors.Wrap(err, "bluez: powered")
	}
	if !powered {
		r.log.WithField("adapter", r.adapterID).Info("powering on adapter")
		if err := r.adapter.SetPowered(true); err != nil {
			return nil, errors.Wrap(err, "bluez: power on")
		}
	}
	return r, nil
}

// AdapterID returns the adapter in use, for example "hci0".
func (r *Registry) AdapterID() string {
	return r.adapterID
}

// RegisterCharacteristic exports a GATT application with one service and one
// characteristic, and starts watching for centrals connecting to it. BlueZ
// does not expose attribute handles, so the returned Handle is 0.
func (r *Registry) RegisterCharacteristic(c bridge.Characteristic) (bridge.Handle, error) {
	if c.OnRead == nil || c.OnWrite == nil || c.Conn == nil {
		return 0, errors.New("bluez: characteristic is missing a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app != nil {
		return 0, bridge.ErrAlreadyRegistered
	}

	base, short, suffix := splitUUID(c.Service)
	app, err := service.NewApp(service.AppOptions{
		AdapterID:  r.adapterID,
		UUID:       base,
		UUIDSuffix: suffix,
	})
	if err != nil {
		return 0, errors.Wrap(err, "bluez: new app")
	}

	svc, err := app.NewService(short)
	if err != nil {
		app.Close()
		return 0, errors.Wrap(err, "bluez: new service")
	}
	svc.Properties.UUID = c.Service.String()

	chr, err := svc.NewChar(short)
	if err != nil {
		app.Close()
		return 0, errors.Wrap(err, "bluez: new characteristic")
	}
	chr.Properties.UUID = c.UUID.String()
	chr.Properties.Flags = flags(c.Permissions)

	h := &handler{c: c, log: r.log}
	chr.OnRead(service.CharReadCallback(h.read))
	chr.OnWrite(service.CharWriteCallback(h.write))

	if err := svc.AddChar(chr); err != nil {
		app.Close()
		return 0, errors.Wrap(err, "bluez: add characteristic")
	}
	if err := app.AddService(svc); err != nil {
		app.Close()
		return 0, errors.Wrap(err, "bluez: add service")
	}
	if err := app.Run(); err != nil {
		app.Close()
		return 0, errors.Wrap(err, "bluez: register application")
	}

	r.app = app
	r.conn = c.Conn
	if err := r.watch(); err != nil {
		r.log.WithError(err).Warn("bluez: connection events unavailable")
	}
	return 0, nil
}

// Advertise exposes an LE advertisement with the local name and the service
// UUID. It stays up until Close.
func (r *Registry) Advertise(name string, svc bridge.UUID) error {
	props := &advertising.LEAdvertisement1Properties{
		Type:         advertising.AdvertisementTypePeripheral,
		LocalName:    name,
		ServiceUUIDs: []string{svc.String()},
		Timeout:      1<<16 - 1,
	}
	stop, err := api.ExposeAdvertisement(r.adapterID, props, uint32(props.Timeout))
	if err != nil {
		return errors.Wrap(err, "bluez: advertise")
	}

	r.mu.Lock()
	if r.stopAdv != nil {
		r.stopAdv()
	}
	r.stopAdv = stop
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"name":    name,
		"service": svc.String(),
	}).Info("advertising")
	return nil
}

// Close stops advertising, unregisters the application and stops watching
// connection events.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		<-r.watchDone
		r.cancel = nil
	}
	if r.stopAdv != nil {
		r.stopAdv()
		r.stopAdv = nil
	}
	if r.app != nil {
		r.app.Close()
		r.app = nil
	}
	return nil
}

// splitUUID cuts u the way service.App builds UUIDs: a 4 character base, a 4
// character short id and the remaining suffix starting with '-'.
func splitUUID(u bridge.UUID) (base, short, suffix string) {
	s := strings.ToUpper(u.String())
	return s[:4], s[4:8], s[8:]
}

func flags(p bridge.CharacteristicPermissions) []string {
	var f []string
	if p.Broadcast() {
		f = append(f, gatt.FlagCharacteristicBroadcast)
	}
	if p.Read() {
		f = append(f, gatt.FlagCharacteristicRead)
	}
	if p.WriteWithoutResponse() {
		f = append(f, gatt.FlagCharacteristicWriteWithoutResponse)
	}
	if p.Write() {
		f = append(f, gatt.FlagCharacteristicWrite)
	}
	if p.Notify() {
		f = append(f, gatt.FlagCharacteristicNotify)
	}
	if p.Indicate() {
		f = append(f, gatt.FlagCharacteristicIndicate)
	}
	return f
}
