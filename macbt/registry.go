//go:build darwin

// Package macbt exposes the bridged characteristic through CoreBluetooth's
// peripheral manager.
//
// Long writes (requests with a non-zero offset) are answered with an
// invalid offset error and never reach the consumer.
package macbt

import (
	"sync"
	"time"

	"github.com/JuulLabs-OSS/cbgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

var (
	errNotPoweredOn  = errors.New("macbt: bluetooth is not powered on")
	errAddTimeout    = errors.New("macbt: timed out adding service")
	errNotRegistered = errors.New("macbt: no characteristic registered")
)

const stateTimeout = 10 * time.Second

// Registry registers the characteristic with a cbgo.PeripheralManager.
type Registry struct {
	log logrus.FieldLogger

	mu  sync.Mutex
	pm  cbgo.PeripheralManager
	pmd *PMDelegate
}

func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{log: log}
}

// RegisterCharacteristic waits for the peripheral manager to power on and
// adds a primary service holding the characteristic. CoreBluetooth does not
// expose attribute handles, so the returned Handle is 0.
func (r *Registry) RegisterCharacteristic(c bridge.Characteristic) (bridge.Handle, error) {
	if c.OnRead == nil || c.OnWrite == nil || c.Conn == nil {
		return 0, errors.New("macbt: characteristic is missing a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pmd != nil {
		return 0, bridge.ErrAlreadyRegistered
	}

	svcUUID, err := cbgo.ParseUUID(c.Service.String())
	if err != nil {
		return 0, errors.Wrap(err, "macbt: service uuid")
	}
	chrUUID, err := cbgo.ParseUUID(c.UUID.String())
	if err != nil {
		return 0, errors.Wrap(err, "macbt: characteristic uuid")
	}

	pmd := newPMDelegate(c, r.log)
	pm := cbgo.NewPeripheralManager(nil)
	pm.SetDelegate(pmd)

	select {
	case <-pmd.ready:
	case <-time.After(stateTimeout):
		return 0, errNotPoweredOn
	}

	props, perms := properties(c.Permissions)
	chr := cbgo.NewMutableCharacteristic(chrUUID, props, nil, perms)
	svc := cbgo.NewMutableService(svcUUID, true)
	svc.SetCharacteristics([]cbgo.MutableCharacteristic{chr})
	pm.AddService(svc)

	select {
	case err := <-pmd.added:
		if err != nil {
			return 0, errors.Wrap(err, "macbt: add service")
		}
	case <-time.After(stateTimeout):
		return 0, errAddTimeout
	}

	r.pm = pm
	r.pmd = pmd
	return 0, nil
}

// Advertise starts advertising the local name and the service UUID.
func (r *Registry) Advertise(name string, svc bridge.UUID) error {
	u, err := cbgo.ParseUUID(svc.String())
	if err != nil {
		return errors.Wrap(err, "macbt: service uuid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pmd == nil {
		return errNotRegistered
	}
	r.pm.StartAdvertising(cbgo.AdvData{
		LocalName:    name,
		ServiceUUIDs: []cbgo.UUID{u},
	})
	r.log.WithFields(logrus.Fields{
		"name":    name,
		"service": svc.String(),
	}).Info("advertising")
	return nil
}

// Close stops advertising and removes the service.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pmd == nil {
		return nil
	}
	r.pm.StopAdvertising()
	r.pm.RemoveAllServices()
	r.pmd = nil
	return nil
}

func properties(p bridge.CharacteristicPermissions) (cbgo.CharacteristicProperties, cbgo.AttributePermissions) {
	var props cbgo.CharacteristicProperties
	var perms cbgo.AttributePermissions
	if p.Broadcast() {
		props |= cbgo.CharacteristicPropertyBroadcast
	}
	if p.Read() {
		props |= cbgo.CharacteristicPropertyRead
		perms |= cbgo.AttributePermissionsReadable
	}
	if p.WriteWithoutResponse() {
		props |= cbgo.CharacteristicPropertyWriteWithoutResponse
		perms |= cbgo.AttributePermissionsWriteable
	}
	if p.Write() {
		props |= cbgo.CharacteristicPropertyWrite
		perms |= cbgo.AttributePermissionsWriteable
	}
	if p.Notify() {
		props |= cbgo.CharacteristicPropertyNotify
	}
	if p.Indicate() {
		props |= cbgo.CharacteristicPropertyIndicate
	}
	return props, perms
}
