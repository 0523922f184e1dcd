//go:build linux

package bluez

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

const (
	deviceInterface     = "org.bluez.Device1"
	propertiesInterface = "org.freedesktop.DBus.Properties"
)

// connectionChange is a Connected property change of a device.
type connectionChange struct {
	peer      bridge.MAC
	connected bool
}

// macFromPath extracts the address from a device object path such as
// /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func macFromPath(path dbus.ObjectPath) (bridge.MAC, bool) {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return bridge.MAC{}, false
	}
	mac, err := bridge.ParseMAC(strings.Replace(s[i+len("/dev_"):], "_", ":", -1))
	if err != nil {
		return bridge.MAC{}, false
	}
	return mac, true
}

// parseSignal decodes a PropertiesChanged signal of a device under
// adapterPath.
func parseSignal(sig *dbus.Signal, adapterPath string) (connectionChange, bool) {
	if sig == nil || sig.Name != propertiesInterface+".PropertiesChanged" || len(sig.Body) < 2 {
		return connectionChange{}, false
	}
	if !strings.HasPrefix(string(sig.Path), adapterPath+"/") {
		return connectionChange{}, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceInterface {
		return connectionChange{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return connectionChange{}, false
	}
	v, ok := changed["Connected"]
	if !ok {
		return connectionChange{}, false
	}
	connected, ok := v.Value().(bool)
	if !ok {
		return connectionChange{}, false
	}
	peer, ok := macFromPath(sig.Path)
	if !ok {
		return connectionChange{}, false
	}
	return connectionChange{peer: peer, connected: connected}, true
}

// clientFilter forwards device connection changes to the connection
// handler. Every device under the adapter reports Connected, so only the
// device that connected last may disconnect the client.
type clientFilter struct {
	handler bridge.ConnectionHandler
	log     logrus.FieldLogger
	peer    bridge.MAC
}

func (f *clientFilter) apply(change connectionChange) {
	if change.connected {
		f.peer = change.peer
		f.handler.OnConnect(change.peer, 0)
		return
	}
	if change.peer != f.peer {
		f.log.WithField("peer", change.peer.String()).Debug("bluez: ignoring disconnect of another device")
		return
	}
	f.peer = bridge.MAC{}
	f.handler.OnDisconnect()
}

// poweredOff disconnects the client regardless of which device it was.
func (f *clientFilter) poweredOff() {
	f.peer = bridge.MAC{}
	f.handler.OnDisconnect()
}

// watch starts forwarding device connections and adapter power changes to
// the connection handler. It must be called with r.mu held.
func (r *Registry) watch() error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(err, "bluez: system bus")
	}
	rule := "type='signal',sender='org.bluez',interface='" + propertiesInterface + "',member='PropertiesChanged'"
	if call := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
		return errors.Wrap(call.Err, "bluez: add match")
	}

	propchanged, err := r.adapter.WatchProperties()
	if err != nil {
		return errors.Wrap(err, "bluez: watch adapter")
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.watchDone = make(chan struct{})
	adapterPath := "/org/bluez/" + r.adapterID
	clients := &clientFilter{handler: r.conn, log: r.log}
	log := r.log

	go func() {
		defer close(r.watchDone)
		defer conn.RemoveSignal(signals)
		defer conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)
		for {
			select {
			case sig := <-signals:
				change, ok := parseSignal(sig, adapterPath)
				if !ok {
					continue
				}
				clients.apply(change)
			case changed := <-propchanged:
				// nil after the adapter stops being watched
				if changed == nil {
					propchanged = nil
					continue
				}
				if changed.Name == "Powered" {
					if powered, ok := changed.Value.(bool); ok && !powered {
						log.Warn("bluez: adapter powered off")
						clients.poweredOff()
					}
				}
			case <-ctx.Done():
				if propchanged != nil {
					r.adapter.UnwatchProperties(propchanged)
				}
				return
			}
		}
	}()

	log.WithFields(logrus.Fields{"adapter": r.adapterID}).Debug("bluez: watching connections")
	return nil
}
