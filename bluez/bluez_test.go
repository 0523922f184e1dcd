//go:build linux

package bluez

import (
	"io/ioutil"
	"reflect"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

func TestMACFromPath(t *testing.T) {
	tests := []struct {
		path dbus.ObjectPath
		mac  string
		ok   bool
	}{
		{"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", "AA:BB:CC:DD:EE:FF", true},
		{"/org/bluez/hci1/dev_11_22_33_44_55_66", "11:22:33:44:55:66", true},
		{"/org/bluez/hci0", "", false},
		{"/org/bluez/hci0/dev_AA_BB", "", false},
	}
	for _, tc := range tests {
		mac, ok := macFromPath(tc.path)
		if ok != tc.ok {
			t.Errorf("%s: expected ok=%v", tc.path, tc.ok)
			continue
		}
		if ok && mac.String() != tc.mac {
			t.Errorf("%s: expected %s but got %s", tc.path, tc.mac, mac)
		}
	}
}

func TestParseSignal(t *testing.T) {
	const name = propertiesInterface + ".PropertiesChanged"
	connected := map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}
	disconnected := map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)}
	rssi := map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-40))}

	tests := []struct {
		name string
		sig  *dbus.Signal
		ok   bool
		conn bool
	}{
		{"connected", &dbus.Signal{Path: "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", Name: name, Body: []interface{}{deviceInterface, connected, []string{}}}, true, true},
		{"disconnected", &dbus.Signal{Path: "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", Name: name, Body: []interface{}{deviceInterface, disconnected, []string{}}}, true, false},
		{"other property", &dbus.Signal{Path: "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", Name: name, Body: []interface{}{deviceInterface, rssi, []string{}}}, false, false},
		{"other adapter", &dbus.Signal{Path: "/org/bluez/hci1/dev_AA_BB_CC_DD_EE_FF", Name: name, Body: []interface{}{deviceInterface, connected, []string{}}}, false, false},
		{"adapter interface", &dbus.Signal{Path: "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", Name: name, Body: []interface{}{"org.bluez.Adapter1", connected, []string{}}}, false, false},
		{"other signal", &dbus.Signal{Path: "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", Name: "org.freedesktop.DBus.ObjectManager.InterfacesAdded"}, false, false},
		{"nil", nil, false, false},
	}
	for _, tc := range tests {
		change, ok := parseSignal(tc.sig, "/org/bluez/hci0")
		if ok != tc.ok {
			t.Errorf("%s: expected ok=%v", tc.name, tc.ok)
			continue
		}
		if ok && change.connected != tc.conn {
			t.Errorf("%s: expected connected=%v", tc.name, tc.conn)
		}
		if ok && change.peer.String() != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("%s: unexpected peer %s", tc.name, change.peer)
		}
	}
}

func TestSplitUUID(t *testing.T) {
	base, short, suffix := splitUUID(bridge.DefaultServiceUUID)
	if base != "4FAF" || short != "C201" || suffix != "-1FB5-459E-8FCC-C5C9C331914B" {
		t.Errorf("unexpected split %q %q %q", base, short, suffix)
	}
}

func TestFlags(t *testing.T) {
	got := flags(bridge.DefaultPermissions)
	want := []string{"read", "write-without-response", "write"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v but got %v", want, got)
	}
}

func TestHandlerRead(t *testing.T) {
	log := logrus.New()
	log.Out = ioutil.Discard
	conn := bridge.NewConnectionTracker(log)
	d := bridge.NewDispatcher(bridge.StaticValue("abcdefghijklmnopqrstuvwxyz0123"), bridge.ConsumerFunc(func([]byte) {}), conn, bridge.TruncateBytes, log)
	h := &handler{
		c: bridge.Characteristic{
			OnRead:  d.HandleRead,
			OnWrite: d.HandleWrite,
			Conn:    conn,
		},
		log: log,
	}

	conn.OnConnect(bridge.MAC{1}, 0)
	v, err := h.read(nil, map[string]interface{}{})
	if err != nil || string(v) != "abcdefghijklmnopqrstuv" {
		t.Errorf("unexpected read %q (%v)", v, err)
	}

	v, err = h.read(nil, map[string]interface{}{
		"mtu":    dbus.MakeVariant(uint16(100)),
		"offset": dbus.MakeVariant(uint16(26)),
	})
	if err != nil || string(v) != "0123" {
		t.Errorf("unexpected read %q (%v)", v, err)
	}
	if u := conn.CurrentUnitSize(); u != 100 {
		t.Errorf("expected unit size 100 but got %d", u)
	}

	if _, err := h.read(nil, map[string]interface{}{"offset": uint16(40)}); err != errInvalidOffset {
		t.Errorf("expected errInvalidOffset but got %v", err)
	}
}

func TestHandlerWrite(t *testing.T) {
	var got []byte
	h := &handler{
		c: bridge.Characteristic{
			OnWrite: func(buf []byte, length int) { got = append([]byte{}, buf[:length]...) },
		},
	}
	if _, err := h.write(nil, []byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("unexpected write %v", got)
	}
}

func TestOtherDeviceDisconnect(t *testing.T) {
	log := logrus.New()
	log.Out = ioutil.Discard
	conn := bridge.NewConnectionTracker(log)
	value := "abcdefghijklmnopqrstuvwxyz0123456789abcdefghijklmnopqrstuvwx"
	d := bridge.NewDispatcher(bridge.StaticValue(value), bridge.ConsumerFunc(func([]byte) {}), conn, bridge.TruncateBytes, log)
	h := &handler{
		c:   bridge.Characteristic{OnRead: d.HandleRead, OnWrite: d.HandleWrite, Conn: conn},
		log: log,
	}
	clients := &clientFilter{handler: conn, log: log}

	deliver := func(path dbus.ObjectPath, connected bool) {
		sig := &dbus.Signal{
			Path: path,
			Name: propertiesInterface + ".PropertiesChanged",
			Body: []interface{}{deviceInterface, map[string]dbus.Variant{"Connected": dbus.MakeVariant(connected)}, []string{}},
		}
		change, ok := parseSignal(sig, "/org/bluez/hci0")
		if !ok {
			t.Fatalf("%s: signal not parsed", path)
		}
		clients.apply(change)
	}

	deliver("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", true)
	deliver("/org/bluez/hci0/dev_11_22_33_44_55_66", false)
	if st := conn.State(); !st.Connected || st.Peer.String() != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("another device reset the client: %+v", st)
	}

	v, err := h.read(nil, map[string]interface{}{"mtu": dbus.MakeVariant(uint16(185))})
	if err != nil || len(v) != len(value) {
		t.Errorf("expected %d bytes but got %d (%v)", len(value), len(v), err)
	}

	deliver("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", false)
	if conn.Connected() {
		t.Error("client disconnect ignored")
	}
}

func TestReadReportsMissedConnection(t *testing.T) {
	log := logrus.New()
	log.Out = ioutil.Discard
	conn := bridge.NewConnectionTracker(log)
	d := bridge.NewDispatcher(bridge.StaticValue(string(make([]byte, 60))), bridge.ConsumerFunc(func([]byte) {}), conn, bridge.TruncateBytes, log)
	h := &handler{
		c:   bridge.Characteristic{OnRead: d.HandleRead, OnWrite: d.HandleWrite, Conn: conn},
		log: log,
	}

	v, err := h.read(nil, map[string]interface{}{"mtu": dbus.MakeVariant(uint16(185))})
	if err != nil || len(v) != 60 {
		t.Errorf("expected 60 bytes but got %d (%v)", len(v), err)
	}
	if st := conn.State(); !st.Connected || st.UnitSize != 185 {
		t.Errorf("unexpected state %+v", st)
	}
}
