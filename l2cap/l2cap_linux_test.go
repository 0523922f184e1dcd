//go:build linux

package l2cap

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bluepad/bridge"
)

func TestWithAddress(t *testing.T) {
	mac, err := bridge.ParseMAC("11:22:33:AA:BB:CC")
	if err != nil {
		t.Fatal(err)
	}
	sa := &unix.SockaddrL2{CID: CIDATT, AddrType: unix.BDADDR_LE_PUBLIC}
	WithAddress(mac)(sa)

	// Display order: the kernel reverses it on bind.
	want := [6]uint8{0x11, 0x22, 0x33, 0xaa, 0xbb, 0xcc}
	if sa.Addr != want {
		t.Errorf("expected %x but got %x", want, sa.Addr)
	}
	if sa.CID != CIDATT || sa.AddrType != unix.BDADDR_LE_PUBLIC {
		t.Errorf("option changed other fields: %+v", sa)
	}
}

func TestWithRandomAddress(t *testing.T) {
	sa := &unix.SockaddrL2{AddrType: unix.BDADDR_LE_PUBLIC}
	WithRandomAddress()(sa)
	if sa.AddrType != unix.BDADDR_LE_RANDOM {
		t.Errorf("expected random address type but got %d", sa.AddrType)
	}
}
