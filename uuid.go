package bridge

// This file implements 16-bit and 128-bit UUIDs as defined in the Bluetooth
// specification.

import (
	"strconv"

	"github.com/google/uuid"
)

// UUID is a single UUID as used in the Bluetooth stack. It is stored in the
// canonical (big endian) byte order, the way it is printed.
type UUID [16]byte

// baseUUID is the Bluetooth base UUID, 00000000-0000-1000-8000-00805F9B34FB.
var baseUUID = UUID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb}

// New16BitUUID returns a new 128-bit UUID based on a 16-bit UUID.
//
// Note: only use registered UUIDs. See
// https://www.bluetooth.com/specifications/gatt/services/ for a list.
func New16BitUUID(shortUUID uint16) UUID {
	u := baseUUID
	u[2] = byte(shortUUID >> 8)
	u[3] = byte(shortUUID)
	return u
}

// NewUUID returns a new UUID from the given bytes, in canonical order.
func NewUUID(b [16]byte) UUID {
	return UUID(b)
}

// ParseUUID parses a UUID in the 00001234-0000-1000-8000-00805f9b34fb form,
// or a 16-bit UUID written as four hex digits (for example 2a37).
func ParseUUID(s string) (UUID, error) {
	switch len(s) {
	case 4:
		n, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return UUID{}, ErrInvalidUUID
		}
		return New16BitUUID(uint16(n)), nil
	case 36:
		u, err := uuid.Parse(s)
		if err != nil {
			return UUID{}, ErrInvalidUUID
		}
		return UUID(u), nil
	default:
		return UUID{}, ErrInvalidUUID
	}
}

// MustParseUUID is like ParseUUID but panics when s cannot be parsed. It is
// meant for package level UUID constants.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic("bridge: invalid UUID " + strconv.Quote(s))
	}
	return u
}

// Is16Bit returns whether this UUID is a 16-bit BLE UUID.
func (u UUID) Is16Bit() bool {
	return u.Is32Bit() && u[0] == 0 && u[1] == 0
}

// Is32Bit returns whether this UUID is a 32-bit BLE UUID.
func (u UUID) Is32Bit() bool {
	for i := 4; i < len(u); i++ {
		if u[i] != baseUUID[i] {
			return false
		}
	}
	return true
}

// Get16Bit returns the 16-bit part of a UUID derived from the base UUID. The
// result is meaningless unless Is16Bit returns true.
func (u UUID) Get16Bit() uint16 {
	return uint16(u[2])<<8 | uint16(u[3])
}

// Bytes returns the UUID in little endian order, as it goes over the air.
func (u UUID) Bytes() [16]byte {
	var b [16]byte
	for i := range u {
		b[i] = u[len(u)-1-i]
	}
	return b
}

// AppendWire appends the shortest over-the-air form of u to buf: two bytes
// for a 16-bit UUID, sixteen otherwise.
func (u UUID) AppendWire(buf []byte) []byte {
	if u.Is16Bit() {
		v := u.Get16Bit()
		return append(buf, byte(v), byte(v>>8))
	}
	b := u.Bytes()
	return append(buf, b[:]...)
}

// UUIDFromWire decodes a 2 or 16 byte little endian UUID.
func UUIDFromWire(b []byte) (UUID, error) {
	switch len(b) {
	case 2:
		return New16BitUUID(uint16(b[0]) | uint16(b[1])<<8), nil
	case 16:
		var u UUID
		for i := range u {
			u[i] = b[len(b)-1-i]
		}
		return u, nil
	default:
		return UUID{}, ErrInvalidUUID
	}
}

// String returns a human-readable version of this UUID, such as
// 00001234-0000-1000-8000-00805f9b34fb.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}
