package att

import (
	"encoding/binary"

	"github.com/bluepad/bridge"
)

type attributeType int

const (
	attributeTypeService attributeType = iota
	attributeTypeCharacteristic
	attributeTypeCharacteristicValue
)

// attribute is a single row of the attribute table.
type attribute struct {
	typ    attributeType
	handle uint16
	uuid   bridge.UUID // attribute type

	// endHandle is the last handle of the group a service declaration
	// starts.
	endHandle uint16

	permissions bridge.CharacteristicPermissions

	// value is the static value of a declaration. Characteristic values
	// are produced by read instead.
	value []byte
	read  func() []byte
	write func(buf []byte, length int)
}

func (a *attribute) readable() bool {
	return a.typ != attributeTypeCharacteristicValue || a.permissions.Read()
}

// readValue returns the attribute value. It may call into the application.
func (a *attribute) readValue() []byte {
	if a.read != nil {
		return a.read()
	}
	return a.value
}

// db is the attribute table, ordered by handle.
type db struct {
	attrs      []attribute
	lastHandle uint16
}

func (d *db) add(a attribute) uint16 {
	d.lastHandle++
	a.handle = d.lastHandle
	d.attrs = append(d.attrs, a)
	return a.handle
}

// addService adds a primary service declaration and returns its index so
// the end handle can be patched once the characteristics are known.
func (d *db) addService(uuid bridge.UUID) int {
	d.add(attribute{
		typ:   attributeTypeService,
		uuid:  bridge.New16BitUUID(uuidPrimaryService),
		value: uuid.AppendWire(nil),
	})
	return len(d.attrs) - 1
}

func (d *db) endService(idx int) {
	d.attrs[idx].endHandle = d.lastHandle
}

// addCharacteristic adds the characteristic declaration and the value
// attribute, and returns the value handle.
func (d *db) addCharacteristic(uuid bridge.UUID, perm bridge.CharacteristicPermissions, read func() []byte, write func([]byte, int)) uint16 {
	declHandle := d.lastHandle + 1
	valueHandle := declHandle + 1

	decl := make([]byte, 3, 3+16)
	decl[0] = byte(perm)
	binary.LittleEndian.PutUint16(decl[1:], valueHandle)
	decl = uuid.AppendWire(decl)

	d.add(attribute{
		typ:   attributeTypeCharacteristic,
		uuid:  bridge.New16BitUUID(uuidCharacteristic),
		value: decl,
	})
	return d.add(attribute{
		typ:         attributeTypeCharacteristicValue,
		uuid:        uuid,
		permissions: perm,
		read:        read,
		write:       write,
	})
}

func (d *db) find(handle uint16) *attribute {
	for i := range d.attrs {
		if d.attrs[i].handle == handle {
			return &d.attrs[i]
		}
	}
	return nil
}

// inRange returns the attributes with start <= handle <= end.
func (d *db) inRange(start, end uint16) []attribute {
	var out []attribute
	for _, a := range d.attrs {
		if a.handle >= start && a.handle <= end {
			out = append(out, a)
		}
	}
	return out
}
