package bridge

import "strings"

// CharacteristicPermissions lists a number of basic permissions/capabilities
// that clients have regarding this characteristic. For example, if you want to
// allow clients to read the value of this characteristic (a common scenario),
// set the Read permission.
//
// The bit layout matches the characteristic properties byte of a
// characteristic declaration, so it can be put on the wire unchanged.
type CharacteristicPermissions uint8

// Characteristic permission bits.
const (
	CharacteristicBroadcastPermission CharacteristicPermissions = 1 << iota
	CharacteristicReadPermission
	CharacteristicWriteWithoutResponsePermission
	CharacteristicWritePermission
	CharacteristicNotifyPermission
	CharacteristicIndicatePermission
)

// DefaultPermissions is what a web client expects from the bridged
// characteristic: readable, and writable both with and without response.
const DefaultPermissions = CharacteristicReadPermission |
	CharacteristicWritePermission |
	CharacteristicWriteWithoutResponsePermission

var permissionNames = []struct {
	perm CharacteristicPermissions
	name string
}{
	{CharacteristicBroadcastPermission, "broadcast"},
	{CharacteristicReadPermission, "read"},
	{CharacteristicWriteWithoutResponsePermission, "writenr"},
	{CharacteristicWritePermission, "write"},
	{CharacteristicNotifyPermission, "notify"},
	{CharacteristicIndicatePermission, "indicate"},
}

// Broadcast returns whether broadcasting of the value is permitted.
func (p CharacteristicPermissions) Broadcast() bool {
	return p&CharacteristicBroadcastPermission != 0
}

// Read returns whether reading of the value is permitted.
func (p CharacteristicPermissions) Read() bool {
	return p&CharacteristicReadPermission != 0
}

// Write returns whether writing of the value with Write Request is permitted.
func (p CharacteristicPermissions) Write() bool {
	return p&CharacteristicWritePermission != 0
}

// WriteWithoutResponse returns whether writing of the value with Write Command
// is permitted.
func (p CharacteristicPermissions) WriteWithoutResponse() bool {
	return p&CharacteristicWriteWithoutResponsePermission != 0
}

// Notify returns whether notifications are permitted.
func (p CharacteristicPermissions) Notify() bool {
	return p&CharacteristicNotifyPermission != 0
}

// Indicate returns whether indications are permitted.
func (p CharacteristicPermissions) Indicate() bool {
	return p&CharacteristicIndicatePermission != 0
}

// String returns the permission names joined by '|', for example
// "read|write".
func (p CharacteristicPermissions) String() string {
	var names []string
	for _, pn := range permissionNames {
		if p&pn.perm != 0 {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, "|")
}

// ParsePermissions parses the format produced by String.
func ParsePermissions(s string) (CharacteristicPermissions, error) {
	var p CharacteristicPermissions
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, pn := range permissionNames {
			if strings.EqualFold(strings.TrimSpace(part), pn.name) {
				p |= pn.perm
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidPermissions
		}
	}
	return p, nil
}
