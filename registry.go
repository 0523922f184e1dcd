package bridge

// Handle is the attribute handle a stack assigned to a characteristic value.
// Stacks that do not expose handles return 0.
type Handle uint16

// Characteristic is everything a Registry needs to expose the bridged
// characteristic.
type Characteristic struct {
	Service     UUID
	UUID        UUID
	Permissions CharacteristicPermissions

	// OnRead returns the bytes to put in a read response. It never returns
	// more than the current unit size minus one.
	OnRead func() []byte

	// OnWrite is called with the received buffer and the number of valid
	// bytes in it.
	OnWrite func(buf []byte, length int)

	// Conn must be fed with connect, disconnect and MTU events.
	Conn ConnectionHandler
}

// Registry registers a characteristic with a platform BLE stack and forwards
// its attribute events to the thunks in Characteristic.
type Registry interface {
	RegisterCharacteristic(c Characteristic) (Handle, error)
}

// RegistryFunc is an adapter to allow the use of ordinary functions as a
// Registry.
type RegistryFunc func(c Characteristic) (Handle, error)

// RegisterCharacteristic calls f(c).
func (f RegistryFunc) RegisterCharacteristic(c Characteristic) (Handle, error) {
	return f(c)
}
