// Package bridge connects the attribute read and write events of a single BLE
// GATT characteristic to application code.
//
// A platform stack (an ATT server on a Linux L2CAP socket, BlueZ over D-Bus,
// or CoreBluetooth on macOS) registers the characteristic through a Registry
// and forwards every read and write to a Dispatcher. The Dispatcher asks a
// ValueProducer for the current value on reads, bounded by the negotiated
// ATT MTU, and hands written bytes to a ValueConsumer.
//
//	b, err := bridge.Setup(bridge.Config{
//		Producer: bridge.ProducerFunc(func() string { return status }),
//		Consumer: bridge.ConsumerFunc(func(p []byte) { handle(p) }),
//	}, registry)
package bridge // import "github.com/bluepad/bridge"
