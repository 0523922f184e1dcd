package bridge

// ValueProducer returns the current value of the characteristic. It is called
// once for every read, from the goroutine of the BLE stack, and must return
// promptly: GATT transactions time out.
type ValueProducer interface {
	Value() string
}

// ValueConsumer receives the bytes written by a client. The slice is only
// valid for the duration of the call; copy it to keep it.
type ValueConsumer interface {
	Consume(p []byte)
}

// ProducerFunc is an adapter to allow the use of ordinary functions as a
// ValueProducer.
type ProducerFunc func() string

// Value calls f().
func (f ProducerFunc) Value() string {
	return f()
}

// ConsumerFunc is an adapter to allow the use of ordinary functions as a
// ValueConsumer.
type ConsumerFunc func(p []byte)

// Consume calls f(p).
func (f ConsumerFunc) Consume(p []byte) {
	f(p)
}

// StaticValue is a ValueProducer that always returns the same text.
type StaticValue string

func (v StaticValue) Value() string {
	return string(v)
}
