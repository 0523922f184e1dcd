package bridge

import (
	"encoding/hex"

	"github.com/sirupsen/logrus"
)

// Dispatcher routes attribute events from a BLE stack to the application.
// Both handlers run synchronously on the caller's goroutine and call the
// application exactly once. Panics in application code are not recovered.
type Dispatcher struct {
	producer ValueProducer
	consumer ValueConsumer
	conn     *ConnectionTracker
	trunc    Truncation
	log      logrus.FieldLogger
}

// NewDispatcher returns a Dispatcher that bounds reads by the unit size of
// conn.
func NewDispatcher(p ValueProducer, c ValueConsumer, conn *ConnectionTracker, trunc Truncation, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		producer: p,
		consumer: c,
		conn:     conn,
		trunc:    trunc,
		log:      log,
	}
}

// HandleRead returns the current value, cut to fit in a single read response
// (CurrentUnitSize()-1 bytes). The caller owns the returned slice.
func (d *Dispatcher) HandleRead() []byte {
	value := []byte(d.producer.Value())
	limit := d.conn.CurrentUnitSize() - 1
	out := d.trunc.apply(value, limit)
	if len(out) != len(value) {
		d.log.WithFields(logrus.Fields{
			"len":   len(value),
			"limit": limit,
			"sent":  len(out),
		}).Debug("read value truncated")
	}
	return out
}

// HandleWrite passes the first length bytes of buf to the consumer. A
// length outside the buffer is clamped to it. buf must not be retained by
// the consumer after it returns.
func (d *Dispatcher) HandleWrite(buf []byte, length int) {
	if length < 0 {
		length = 0
	}
	if length > len(buf) {
		d.log.WithFields(logrus.Fields{
			"length": length,
			"buf":    len(buf),
		}).Debug("write length exceeds buffer")
		length = len(buf)
	}
	p := buf[:length:length]
	if DebugEnabled(d.log) {
		d.log.WithField("data", hex.EncodeToString(p)).Debug("write")
	}
	d.consumer.Consume(p)
}
