//go:build linux

package bluez

import (
	"github.com/muka/go-bluetooth/api/service"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/bluepad/bridge"
)

var errInvalidOffset = errors.New("bluez: invalid offset")

// handler adapts the BlueZ method calls to the characteristic thunks.
type handler struct {
	c   bridge.Characteristic
	log logrus.FieldLogger
}

// option returns a numeric ReadValue/WriteValue option. BlueZ sends them as
// D-Bus variants of uint16.
func option(options map[string]interface{}, key string) (uint16, bool) {
	v, ok := options[key]
	if !ok {
		return 0, false
	}
	if variant, ok := v.(interface{ Value() interface{} }); ok {
		v = variant.Value()
	}
	n, err := cast.ToUint16E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (h *handler) read(c *service.Char, options map[string]interface{}) ([]byte, error) {
	if mtu, ok := option(options, "mtu"); ok {
		if h.c.Conn.Connected() {
			h.c.Conn.Negotiate(mtu)
		} else {
			// A read proves a client is there even when its Connected
			// signal was missed.
			h.c.Conn.OnConnect(bridge.MAC{}, mtu)
		}
	}
	value := h.c.OnRead()

	offset, _ := option(options, "offset")
	if int(offset) > len(value) {
		return nil, errInvalidOffset
	}
	h.log.WithFields(logrus.Fields{
		"offset": offset,
		"len":    len(value),
	}).Debug("bluez: read")
	return value[offset:], nil
}

func (h *handler) write(c *service.Char, value []byte) ([]byte, error) {
	h.c.OnWrite(value, len(value))
	return value, nil
}
