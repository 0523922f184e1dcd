package bridge

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultUnitSize is the ATT MTU every LE link starts with.
	DefaultUnitSize = 23

	// MaxUnitSize is the largest ATT MTU: a 512 byte attribute value plus
	// the opcode, handle and offset of a Read Blob response.
	MaxUnitSize = 517
)

// ConnectionHandler receives the connection events of a platform stack.
type ConnectionHandler interface {
	OnConnect(peer MAC, mtu uint16)
	OnDisconnect()
	Negotiate(mtu uint16)
	Connected() bool
}

// ConnectionState is a snapshot of a ConnectionTracker.
type ConnectionState struct {
	Connected bool
	Peer      MAC
	UnitSize  int
}

// ConnectionTracker records whether a client is connected and the transmission
// unit negotiated with it. Stacks deliver connection events on a different
// goroutine than reads and writes, so all fields are guarded.
type ConnectionTracker struct {
	log logrus.FieldLogger

	mu        sync.RWMutex
	connected bool
	peer      MAC
	unit      int
}

// NewConnectionTracker returns a disconnected tracker. A nil log means the
// standard logrus logger.
func NewConnectionTracker(log logrus.FieldLogger) *ConnectionTracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConnectionTracker{
		log:  log,
		unit: DefaultUnitSize,
	}
}

func clampUnit(mtu uint16) int {
	switch {
	case mtu < DefaultUnitSize:
		return DefaultUnitSize
	case mtu > MaxUnitSize:
		return MaxUnitSize
	}
	return int(mtu)
}

// OnConnect marks the tracker connected to peer. An mtu of 0 means the stack
// has not negotiated one yet.
func (t *ConnectionTracker) OnConnect(peer MAC, mtu uint16) {
	unit := clampUnit(mtu)
	t.mu.Lock()
	t.connected = true
	t.peer = peer
	t.unit = unit
	t.mu.Unlock()
	t.log.WithFields(logrus.Fields{
		"peer": peer.String(),
		"mtu":  unit,
	}).Info("client connected")
}

// OnDisconnect resets the tracker to its initial state.
func (t *ConnectionTracker) OnDisconnect() {
	t.mu.Lock()
	was := t.connected
	peer := t.peer
	t.connected = false
	t.peer = MAC{}
	t.unit = DefaultUnitSize
	t.mu.Unlock()
	if was {
		t.log.WithField("peer", peer.String()).Info("client disconnected")
	}
}

// Negotiate records the result of an MTU exchange. It is a no-op when no
// client is connected.
func (t *ConnectionTracker) Negotiate(mtu uint16) {
	unit := clampUnit(mtu)
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return
	}
	t.unit = unit
	t.mu.Unlock()
	t.log.WithField("mtu", unit).Debug("mtu negotiated")
}

// CurrentUnitSize returns the negotiated ATT MTU, or DefaultUnitSize.
func (t *ConnectionTracker) CurrentUnitSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.unit
}

func (t *ConnectionTracker) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *ConnectionTracker) State() ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return ConnectionState{
		Connected: t.connected,
		Peer:      t.peer,
		UnitSize:  t.unit,
	}
}
