package att

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

// Conn is an ATT bearer. Every Read returns exactly one PDU and every Write
// sends one.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() bridge.MAC
}

// Listener accepts ATT bearers.
type Listener interface {
	Accept() (Conn, error)
	Close() error
}

// ErrIncompleteCharacteristic is returned when a characteristic is
// registered without its handlers.
var ErrIncompleteCharacteristic = errors.New("att: characteristic is missing a handler")

// Server is an ATT server exposing one bridged characteristic. It implements
// bridge.Registry.
type Server struct {
	maxMTU uint16
	name   string
	log    logrus.FieldLogger

	mu   sync.RWMutex
	db   *db
	conn bridge.ConnectionHandler
}

// Option configures a Server.
type Option func(*Server)

// WithMaxMTU sets the largest ATT MTU the server accepts. It is clamped to
// [bridge.DefaultUnitSize, bridge.MaxUnitSize]; the default is 247.
func WithMaxMTU(mtu uint16) Option {
	return func(s *Server) {
		switch {
		case mtu < bridge.DefaultUnitSize:
			mtu = bridge.DefaultUnitSize
		case mtu > bridge.MaxUnitSize:
			mtu = bridge.MaxUnitSize
		}
		s.maxMTU = mtu
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithDeviceName adds a GAP service with a read-only Device Name
// characteristic in front of the bridged service.
func WithDeviceName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		maxMTU: defaultServerMaxMTU,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterCharacteristic builds the attribute table: an optional GAP
// service, then the primary service declaration, the characteristic
// declaration and the characteristic value.
func (s *Server) RegisterCharacteristic(c bridge.Characteristic) (bridge.Handle, error) {
	if c.OnRead == nil || c.OnWrite == nil || c.Conn == nil {
		return 0, ErrIncompleteCharacteristic
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return 0, bridge.ErrAlreadyRegistered
	}

	d := &db{}
	if s.name != "" {
		name := []byte(s.name)
		idx := d.addService(bridge.New16BitUUID(uuidGAPService))
		d.addCharacteristic(bridge.New16BitUUID(uuidDeviceName), bridge.CharacteristicReadPermission,
			func() []byte { return name }, nil)
		d.endService(idx)
	}
	idx := d.addService(c.Service)
	valueHandle := d.addCharacteristic(c.UUID, c.Permissions, c.OnRead, c.OnWrite)
	d.endService(idx)

	s.db = d
	s.conn = c.Conn
	s.log.WithFields(logrus.Fields{
		"service": c.Service.String(),
		"handle":  valueHandle,
	}).Debug("att: attribute table built")
	return bridge.Handle(valueHandle), nil
}

// Serve runs the ATT bearer c until the client disconnects or ctx is done.
// c is closed on return. A disconnect is not an error.
func (s *Server) Serve(ctx context.Context, c Conn) error {
	s.mu.RLock()
	d, handler := s.db, s.conn
	s.mu.RUnlock()
	if d == nil {
		c.Close()
		return ErrNotRegistered
	}

	peer := c.RemoteAddr()
	sess := &session{
		db:     d,
		conn:   handler,
		mtu:    bridge.DefaultUnitSize,
		maxMTU: int(s.maxMTU),
		log:    s.log.WithField("peer", peer.String()),
	}

	handler.OnConnect(peer, 0)
	defer handler.OnDisconnect()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	defer c.Close()

	buf := make([]byte, bridge.MaxUnitSize)
	for {
		n, err := c.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF || err == io.ErrClosedPipe {
				return nil
			}
			return errors.Wrap(err, "att: read")
		}
		rsp := sess.handle(buf[:n])
		if rsp == nil {
			continue
		}
		if _, err := c.Write(rsp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "att: write")
		}
	}
}

// ServeListener accepts bearers from l and serves them one at a time, until
// ctx is done or Accept fails. l is closed on return.
func (s *Server) ServeListener(ctx context.Context, l Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-done:
		}
	}()
	defer l.Close()

	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "att: accept")
		}
		if err := s.Serve(ctx, c); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == ErrNotRegistered {
				return err
			}
			s.log.WithError(err).Warn("att: connection ended")
		}
	}
}
