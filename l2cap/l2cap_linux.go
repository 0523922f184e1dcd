//go:build linux

package l2cap

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/bluepad/bridge"
	"github.com/bluepad/bridge/att"
)

// CIDATT is the fixed channel identifier of the Attribute Protocol.
const CIDATT = 4

// Listener accepts ATT connections on an L2CAP SEQPACKET socket.
type Listener struct {
	fd int

	mu     sync.Mutex
	closed bool
}

// Option configures Listen.
type Option func(*unix.SockaddrL2)

// WithAddress binds to the controller with the given public address instead
// of all controllers.
func WithAddress(mac bridge.MAC) Option {
	return func(sa *unix.SockaddrL2) {
		// SockaddrL2.Addr is in display order; bind reverses it.
		for i := range mac {
			sa.Addr[i] = mac[len(mac)-1-i]
		}
	}
}

// WithRandomAddress binds to the random address type.
func WithRandomAddress() Option {
	return func(sa *unix.SockaddrL2) {
		sa.AddrType = unix.BDADDR_LE_RANDOM
	}
}

// Listen binds the ATT channel and starts listening for one connection at a
// time.
func Listen(opts ...Option) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, errors.Wrap(err, "l2cap: socket")
	}

	sa := &unix.SockaddrL2{
		CID:      CIDATT,
		AddrType: unix.BDADDR_LE_PUBLIC,
	}
	for _, opt := range opts {
		opt(sa)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "l2cap: bind")
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "l2cap: listen")
	}
	return &Listener{fd: fd}, nil
}

// Accept waits for the next central to connect.
func (l *Listener) Accept() (att.Conn, error) {
	for {
		nfd, sa, err := unix.Accept(l.fd)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return nil, att.ErrClosed
			}
			return nil, errors.Wrap(err, "l2cap: accept")
		}

		var peer bridge.MAC
		if l2, ok := sa.(*unix.SockaddrL2); ok {
			// Accept does not reverse the address: it is already little
			// endian, like bridge.MAC.
			peer = bridge.MAC(l2.Addr)
		}
		unix.CloseOnExec(nfd)
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			return nil, errors.Wrap(err, "l2cap: set nonblock")
		}
		return &Conn{
			File: os.NewFile(uintptr(nfd), "l2cap-att"),
			peer: peer,
		}, nil
	}
}

// Close stops listening. A blocked Accept returns att.ErrClosed.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	unix.Shutdown(l.fd, unix.SHUT_RDWR)
	return unix.Close(l.fd)
}

// Conn is one accepted ATT bearer. Reads return one PDU each.
type Conn struct {
	*os.File
	peer bridge.MAC
}

func (c *Conn) RemoteAddr() bridge.MAC {
	return c.peer
}
