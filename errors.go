package bridge

import "github.com/pkg/errors"

var (
	ErrInvalidUUID        = errors.New("bridge: failed to parse UUID")
	ErrInvalidMAC         = errors.New("bridge: failed to parse MAC address")
	ErrNoProducer         = errors.New("bridge: no read producer configured")
	ErrNoConsumer         = errors.New("bridge: no write consumer configured")
	ErrNoRegistry         = errors.New("bridge: no attribute registry")
	ErrNoPermissions      = errors.New("bridge: characteristic is neither readable nor writable")
	ErrAlreadyRegistered  = errors.New("bridge: a characteristic is already registered")
	ErrInvalidPermissions = errors.New("bridge: failed to parse characteristic permissions")
	ErrInvalidTruncation  = errors.New("bridge: unknown truncation policy")
)
