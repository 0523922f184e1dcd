package bridge

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Bridge is the state created by Setup. It lives for the rest of the process.
type Bridge struct {
	cfg        Config
	conn       *ConnectionTracker
	dispatcher *Dispatcher
	handle     Handle
}

// Setup validates cfg, builds the connection tracker and the dispatcher, and
// registers the characteristic with reg. Call it once during start-up.
func Setup(cfg Config, reg Registry) (*Bridge, error) {
	if reg == nil {
		return nil, ErrNoRegistry
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	cfg = cfg.withDefaults()

	conn := NewConnectionTracker(cfg.Logger)
	d := NewDispatcher(cfg.Producer, cfg.Consumer, conn, cfg.Truncation, cfg.Logger)

	h, err := reg.RegisterCharacteristic(Characteristic{
		Service:     cfg.Service,
		UUID:        cfg.Characteristic,
		Permissions: cfg.Permissions,
		OnRead:      d.HandleRead,
		OnWrite:     d.HandleWrite,
		Conn:        conn,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "register characteristic %s", cfg.Characteristic)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"service":        cfg.Service.String(),
		"characteristic": cfg.Characteristic.String(),
		"perm":           cfg.Permissions.String(),
		"handle":         h,
	}).Info("characteristic registered")

	return &Bridge{
		cfg:        cfg,
		conn:       conn,
		dispatcher: d,
		handle:     h,
	}, nil
}

// MustSetup is like Setup but logs the error and exits the process when
// registration fails.
func MustSetup(cfg Config, reg Registry) *Bridge {
	b, err := Setup(cfg, reg)
	if err != nil {
		log := cfg.Logger
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithError(err).Fatal("bluetooth setup failed")
	}
	return b
}

// Config returns the configuration with defaults applied.
func (b *Bridge) Config() Config {
	return b.cfg
}

func (b *Bridge) Connection() *ConnectionTracker {
	return b.conn
}

func (b *Bridge) Dispatcher() *Dispatcher {
	return b.dispatcher
}

// Handle returns the handle of the characteristic value attribute.
func (b *Bridge) Handle() Handle {
	return b.handle
}
