//go:build darwin

package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
	"github.com/bluepad/bridge/config"
	"github.com/bluepad/bridge/macbt"
)

func openBackend(cc *config.ConnConfig, cfg bridge.Config) (backend, error) {
	switch cc.Backend {
	case config.BackendMac, "":
		return &macBackend{Registry: macbt.NewRegistry(log.StandardLogger())}, nil
	default:
		return nil, errUnsupportedBackend
	}
}

type macBackend struct {
	*macbt.Registry
}

func (b *macBackend) Run(ctx context.Context, cfg bridge.Config) error {
	if err := b.Advertise(cfg.Name, cfg.Service); err != nil {
		return err
	}
	return waitAdvertising(ctx, cfg)
}
