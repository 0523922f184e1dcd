package main

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
	"github.com/bluepad/bridge/config"
)

// backend is a platform stack the bridge registers with.
type backend interface {
	bridge.Registry

	// Run advertises and serves clients until ctx is done.
	Run(ctx context.Context, cfg bridge.Config) error
	Close() error
}

var errUnsupportedBackend = errors.New("backend not supported on this platform")

// startBridge opens the backend selected by cc, registers the
// characteristic and serves it until ctx is done.
func startBridge(ctx context.Context, cc *config.ConnConfig, cfg bridge.Config) error {
	cc.Apply(&cfg)
	cfg.Logger = log.StandardLogger()

	be, err := openBackend(cc, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	b, err := bridge.Setup(cfg, be)
	if err != nil {
		return err
	}
	return be.Run(ctx, b.Config())
}

// waitAdvertising blocks until ctx is done; the stack serves clients on its
// own.
func waitAdvertising(ctx context.Context, cfg bridge.Config) error {
	log.WithField("name", cfg.Name).Info("waiting for clients")
	<-ctx.Done()
	return nil
}
