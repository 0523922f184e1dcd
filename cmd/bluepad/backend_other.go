//go:build !linux && !darwin

package main

import (
	"github.com/bluepad/bridge"
	"github.com/bluepad/bridge/config"
)

func openBackend(cc *config.ConnConfig, cfg bridge.Config) (backend, error) {
	return nil, errUnsupportedBackend
}
