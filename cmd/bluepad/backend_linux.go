//go:build linux

package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
	"github.com/bluepad/bridge/att"
	"github.com/bluepad/bridge/bluez"
	"github.com/bluepad/bridge/config"
	"github.com/bluepad/bridge/l2cap"
)

func openBackend(cc *config.ConnConfig, cfg bridge.Config) (backend, error) {
	switch cc.Backend {
	case config.BackendL2CAP:
		opts := []att.Option{
			att.WithLogger(log.StandardLogger()),
			att.WithDeviceName(cfg.Name),
		}
		if cc.Has("mtu") {
			opts = append(opts, att.WithMaxMTU(cc.MTU))
		}
		return &l2capBackend{Server: att.NewServer(opts...), cc: cc}, nil

	case config.BackendBlueZ, "":
		opts := []bluez.Option{bluez.WithLogger(log.StandardLogger())}
		if cc.Has("hci") {
			opts = append(opts, bluez.WithAdapter(cc.AdapterID()))
		}
		r, err := bluez.NewRegistry(opts...)
		if err != nil {
			return nil, err
		}
		return &bluezBackend{Registry: r}, nil

	default:
		return nil, errUnsupportedBackend
	}
}

// l2capBackend serves ATT itself on the kernel's L2CAP socket.
type l2capBackend struct {
	*att.Server
	cc *config.ConnConfig
}

func (b *l2capBackend) Run(ctx context.Context, cfg bridge.Config) error {
	var opts []l2cap.Option
	if b.cc.Has("addr") {
		opts = append(opts, l2cap.WithAddress(b.cc.Addr))
	}
	l, err := l2cap.Listen(opts...)
	if err != nil {
		return err
	}
	log.Info("listening on the ATT channel; advertising is left to the controller")
	err = b.ServeListener(ctx, l)
	if err == context.Canceled {
		return nil
	}
	return err
}

func (b *l2capBackend) Close() error {
	return nil
}

type bluezBackend struct {
	*bluez.Registry
}

func (b *bluezBackend) Run(ctx context.Context, cfg bridge.Config) error {
	if err := b.Advertise(cfg.Name, cfg.Service); err != nil {
		return err
	}
	return waitAdvertising(ctx, cfg)
}
