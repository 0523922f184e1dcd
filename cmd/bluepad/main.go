package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		// A second signal exits without cleanup.
		<-sigChan
		os.Exit(1)
	}()

	if err := Commands(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
