package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bluepad/bridge"
	"github.com/bluepad/bridge/rawterm"
)

func consoleCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive console: typed lines become the value, writes are printed",
		Run: func(cmd *cobra.Command, args []string) {
			cc, err := connConfig()
			if err != nil {
				bpUsage(cmd, err)
			}

			term, err := rawterm.Configure()
			if err != nil {
				bpUsage(cmd, err)
			}
			defer term.Restore()

			// Raw mode needs CRLF, which the text formatter does not emit.
			log.SetOutput(crlfWriter{term})

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			store := &valueStore{}
			cfg := bridge.DefaultConfig()
			cfg.Producer = store
			cfg.Consumer = bridge.ConsumerFunc(func(p []byte) {
				term.Print("< " + displayWrite(p) + "\n")
			})

			quit := make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				err := startBridge(ctx, cc, cfg)
				select {
				case <-quit:
					return
				default:
				}
				// Stopped by a signal or a failure while ReadLine blocks.
				code := 0
				if err != nil {
					term.Print("Error: " + err.Error() + "\n")
					code = 1
				}
				term.Restore()
				os.Exit(code)
			}()

			term.Print("BluePad console enabled, use Ctrl-X to exit\n")
			for {
				line, err := term.ReadLine()
				if err != nil {
					break
				}
				store.Set(line)
			}

			close(quit)
			cancel()
			<-done
		},
	}
}

// crlfWriter writes through a raw terminal.
type crlfWriter struct {
	term *rawterm.Terminal
}

func (w crlfWriter) Write(p []byte) (int, error) {
	w.term.Print(string(p))
	return len(p), nil
}
