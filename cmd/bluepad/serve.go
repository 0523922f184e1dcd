package main

import (
	"bufio"
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bluepad/bridge"
)

func serveCmd(ctx context.Context) *cobra.Command {
	value := ""
	fromStdin := false
	echo := false

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the characteristic until interrupted",
		Long: "Serve the characteristic until interrupted. Clients read the " +
			"--value text, or the last line read from stdin with --stdin. " +
			"Client writes are logged.",
		Example: "  " + exeName + " serve --value 'ready'\n" +
			"  sensor | " + exeName + " serve --stdin --connstring backend=l2cap,mtu=185",
		Run: func(cmd *cobra.Command, args []string) {
			cc, err := connConfig()
			if err != nil {
				bpUsage(cmd, err)
			}

			store := &valueStore{}
			store.Set(value)
			if fromStdin {
				go func() {
					s := bufio.NewScanner(os.Stdin)
					for s.Scan() {
						store.Set(s.Text())
					}
					if err := s.Err(); err != nil {
						log.WithError(err).Warn("reading stdin")
					}
				}()
			}

			cfg := bridge.DefaultConfig()
			cfg.Producer = store
			cfg.Consumer = bridge.ConsumerFunc(func(p []byte) {
				logWrite(p)
				if echo {
					store.Set(string(p))
				}
			})
			if err := startBridge(ctx, cc, cfg); err != nil {
				log.WithError(err).Fatal("serve failed")
			}
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "text returned to readers")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false,
		"update the value with every line read from stdin")
	cmd.Flags().BoolVar(&echo, "echo", false,
		"make the last written bytes the new value")

	return cmd
}
