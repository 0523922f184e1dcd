package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bluepad/bridge/config"
)

const (
	exeName = "bluepad"
	version = "0.1.0"
)

var (
	logLevel    log.Level
	profileName string
	connString  string
)

// bpUsage prints err and the usage of cmd, then exits.
func bpUsage(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	}
	if cmd != nil {
		cmd.Usage()
	}
	os.Exit(1)
}

// connConfig resolves the profile, then lets --connstring override it.
func connConfig() (*config.ConnConfig, error) {
	cs := ""
	if profileName != "" {
		pm, err := config.NewProfileMgr()
		if err != nil {
			return nil, err
		}
		p, err := pm.Get(profileName)
		if err != nil {
			return nil, err
		}
		cs = p.ConnString
	}
	if connString != "" {
		if cs != "" {
			cs += ","
		}
		cs += connString
	}
	return config.ParseConnString(cs)
}

func Commands(ctx context.Context) *cobra.Command {
	logLevelStr := ""
	bpCmd := &cobra.Command{
		Use:   exeName,
		Short: exeName + " exposes a readable and writable BLE characteristic",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			logLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				bpUsage(nil, err)
			}
			log.SetLevel(logLevel)

			// Set cbgo log level if we're using macOS.
			OSSpecificInit()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	bpCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	bpCmd.PersistentFlags().StringVarP(&profileName, "conn", "c", "",
		"connection profile to use")

	bpCmd.PersistentFlags().StringVar(&connString, "connstring", "",
		"connection key-value pairs; override the profile's connstring")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + exeName + " version number",
		Example: "  " + exeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", exeName, version)
		},
	}
	bpCmd.AddCommand(versCmd)

	bpCmd.AddCommand(serveCmd(ctx))
	bpCmd.AddCommand(consoleCmd(ctx))
	bpCmd.AddCommand(profileCmd())

	return bpCmd
}
