package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bluepad/bridge/config"
)

func profileAddCmd(cmd *cobra.Command, args []string) {
	pm, err := config.NewProfileMgr()
	if err != nil {
		bpUsage(nil, err)
	}

	// Profile name required
	if len(args) == 0 {
		bpUsage(cmd, errors.New("need connection profile name"))
	}

	p := &config.Profile{Name: args[0]}
	for _, vdef := range args[1:] {
		s := strings.SplitN(vdef, "=", 2)
		switch s[0] {
		case "connstring":
			if len(s) != 2 {
				bpUsage(cmd, errors.New("connstring needs a value"))
			}
			p.ConnString = s[1]
		default:
			bpUsage(cmd, errors.New("unknown variable "+s[0]))
		}
	}

	if err := pm.Add(p); err != nil {
		bpUsage(cmd, err)
	}
	fmt.Printf("Connection profile %s successfully added\n", p.Name)
}

func profileShowCmd(cmd *cobra.Command, args []string) {
	pm, err := config.NewProfileMgr()
	if err != nil {
		bpUsage(nil, err)
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	found := false
	for _, p := range pm.List() {
		if name != "" && p.Name != name {
			continue
		}
		if !found {
			found = true
			fmt.Printf("Connection profiles: \n")
		}
		fmt.Printf("  %s: connstring='%s'\n", p.Name, p.ConnString)
	}

	if !found {
		if name == "" {
			fmt.Printf("No connection profiles found!\n")
		} else {
			fmt.Printf("No connection profiles found matching %s\n", name)
		}
	}
}

func profileDelCmd(cmd *cobra.Command, args []string) {
	pm, err := config.NewProfileMgr()
	if err != nil {
		bpUsage(nil, err)
	}

	if len(args) == 0 {
		bpUsage(cmd, errors.New("need connection profile name"))
	}
	if err := pm.Delete(args[0]); err != nil {
		bpUsage(cmd, err)
	}
	fmt.Printf("Connection profile %s successfully deleted.\n", args[0])
}

func profileCmd() *cobra.Command {
	cpCmd := &cobra.Command{
		Use:   "conn",
		Short: "Manage " + exeName + " connection profiles",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	cpCmd.AddCommand(&cobra.Command{
		Use:     "add <conn_profile> connstring=<key=value,...>",
		Short:   "Add a connection profile",
		Example: "  " + exeName + " conn add pi connstring=backend=bluez,hci=0",
		Run:     profileAddCmd,
	})
	cpCmd.AddCommand(&cobra.Command{
		Use:   "delete <conn_profile>",
		Short: "Delete a connection profile",
		Run:   profileDelCmd,
	})
	cpCmd.AddCommand(&cobra.Command{
		Use:   "show [conn_profile]",
		Short: "Show connection profiles",
		Run:   profileShowCmd,
	})

	return cpCmd
}
