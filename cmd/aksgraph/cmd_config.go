package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kompox/aksgraph/config/stackcfg"
	"github.com/kompox/aksgraph/topology"
)

// qualifyKey namespaces bare keys with the project name.
func qualifyKey(key string) string {
	if strings.Contains(key, ":") {
		return key
	}
	return topology.Project + ":" + key
}

// newCmdConfig returns the stack configuration commands.
func newCmdConfig() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Manage stack configuration (Stack.<stack>.yaml)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	c.AddCommand(newCmdConfigGet())
	c.AddCommand(newCmdConfigSet())
	c.AddCommand(newCmdConfigList())
	return c
}

func newCmdConfigGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStackConfig(cmd)
			if err != nil {
				return err
			}
			v, err := cfg.Require(qualifyKey(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newCmdConfigSet() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStackConfig(cmd)
			if err != nil {
				return err
			}
			return cfg.Set(qualifyKey(args[0]), args[1])
		},
	}
}

func newCmdConfigList() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List configuration values from the stack file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStackConfig(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s\n", cfg.Path())
			for _, k := range cfg.Keys() {
				v, _ := cfg.Get(k)
				fmt.Fprintf(w, "%s: %s\n", k, v)
			}
			fmt.Fprintf(w, "# environment overrides use %s<KEY>, secrets passphrase %s\n", stackcfg.EnvPrefix, stackcfg.EnvPassphrase)
			return nil
		},
	}
}
