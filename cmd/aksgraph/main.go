package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	_ "github.com/kompox/aksgraph/adapters/drivers/provider/azure"
	_ "github.com/kompox/aksgraph/adapters/drivers/provider/kubernetes"
	_ "github.com/kompox/aksgraph/adapters/drivers/provider/tls"
	"github.com/kompox/aksgraph/adapters/store/rdb"
	"github.com/kompox/aksgraph/engine"
	"github.com/kompox/aksgraph/internal/logging"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// flagOrEnv returns the value of flag name. The environment variable env
// takes precedence over the default but not over an explicit flag.
func flagOrEnv(fs *pflag.FlagSet, name, env string) string {
	f := fs.Lookup(name)
	if f == nil {
		return os.Getenv(env)
	}
	if v := os.Getenv(env); v != "" && !f.Changed {
		return v
	}
	return f.Value.String()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "aksgraph",
		Short:   "aksgraph CLI",
		Long:    "aksgraph declares an AKS cluster with an ingress controller and reconciles it.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help by default when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("db-url", envOr("AKSGRAPH_DB_URL", rdb.DefaultDBURL), "State database URL (env AKSGRAPH_DB_URL) (sqlite:/path/to.db)")
	cmd.PersistentFlags().StringP("stack", "s", envOr("AKSGRAPH_STACK", "dev"), "Stack name (env AKSGRAPH_STACK)")
	cmd.PersistentFlags().String("config-dir", envOr("AKSGRAPH_CONFIG_DIR", "."), "Directory holding Stack.<stack>.yaml (env AKSGRAPH_CONFIG_DIR)")
	cmd.PersistentFlags().String("log-format", "human", "Log format (human|text|json) (env AKSGRAPH_LOG_FORMAT)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error) (env AKSGRAPH_LOG_LEVEL)")
	cmd.PersistentFlags().Int("parallel", engine.DefaultParallel, "Maximum number of concurrent resource operations")
	cmd.PersistentFlags().String("metrics-file", "", "Write step metrics in Prometheus text format to this file")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format := flagOrEnv(c.Flags(), "log-format", "AKSGRAPH_LOG_FORMAT")
		level, err := logging.ParseLevel(flagOrEnv(c.Flags(), "log-level", "AKSGRAPH_LOG_LEVEL"))
		if err != nil {
			return err
		}
		l, err := logging.New(format, level)
		if err != nil {
			return err
		}
		l = l.With("runId", uuid.NewString())
		ctx := logging.WithLogger(c.Context(), l)
		c.SetContext(ctx)
		quietKlog()
		return nil
	}

	// Add subcommands
	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdConfig())
	cmd.AddCommand(newCmdPreview())
	cmd.AddCommand(newCmdUp())
	cmd.AddCommand(newCmdDestroy())
	cmd.AddCommand(newCmdStack())
	return cmd
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		os.Exit(1)
	}
}
