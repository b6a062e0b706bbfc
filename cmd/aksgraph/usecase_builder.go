package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/adapters/store/rdb"
	"github.com/kompox/aksgraph/config/stackcfg"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/engine"
	"github.com/kompox/aksgraph/internal/secrets"
	"github.com/kompox/aksgraph/topology"
	"github.com/kompox/aksgraph/usecase/stack"
)

// stackName returns the --stack flag value.
func stackName(cmd *cobra.Command) string {
	s, _ := cmd.Flags().GetString("stack")
	return s
}

// loadStackConfig reads Stack.<stack>.yaml from --config-dir.
func loadStackConfig(cmd *cobra.Command) (*stackcfg.Config, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	return stackcfg.Load(dir, stackName(cmd))
}

// buildStackRepos opens the state database. Secret state values are
// protected by the passphrase in AKSGRAPH_CONFIG_PASSPHRASE.
func buildStackRepos(cmd *cobra.Command) (*stack.Repos, error) {
	dbURL, _ := cmd.Flags().GetString("db-url")
	db, err := rdb.OpenFromURL(dbURL)
	if err != nil {
		return nil, err
	}
	if err := rdb.AutoMigrate(db); err != nil {
		return nil, err
	}
	// Without a passphrase only stacks holding no secret values can be read
	// or written.
	var crypter graph.Crypter
	if pass := os.Getenv(stackcfg.EnvPassphrase); pass != "" {
		c, err := secrets.NewPassphraseCrypter(pass, 0)
		if err != nil {
			return nil, err
		}
		crypter = c
	}
	return &stack.Repos{Snapshot: rdb.NewStackRepository(db, crypter)}, nil
}

// buildStackUseCase creates the stack use case. Engine events are rendered
// to progress; a nil writer disables progress output.
func buildStackUseCase(cmd *cobra.Command, progress io.Writer) (*stack.UseCase, error) {
	cfg, err := loadStackConfig(cmd)
	if err != nil {
		return nil, err
	}
	repos, err := buildStackRepos(cmd)
	if err != nil {
		return nil, err
	}
	parallel, _ := cmd.Flags().GetInt("parallel")
	opts := engine.Options{Parallel: parallel}
	if progress != nil {
		opts.Observer = newProgressObserver(progress)
	}
	eng := engine.New(providerdrv.NewRegistry(cfg.Settings), repos.Snapshot, opts)
	return &stack.UseCase{
		Repos:   repos,
		Engine:  eng,
		Project: topology.Project,
		Declare: declareFunc(cfg),
	}, nil
}

// buildGraphUseCase creates a stack use case that only declares the graph.
func buildGraphUseCase(cmd *cobra.Command) (*stack.UseCase, error) {
	cfg, err := loadStackConfig(cmd)
	if err != nil {
		return nil, err
	}
	return &stack.UseCase{Project: topology.Project, Declare: declareFunc(cfg)}, nil
}

func declareFunc(cfg *stackcfg.Config) stack.DeclareFunc {
	return func(g *graph.Graph) error {
		_, err := topology.Declare(g, cfg.Namespace(topology.Project))
		return err
	}
}

// writeMetrics writes engine metrics when --metrics-file is set.
func writeMetrics(cmd *cobra.Command, u *stack.UseCase) error {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" || u == nil || u.Engine == nil {
		return nil
	}
	return u.Engine.Metrics().WriteToTextfile(path)
}
