package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pkg.world.dev/world-engine/lattice"
)

type rootOptions struct {
	store    string
	storeDir string
	sqlite   string
	redis    string
}

// config loads the configuration and applies any store flags the user passed.
func (o *rootOptions) config() (lattice.Config, error) {
	cfg, err := lattice.LoadConfig()
	if err != nil {
		return cfg, err
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.storeDir != "" {
		cfg.StoreDir = o.storeDir
	}
	if o.sqlite != "" {
		cfg.SQLitePath = o.sqlite
	}
	if o.redis != "" {
		cfg.RedisAddress = o.redis
	}
	return cfg, cfg.Validate()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "lattice",
		Short:        "Inspect and exercise lattice worlds",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.store, "store", "", "store backend (filesystem|redis|sqlite), overrides LATTICE_STORE")
	cmd.PersistentFlags().StringVar(&opts.storeDir, "dir", "", "filesystem store directory")
	cmd.PersistentFlags().StringVar(&opts.sqlite, "sqlite", "", "sqlite database path")
	cmd.PersistentFlags().StringVar(&opts.redis, "redis", "", "redis address")

	cmd.AddCommand(newInspectCommand(opts))
	cmd.AddCommand(newBenchCommand())
	return cmd
}

func quietWorld(cfg lattice.Config, opts ...lattice.WorldOption) (*lattice.World, error) {
	base := []lattice.WorldOption{
		lattice.WithConfig(cfg),
		lattice.WithLogger(zerolog.Nop()),
	}
	return lattice.NewWorld(append(base, opts...)...)
}
