// Package main provides the CLI entrypoint for studybuddy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/studybuddy/internal/config"
	"github.com/conorfennell/studybuddy/internal/logging"
	"github.com/conorfennell/studybuddy/internal/storage"
	"github.com/conorfennell/studybuddy/internal/study"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "studybuddy",
		Short:        "Spaced-repetition study scheduler",
		SilenceUsage: true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newSourceCmd())
	rootCmd.AddCommand(newDueCmd())
	rootCmd.AddCommand(newRateCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

// app is what every subcommand needs once configuration is loaded.
type app struct {
	cfg *config.Config
	db  *storage.DB
	svc *study.Service
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	loc, err := cfg.Study.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid study timezone: %w", err)
	}

	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	svc := study.New(db,
		study.WithLocation(loc),
		study.WithReposDir(cfg.Sync.ReposDir),
	)
	return &app{cfg: cfg, db: db, svc: svc}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
