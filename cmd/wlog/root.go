package main

import (
	"io"
	"log/slog"

	"github.com/claude/wlog/internal/config"
	"github.com/claude/wlog/internal/logging"
	"github.com/claude/wlog/internal/metrics"
	"github.com/claude/wlog/internal/notion"
	"github.com/claude/wlog/internal/workout"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "wlog",
		Short:         "Workout tracker backed by Notion databases",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newMigrateCmd(opts),
		newDecodeCmd(),
	)
	return root
}

// load reads the config and builds the process logger from it.
func (o *rootOptions) load() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closer := logging.Setup(logging.SetupParams{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		FileName:   cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	return cfg, log, closer, nil
}

// newWorkoutService wires the remote client, id cache and service.
// m may be nil.
func newWorkoutService(cfg *config.Config, m *metrics.Manager, log *slog.Logger) *workout.Service {
	opts := []notion.Option{
		notion.WithMaxRetries(cfg.Notion.MaxRetries),
		notion.WithMetrics(m),
	}
	if cfg.Notion.Version != "" {
		opts = append(opts, notion.WithVersion(cfg.Notion.Version))
	}
	client := notion.New(cfg.Notion.BaseURL, "", opts...)
	cache := notion.NewDataSourceCache(cfg.Notion.CacheTTL, log)
	return workout.NewService(workout.ClientFactory(client), cache, m, log)
}
