package main

import (
	"github.com/claude/wlog/internal/mcp"
	"github.com/claude/wlog/internal/models"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var remoteURL, sessionID string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long: "Serve MCP tools over stdio. By default tools read the workspace " +
			"directly with the configured integration token and table ids. " +
			"With --remote they go through a running wlog server instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closer, err := opts.load()
			if err != nil {
				return err
			}
			defer closer.Close()

			var ds mcp.DataSource
			svc := newWorkoutService(cfg, nil, log)
			if remoteURL != "" {
				ds = mcp.NewHTTPClient(remoteURL, sessionID)
				log.Info("mcp using remote server", "url", remoteURL)
			} else {
				if err := cfg.RequireIntegration(); err != nil {
					return err
				}
				ds = mcp.NewLocal(svc, models.Credentials{
					AccessToken: cfg.Notion.Token,
					Databases: models.DatabaseConfig{
						WorkoutDBID: cfg.Databases.WorkoutDBID,
						LogDBID:     cfg.Databases.LogDBID,
						RoutineDBID: cfg.Databases.RoutineDBID,
					},
				})
			}

			log.Info("mcp server starting", "version", Version)
			return server.ServeStdio(mcp.New(ds, svc.Decoder(), Version, log))
		},
	}
	cmd.Flags().StringVar(&remoteURL, "remote", "", "base URL of a wlog server to read through")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id for --remote")
	cmd.MarkFlagsRequiredTogether("remote", "session")
	return cmd
}
