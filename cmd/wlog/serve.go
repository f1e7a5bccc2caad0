package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/metrics"
	"github.com/claude/wlog/internal/server"
	"github.com/claude/wlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"tailscale.com/tsnet"
)

const sessionSweepInterval = time.Hour

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *rootOptions) error {
	cfg, log, closer, err := opts.load()
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info("wlog starting", "version", Version)

	if err := cfg.RequireOAuth(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := storage.Open(ctx, cfg.Sessions.Driver, cfg.Sessions.DSN())
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()
	log.Info("session store ready", "driver", cfg.Sessions.Driver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("wlog", "api", reg)

	svc := newWorkoutService(cfg, m, log)
	authn := auth.New(auth.Config{
		ClientID:      cfg.OAuth.ClientID,
		ClientSecret:  cfg.OAuth.ClientSecret,
		RedirectURL:   cfg.OAuth.RedirectURI,
		BaseURL:       cfg.Notion.BaseURL,
		SecureCookies: cfg.Server.Production,
		SessionTTL:    cfg.Sessions.TTL,
	}, sessions, log)

	srv := server.New(svc, authn, sessions, server.Options{
		Metrics:     m,
		Gatherer:    reg,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log)

	// Listen on the tailnet or a plain TCP address.
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "production", cfg.Server.Production)
	}

	go sweepSessions(ctx, sessions, sessionSweepInterval, log)

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}

// sweepSessions deletes expired sessions every interval until ctx ends.
func sweepSessions(ctx context.Context, sessions storage.Sessions, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpiredSessions(ctx)
			if err != nil {
				log.Warn("expired session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("expired sessions removed", "count", n)
			}
		}
	}
}
