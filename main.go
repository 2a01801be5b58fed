package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/raine/stockmeta/internal/app"
	"github.com/raine/stockmeta/internal/config"
	"github.com/raine/stockmeta/internal/server"
	"github.com/raine/stockmeta/internal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "stockmeta.log"

func main() {
	// Try to load existing env file
	config.LoadEnvFile()

	if missing := config.CheckRequired(); len(missing) > 0 {
		if config.IsInteractiveTerminal() {
			if !config.RunSetupWizard() {
				config.WaitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (systemd, k8s, etc.) - fail with clear error
			config.FatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	closeLog, err := app.SetupLogging(logFileName)
	if err != nil {
		config.FatalWithWait("%v", err)
	}
	defer closeLog()

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("failed to load config: %v", err)
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		config.FatalWithWait("%v", err)
	}
	defer a.Close()

	deps := server.Deps{
		Analyzer:  a.Analyzer,
		Sessions:  a.Sessions,
		Credits:   a.Credits,
		Targets:   cfg.Targets,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	}
	if a.Backend != nil {
		deps.Auth = a.Backend
	}
	if a.S3 != nil {
		deps.Sink = a.S3
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(ctx, srv)
	})

	pruner := session.NewPruner(a.Store, cfg.PruneInterval, cfg.SessionMaxAge)
	g.Go(func() error {
		pruner.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
