// Package app wires configuration into the stores, analyzer and sinks
// shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/raine/stockmeta/internal/account"
	"github.com/raine/stockmeta/internal/backend"
	"github.com/raine/stockmeta/internal/config"
	"github.com/raine/stockmeta/internal/export"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/session"
	"github.com/raine/stockmeta/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the long-lived dependencies built from a Config.
type App struct {
	Config   *config.Config
	Store    *storage.SQLiteStore
	Analyzer llm.Analyzer
	// Backend is nil unless the hosted backend is configured.
	Backend  *backend.Client
	Sessions session.Store
	Profiles account.ProfileStore
	Credits  *account.Gate
	// S3 is nil unless S3 export is configured.
	S3 *export.S3Sink
}

// SetupLogging sends zerolog output to stderr and, outside systemd, also to
// logFileName. The returned func closes the log file.
func SetupLogging(logFileName string) (func(), error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// JOURNAL_STREAM is set by systemd; journald keeps the logs there.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd || logFileName == "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return func() {}, nil
	}

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Info().Str("logFile", logFileName).Msg("logging to file")

	return func() { logFile.Close() }, nil
}

// New opens the local store and builds the analyzer. When the hosted backend
// is configured, sessions go to both stores and profiles come from the
// backend.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.NewSQLiteStore(cfg.DBPath, storage.DeriveKey(cfg.TokenKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	gemini, err := llm.NewGeminiAnalyzer(ctx, llm.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize gemini analyzer: %w", err)
	}
	log.Info().Str("model", cfg.GeminiModel).Msg("gemini analyzer initialized")

	a := &App{
		Config:   cfg,
		Store:    store,
		Analyzer: llm.NewCachedAnalyzer(gemini, store),
		Sessions: store,
		Profiles: store,
	}

	if cfg.BackendEnabled() {
		a.Backend = backend.NewClient(backend.ClientOpts{
			BaseURL:    cfg.BackendURL,
			ServiceKey: cfg.BackendServiceKey,
		})
		a.Sessions = session.MultiStore{store, a.Backend}
		a.Profiles = a.Backend
		log.Info().Str("url", cfg.BackendURL).Msg("hosted backend enabled")
	}
	a.Credits = account.NewGate(a.Profiles)

	if cfg.S3Enabled() {
		a.S3, err = export.NewS3Sink(cfg.S3)
		if err != nil {
			store.Close()
			return nil, err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("s3 export enabled")
	}

	return a, nil
}

// Close releases the local store.
func (a *App) Close() error {
	return a.Store.Close()
}
