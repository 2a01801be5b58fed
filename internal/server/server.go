// Package server exposes the analyzer, session bookkeeping and CSV export
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/raine/stockmeta/internal/batch"
	"github.com/raine/stockmeta/internal/export"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/session"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators of the HTTP handlers. Auth, Credits and Sink
// are optional.
type Deps struct {
	Analyzer llm.Analyzer
	Sessions session.Store
	Auth     Authenticator
	Credits  batch.CreditGate
	Sink     export.Sink
	Targets  llm.Targets

	RateLimit float64
	RateBurst int

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := newHandler(deps)
	limiter := newIPLimiter(deps.RateLimit, deps.RateBurst)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.middleware)
		r.Use(authenticate(deps.Auth))

		r.Post("/process-svg", h.processSVG)
		r.Post("/sessions", h.upsertSession)
		r.Post("/export", h.exportCSV)
	})

	return r
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
