package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PruneStore deletes sessions last seen before cutoff and returns how many
// were removed.
type PruneStore interface {
	PruneSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically deletes stale session records.
type Pruner struct {
	store    PruneStore
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

// NewPruner creates a pruner that runs every interval and removes sessions
// older than maxAge.
func NewPruner(store PruneStore, interval, maxAge time.Duration) *Pruner {
	return &Pruner{store: store, interval: interval, maxAge: maxAge, now: time.Now}
}

// Run prunes once immediately and then on every tick. It blocks until the
// context is cancelled.
func (p *Pruner) Run(ctx context.Context) {
	log.Info().Dur("interval", p.interval).Dur("maxAge", p.maxAge).Msg("starting session pruner")

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session pruner stopped")
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	removed, err := p.store.PruneSessions(ctx, p.now().Add(-p.maxAge))
	if err != nil {
		log.Error().Err(err).Msg("failed to prune sessions")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("pruned old sessions")
	}
}
