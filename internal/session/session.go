// Package session records processing sessions for bookkeeping.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Record is one processing session. JSON tags match the hosted backend's
// column names; the access token is never sent there.
type Record struct {
	SessionID       string     `json:"session_id"`
	UserID          string     `json:"user_id,omitempty"`
	AccessToken     string     `json:"-"`
	Platform        string     `json:"platform"`
	ImagesProcessed int        `json:"images_processed"`
	StartedAt       time.Time  `json:"started_at"`
	LastSeen        time.Time  `json:"last_seen"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// Store upserts session records keyed by SessionID. Upserting the same
// record twice must leave a single row.
type Store interface {
	UpsertSession(ctx context.Context, rec *Record) error
}

// MultiStore writes to every store in order. All stores are attempted even
// when one fails; the failures are joined.
type MultiStore []Store

// UpsertSession implements Store.
func (m MultiStore) UpsertSession(ctx context.Context, rec *Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.UpsertSession(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracker keeps the record of one session up to date. Store failures are
// logged as warnings and never returned.
type Tracker struct {
	store Store
	now   func() time.Time

	mu  sync.Mutex
	rec Record
}

// NewTracker creates a tracker for a new session with a random id.
func NewTracker(store Store, userID, platform string) *Tracker {
	return &Tracker{
		store: store,
		now:   time.Now,
		rec: Record{
			SessionID: uuid.New().String(),
			UserID:    userID,
			Platform:  platform,
		},
	}
}

// ID returns the session id.
func (t *Tracker) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.SessionID
}

// Start marks the session as started.
func (t *Tracker) Start(ctx context.Context) {
	t.update(ctx, func(r *Record, now time.Time) {
		r.StartedAt = now
	})
}

// ImageProcessed counts one more processed image.
func (t *Tracker) ImageProcessed(ctx context.Context) {
	t.update(ctx, func(r *Record, now time.Time) {
		r.ImagesProcessed++
	})
}

// End marks the session as finished.
func (t *Tracker) End(ctx context.Context) {
	t.update(ctx, func(r *Record, now time.Time) {
		r.EndedAt = &now
	})
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec
}

func (t *Tracker) update(ctx context.Context, fn func(r *Record, now time.Time)) {
	t.mu.Lock()
	now := t.now().UTC()
	if t.rec.StartedAt.IsZero() {
		t.rec.StartedAt = now
	}
	fn(&t.rec, now)
	t.rec.LastSeen = now
	rec := t.rec
	t.mu.Unlock()

	if t.store == nil {
		return
	}
	if err := t.store.UpsertSession(ctx, &rec); err != nil {
		log.Warn().Err(err).Str("sessionId", rec.SessionID).Msg("failed to record session")
	}
}
