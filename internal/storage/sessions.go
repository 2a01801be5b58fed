package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raine/stockmeta/internal/session"
)

// UpsertSession stores or updates a session record. The access token is
// encrypted before it is written.
func (s *SQLiteStore) UpsertSession(ctx context.Context, rec *session.Record) error {
	encryptedToken := ""
	if rec.AccessToken != "" {
		var err error
		encryptedToken, err = Encrypt([]byte(rec.AccessToken), s.encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt token: %w", err)
		}
	}

	var endedAt sql.NullInt64
	if rec.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: rec.EndedAt.Unix(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, encrypted_token, platform, images_processed, started_at, last_seen, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			encrypted_token = CASE WHEN excluded.encrypted_token = '' THEN sessions.encrypted_token ELSE excluded.encrypted_token END,
			platform = excluded.platform,
			images_processed = excluded.images_processed,
			last_seen = excluded.last_seen,
			ended_at = excluded.ended_at
	`, rec.SessionID, rec.UserID, encryptedToken, rec.Platform, rec.ImagesProcessed,
		rec.StartedAt.Unix(), rec.LastSeen.Unix(), endedAt)

	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
// Returns nil, nil if the session doesn't exist.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := session.Record{SessionID: sessionID}
	var encryptedToken string
	var startedAt, lastSeen int64
	var endedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, encrypted_token, platform, images_processed, started_at, last_seen, ended_at
		FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&rec.UserID, &encryptedToken, &rec.Platform, &rec.ImagesProcessed, &startedAt, &lastSeen, &endedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if encryptedToken != "" {
		token, err := Decrypt(encryptedToken, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt token: %w", err)
		}
		rec.AccessToken = string(token)
	}

	rec.StartedAt = time.Unix(startedAt, 0).UTC()
	rec.LastSeen = time.Unix(lastSeen, 0).UTC()
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0).UTC()
		rec.EndedAt = &t
	}
	return &rec, nil
}

// CountSessions returns the number of stored sessions.
func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// PruneSessions deletes sessions not seen since before cutoff and returns
// how many were removed.
func (s *SQLiteStore) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE last_seen < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned sessions: %w", err)
	}
	return n, nil
}
