package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raine/stockmeta/internal/account"
)

// GetProfile retrieves a user profile.
// Returns nil, nil if the profile doesn't exist.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*account.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := account.UserProfile{ID: userID}
	var expiration sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		"SELECT email, credits_used, credits_limit, is_premium, expiration_date FROM profiles WHERE id = ?",
		userID,
	).Scan(&p.Email, &p.CreditsUsed, &p.CreditsLimit, &p.IsPremium, &expiration)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	if expiration.Valid {
		t := time.Unix(expiration.Int64, 0).UTC()
		p.ExpirationDate = &t
	}
	return &p, nil
}

// SaveProfile stores or updates a user profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p *account.UserProfile) error {
	var expiration sql.NullInt64
	if p.ExpirationDate != nil {
		expiration = sql.NullInt64{Int64: p.ExpirationDate.Unix(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, credits_used, credits_limit, is_premium, expiration_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			credits_used = excluded.credits_used,
			credits_limit = excluded.credits_limit,
			is_premium = excluded.is_premium,
			expiration_date = excluded.expiration_date
	`, p.ID, p.Email, p.CreditsUsed, p.CreditsLimit, p.IsPremium, expiration)

	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
