// Package account enforces per-user credit limits.
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoCredits is returned when a non-premium user has used every credit.
	ErrNoCredits = errors.New("no credits left")
	// ErrSubscriptionExpired is returned when a premium subscription has
	// lapsed and the user is also out of regular credits.
	ErrSubscriptionExpired = errors.New("subscription expired")
	// ErrProfileNotFound is returned when the user has no profile.
	ErrProfileNotFound = errors.New("profile not found")
)

// UserProfile is a user's credit balance. JSON tags match the hosted
// backend's column names.
type UserProfile struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	CreditsUsed    int        `json:"credits_used"`
	CreditsLimit   int        `json:"credits_limit"`
	IsPremium      bool       `json:"is_premium"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// PremiumActive reports whether the premium subscription is in effect at now.
// A premium profile without an expiration date never expires.
func (p *UserProfile) PremiumActive(now time.Time) bool {
	if !p.IsPremium {
		return false
	}
	return p.ExpirationDate == nil || now.Before(*p.ExpirationDate)
}

// CanUseCredit returns nil if the user may spend one more credit at now.
func (p *UserProfile) CanUseCredit(now time.Time) error {
	if p.PremiumActive(now) {
		return nil
	}
	if p.CreditsUsed < p.CreditsLimit {
		return nil
	}
	if p.IsPremium {
		return ErrSubscriptionExpired
	}
	return ErrNoCredits
}

// Remaining returns the credits left, or -1 for unlimited.
func (p *UserProfile) Remaining(now time.Time) int {
	if p.PremiumActive(now) {
		return -1
	}
	if p.CreditsUsed >= p.CreditsLimit {
		return 0
	}
	return p.CreditsLimit - p.CreditsUsed
}

// ProfileStore loads and saves profiles. GetProfile returns nil, nil when
// the profile does not exist.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	SaveProfile(ctx context.Context, profile *UserProfile) error
}

// Gate guards AI calls with the user's credit balance.
type Gate struct {
	store ProfileStore
	now   func() time.Time
	// mu serializes read-modify-write of credit counters.
	mu sync.Mutex
}

// NewGate creates a gate over store.
func NewGate(store ProfileStore) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Consume spends one credit for userID, failing with ErrNoCredits or
// ErrSubscriptionExpired when the user may not make another call.
func (g *Gate) Consume(ctx context.Context, userID string) (*UserProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	profile, err := g.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := profile.CanUseCredit(g.now()); err != nil {
		log.Info().Str("userId", userID).Err(err).Msg("credit denied")
		return profile, err
	}

	profile.CreditsUsed++
	if err := g.store.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

// Refund returns a credit spent on a call that failed.
func (g *Gate) Refund(ctx context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	profile, err := g.load(ctx, userID)
	if err != nil {
		return err
	}
	if profile.CreditsUsed == 0 {
		return nil
	}
	profile.CreditsUsed--
	if err := g.store.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (g *Gate) load(ctx context.Context, userID string) (*UserProfile, error) {
	profile, err := g.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}
