// Package backend talks to the hosted database service that owns user
// profiles and session records. The service exposes a PostgREST style REST
// API under /rest/v1 and an auth API under /auth/v1.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/stockmeta/internal/account"
	"github.com/raine/stockmeta/internal/session"
)

const (
	sessionsTable = "sessions"
	profilesTable = "profiles"
)

// User is the authenticated user behind an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ClientOpts struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
}

// Client is a hosted backend client authenticated with the service key.
type Client struct {
	httpClient *resty.Client
	serviceKey string
}

func NewClient(opts ClientOpts) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c := Client{serviceKey: opts.ServiceKey}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeaders(
			map[string]string{
				"Accept":       "application/json",
				"Content-Type": "application/json",
				"apikey":       opts.ServiceKey,
			},
		)

	return &c
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetAuthToken(c.serviceKey)

	if result != nil {
		request.SetResult(result)
	}

	return request
}

// UpsertSession inserts or merges a session row keyed by session_id.
func (c *Client) UpsertSession(ctx context.Context, rec *session.Record) error {
	_, err := handleError(c.req(ctx, nil).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetQueryParam("on_conflict", "session_id").
		SetBody(rec).
		Post("/rest/v1/" + sessionsTable))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// GetProfile fetches a profile by user id.
// Returns nil, nil if the profile doesn't exist.
func (c *Client) GetProfile(ctx context.Context, userID string) (*account.UserProfile, error) {
	var rows []account.UserProfile
	_, err := handleError(c.req(ctx, &rows).
		SetQueryParams(map[string]string{
			"id":     "eq." + userID,
			"select": "*",
		}).
		Get("/rest/v1/" + profilesTable))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SaveProfile upserts a profile keyed by id.
func (c *Client) SaveProfile(ctx context.Context, p *account.UserProfile) error {
	_, err := handleError(c.req(ctx, nil).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetQueryParam("on_conflict", "id").
		SetBody(p).
		Post("/rest/v1/" + profilesTable))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetUser resolves a user access token to its user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	user := &User{}
	_, err := handleError(c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(user).
		Get("/auth/v1/user"))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("failed to get user: empty user id")
	}
	return user, nil
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
