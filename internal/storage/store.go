// Package storage persists sessions, user profiles and cached analysis
// results in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

// VisionCacheEntry represents a cached vision analysis result.
type VisionCacheEntry struct {
	Title       string
	Description string
	Keywords    []string
	Prompt      string
	BaseModel   string
	Categories  []string
}

// SQLiteStore is the local store. Access tokens are encrypted at rest.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// The encryptionKey is used to encrypt/decrypt access tokens and must be
// 16, 24 or 32 bytes long.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	switch len(encryptionKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid encryption key length %d", len(encryptionKey))
	}

	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	tables := []struct {
		name  string
		query string
	}{
		{"sessions", `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			encrypted_token TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT '',
			images_processed INTEGER NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL,
			last_seen INTEGER NOT NULL,
			ended_at INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen);
		`},
		{"profiles", `
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			credits_used INTEGER NOT NULL DEFAULT 0,
			credits_limit INTEGER NOT NULL DEFAULT 0,
			is_premium INTEGER NOT NULL DEFAULT 0,
			expiration_date INTEGER
		);
		`},
		{"vision_cache", `
		CREATE TABLE IF NOT EXISTS vision_cache (
			cache_key TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '[]',
			prompt TEXT NOT NULL DEFAULT '',
			base_model TEXT NOT NULL DEFAULT '',
			categories TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		`},
	}

	for _, t := range tables {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetVisionCache retrieves a cached analysis result.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetVisionCache(key string) (*VisionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry VisionCacheEntry
	var keywords, categories string
	err := s.db.QueryRow(
		"SELECT title, description, keywords, prompt, base_model, categories FROM vision_cache WHERE cache_key = ?",
		key,
	).Scan(&entry.Title, &entry.Description, &keywords, &entry.Prompt, &entry.BaseModel, &categories)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	if err := json.Unmarshal([]byte(keywords), &entry.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode cached keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &entry.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode cached categories: %w", err)
	}

	return &entry, nil
}

// SetVisionCache stores an analysis result in the cache.
func (s *SQLiteStore) SetVisionCache(key string, entry *VisionCacheEntry) error {
	keywords, err := marshalList(entry.Keywords)
	if err != nil {
		return err
	}
	categories, err := marshalList(entry.Categories)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO vision_cache (cache_key, title, description, keywords, prompt, base_model, categories)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			keywords = excluded.keywords,
			prompt = excluded.prompt,
			base_model = excluded.base_model,
			categories = excluded.categories,
			created_at = CURRENT_TIMESTAMP
	`, key, entry.Title, entry.Description, keywords, entry.Prompt, entry.BaseModel, categories)

	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}
