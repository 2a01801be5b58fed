package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/raine/stockmeta/internal/stock"
	"github.com/raine/stockmeta/internal/storage"
	"github.com/rs/zerolog/log"
)

// VisionCache stores analysis results keyed by request hash.
type VisionCache interface {
	GetVisionCache(key string) (*storage.VisionCacheEntry, error)
	SetVisionCache(key string, entry *storage.VisionCacheEntry) error
}

// CachedAnalyzer wraps an Analyzer with SQLite caching.
type CachedAnalyzer struct {
	inner Analyzer
	store VisionCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store VisionCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// requestKey hashes the file bytes together with every option that changes
// the prompt, so the same file analyzed for another platform misses.
func requestKey(req Request) string {
	h := sha256.New()
	// Length prefix keeps the data/options boundary unambiguous.
	binary.Write(h, binary.LittleEndian, int64(len(req.Data)))
	h.Write(req.Data)
	opts, _ := json.Marshal(struct {
		MIMEType    string
		Platform    stock.Platform
		Mode        stock.Mode
		Targets     Targets
		Instruction string
	}{req.MIMEType, req.Platform, req.Mode, req.Targets.WithDefaults(), req.Instruction})
	h.Write(opts)
	return hex.EncodeToString(h.Sum(nil))
}

// Analyze implements the Analyzer interface with caching.
func (c *CachedAnalyzer) Analyze(ctx context.Context, req Request) (*AnalysisResult, error) {
	key := requestKey(req)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(key)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Debug().Str("hash", key[:16]).Msg("vision cache hit")
			return &AnalysisResult{
				Result: &stock.Result{
					Title:       cached.Title,
					Description: cached.Description,
					Keywords:    cached.Keywords,
					Prompt:      cached.Prompt,
					BaseModel:   cached.BaseModel,
					Categories:  cached.Categories,
				},
			}, nil
		}
	}

	result, err := c.inner.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result.Result != nil {
		r := result.Result
		entry := &storage.VisionCacheEntry{
			Title:       r.Title,
			Description: r.Description,
			Keywords:    r.Keywords,
			Prompt:      r.Prompt,
			BaseModel:   r.BaseModel,
			Categories:  r.Categories,
		}
		if err := c.store.SetVisionCache(key, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", key[:16]).Msg("cached vision result")
		}
	}

	return result, nil
}
