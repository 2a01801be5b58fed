package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raine/stockmeta/internal/account"
	"github.com/raine/stockmeta/internal/imaging"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/stock"
	"github.com/rs/zerolog/log"
)

// DelayBetweenCalls is the pause between two consecutive analyzer calls.
const DelayBetweenCalls = 2 * time.Second

// CreditGate is consulted before every analyzer call.
type CreditGate interface {
	Consume(ctx context.Context, userID string) (*account.UserProfile, error)
	Refund(ctx context.Context, userID string) error
}

// Options configure one run.
type Options struct {
	Platform    stock.Platform
	Mode        stock.Mode
	Targets     llm.Targets
	Instruction string
	// UserID is charged one credit per call. Empty skips the credit gate.
	UserID string
	// OnUpdate is called after every status change.
	OnUpdate func(img stock.Image)
}

// Summary counts what a run did.
type Summary struct {
	Completed int
	Failed    int
	CostUSD   float64
}

// Processor analyzes the pending images of a queue sequentially.
type Processor struct {
	analyzer llm.Analyzer
	gate     CreditGate
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a processor. gate may be nil.
func NewProcessor(analyzer llm.Analyzer, gate CreditGate) *Processor {
	return &Processor{
		analyzer: analyzer,
		gate:     gate,
		delay:    DelayBetweenCalls,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run processes pending images in upload order until none are left. Each
// image moves pending -> processing -> complete or error; analyzer failures
// only fail their image. Images removed from the queue before their turn
// are skipped. Run stops early, leaving the rest pending, when ctx is
// canceled or the credit gate refuses a call.
func (p *Processor) Run(ctx context.Context, q *Queue, opts Options) (Summary, error) {
	var summary Summary
	notify := func(img stock.Image, ok bool) {
		if ok && opts.OnUpdate != nil {
			opts.OnUpdate(img)
		}
	}

	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		// Rate limit between calls
		if processed > 0 && q.hasPending() {
			if err := p.sleep(ctx, p.delay); err != nil {
				return summary, err
			}
		}

		img, ok := q.claimNext()
		if !ok {
			break
		}
		notify(img, true)

		if p.gate != nil && opts.UserID != "" {
			if _, err := p.gate.Consume(ctx, opts.UserID); err != nil {
				notify(q.release(img.ID))
				return summary, fmt.Errorf("credit check failed: %w", err)
			}
		}

		processed++
		res, usage, err := p.analyze(ctx, img, opts)
		if err != nil {
			log.Error().Err(err).Str("imageId", img.ID).Str("name", img.Name).Msg("image analysis failed")
			p.refund(ctx, opts.UserID)
			summary.Failed++
			notify(q.fail(img.ID, err))
			continue
		}

		summary.Completed++
		summary.CostUSD += usage.CostUSD
		log.Info().Str("imageId", img.ID).Str("name", img.Name).Int("keywords", len(res.Keywords)).Msg("image analyzed")
		notify(q.complete(img.ID, res))
	}

	log.Info().
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Float64("costUSD", summary.CostUSD).
		Msg("batch complete")
	return summary, nil
}

func (p *Processor) analyze(ctx context.Context, img stock.Image, opts Options) (*stock.Result, llm.Usage, error) {
	data, mimeType, err := imaging.Prepare(img.Data, img.MIMEType)
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("failed to prepare file: %w", err)
	}

	result, err := p.analyzer.Analyze(ctx, llm.Request{
		Data:        data,
		MIMEType:    mimeType,
		Platform:    opts.Platform,
		Mode:        opts.Mode,
		Targets:     opts.Targets,
		Instruction: opts.Instruction,
	})
	if err != nil {
		return nil, llm.Usage{}, err
	}
	if result == nil || result.Result == nil {
		return nil, llm.Usage{}, errors.New("analyzer returned no result")
	}
	return result.Result, result.Usage, nil
}

func (p *Processor) refund(ctx context.Context, userID string) {
	if p.gate == nil || userID == "" {
		return
	}
	// The call may have failed because ctx was canceled; the refund must
	// still reach the store.
	if err := p.gate.Refund(context.WithoutCancel(ctx), userID); err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("failed to refund credit")
	}
}
