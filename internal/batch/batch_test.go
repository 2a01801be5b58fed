package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/raine/stockmeta/internal/account"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/stock"
	"github.com/raine/stockmeta/internal/storage"
	"github.com/stretchr/testify/assert"
)

type fakeAnalyzer struct {
	calls    []llm.Request
	inFlight int
	maxSeen  int
	fail     map[int]error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req llm.Request) (*llm.AnalysisResult, error) {
	f.inFlight++
	defer func() { f.inFlight-- }()
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}

	f.calls = append(f.calls, req)
	if err := f.fail[len(f.calls)]; err != nil {
		return nil, err
	}
	return &llm.AnalysisResult{
		Result: &stock.Result{Title: fmt.Sprintf("title %d", len(f.calls)), Keywords: []string{"k"}},
		Usage:  llm.Usage{CostUSD: 0.01},
	}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestProcessor(a llm.Analyzer, gate CreditGate) (*Processor, *[]time.Duration) {
	var sleeps []time.Duration
	p := NewProcessor(a, gate)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return p, &sleeps
}

type transition struct {
	name   string
	status stock.Status
}

func TestRun_ThreeImagesSequentialWithTwoDelays(t *testing.T) {
	q := NewQueue()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := q.Add(name, pngBytes(t), "")
		assert.NoError(t, err)
	}

	analyzer := &fakeAnalyzer{}
	p, sleeps := newTestProcessor(analyzer, nil)

	var got []transition
	summary, err := p.Run(context.Background(), q, Options{
		Platform: stock.PlatformGeneral,
		OnUpdate: func(img stock.Image) { got = append(got, transition{img.Name, img.Status}) },
	})

	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{DelayBetweenCalls, DelayBetweenCalls}, *sleeps)
	assert.Equal(t, []transition{
		{"a.png", stock.StatusProcessing}, {"a.png", stock.StatusComplete},
		{"b.png", stock.StatusProcessing}, {"b.png", stock.StatusComplete},
		{"c.png", stock.StatusProcessing}, {"c.png", stock.StatusComplete},
	}, got)
	assert.Equal(t, 1, analyzer.maxSeen)
	assert.Equal(t, 3, summary.Completed)
	assert.InDelta(t, 0.03, summary.CostUSD, 1e-9)

	completed := q.Completed()
	assert.Len(t, completed, 3)
	assert.Equal(t, "title 1", completed[0].Result.Title)
}

func TestAdd_RejectsPDFBeforeAnalysis(t *testing.T) {
	q := NewQueue()
	analyzer := &fakeAnalyzer{}

	_, err := q.Add("doc.pdf", []byte("%PDF-1.4"), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, 0, q.Len())

	p, sleeps := newTestProcessor(analyzer, nil)
	_, err = p.Run(context.Background(), q, Options{})
	assert.NoError(t, err)
	assert.Empty(t, analyzer.calls)
	assert.Empty(t, *sleeps)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mime string
		size int64
		want error
	}{
		{"jpeg", "image/jpeg", 1024, nil},
		{"svg", "image/svg+xml", 1024, nil},
		{"video", "video/mp4", 50 << 20, nil},
		{"gif", "image/gif", 1024, ErrUnsupportedType},
		{"big image", "image/png", MaxImageSize + 1, ErrFileTooLarge},
		{"big video", "video/quicktime", MaxVideoSize + 1, ErrFileTooLarge},
		{"empty", "image/png", 0, ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mime, tt.size)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestRun_ErrorIsPerImage(t *testing.T) {
	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")
	q.Add("b.png", pngBytes(t), "")

	analyzer := &fakeAnalyzer{fail: map[int]error{1: errors.New("model overloaded")}}
	p, _ := newTestProcessor(analyzer, nil)

	summary, err := p.Run(context.Background(), q, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Completed)

	images := q.Images()
	assert.Equal(t, stock.StatusError, images[0].Status)
	assert.Equal(t, "model overloaded", images[0].Error)
	assert.Equal(t, stock.StatusComplete, images[1].Status)

	// A retried image is processed on the next run.
	assert.True(t, q.Retry(images[0].ID))
	_, err = p.Run(context.Background(), q, Options{})
	assert.NoError(t, err)
	assert.Len(t, q.Completed(), 2)
}

func TestRun_RemovedImageIsSkipped(t *testing.T) {
	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")
	b, _ := q.Add("b.png", pngBytes(t), "")
	q.Add("c.png", pngBytes(t), "")

	analyzer := &fakeAnalyzer{}
	p, sleeps := newTestProcessor(analyzer, nil)

	_, err := p.Run(context.Background(), q, Options{
		OnUpdate: func(img stock.Image) {
			if img.Name == "a.png" && img.Status == stock.StatusComplete {
				q.Remove(b.ID)
			}
		},
	})

	assert.NoError(t, err)
	assert.Len(t, analyzer.calls, 2)
	assert.Len(t, *sleeps, 1)
	assert.Equal(t, 2, q.Len())
}

func TestRun_PassesRequestOptions(t *testing.T) {
	q := NewQueue()
	q.Add("logo.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect width="10" height="10"/></svg>`), "")

	analyzer := &fakeAnalyzer{}
	p, _ := newTestProcessor(analyzer, nil)
	targets := llm.Targets{TitleMaxWords: 5}

	_, err := p.Run(context.Background(), q, Options{
		Platform:    stock.PlatformAdobeStock,
		Mode:        stock.ModeMetadata,
		Targets:     targets,
		Instruction: "flat icon",
	})

	assert.NoError(t, err)
	if assert.Len(t, analyzer.calls, 1) {
		req := analyzer.calls[0]
		assert.Equal(t, "image/png", req.MIMEType)
		assert.Equal(t, stock.PlatformAdobeStock, req.Platform)
		assert.Equal(t, targets, req.Targets)
		assert.Equal(t, "flat icon", req.Instruction)
	}
}

func TestRun_CanceledContextStopsBeforeNextImage(t *testing.T) {
	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")
	q.Add("b.png", pngBytes(t), "")

	ctx, cancel := context.WithCancel(context.Background())
	analyzer := &fakeAnalyzer{}
	p, _ := newTestProcessor(analyzer, nil)

	_, err := p.Run(ctx, q, Options{
		OnUpdate: func(img stock.Image) {
			if img.Status == stock.StatusComplete {
				cancel()
			}
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, analyzer.calls, 1)
	assert.Equal(t, stock.StatusPending, q.Images()[1].Status)
}

type fakeGate struct {
	left     int
	consumed int
	refunded int
}

func (g *fakeGate) Consume(ctx context.Context, userID string) (*account.UserProfile, error) {
	if g.left == 0 {
		return nil, account.ErrNoCredits
	}
	g.left--
	g.consumed++
	return &account.UserProfile{ID: userID}, nil
}

func (g *fakeGate) Refund(ctx context.Context, userID string) error {
	g.left++
	g.refunded++
	return nil
}

func TestRun_CreditGateStopsBatch(t *testing.T) {
	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")
	q.Add("b.png", pngBytes(t), "")

	gate := &fakeGate{left: 1}
	analyzer := &fakeAnalyzer{}
	p, _ := newTestProcessor(analyzer, gate)

	summary, err := p.Run(context.Background(), q, Options{UserID: "u1"})

	assert.ErrorIs(t, err, account.ErrNoCredits)
	assert.Equal(t, 1, summary.Completed)
	assert.Len(t, analyzer.calls, 1)
	assert.Equal(t, stock.StatusPending, q.Images()[1].Status)
}

func TestRun_FailedCallIsRefunded(t *testing.T) {
	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")

	gate := &fakeGate{left: 1}
	analyzer := &fakeAnalyzer{fail: map[int]error{1: errors.New("boom")}}
	p, _ := newTestProcessor(analyzer, gate)

	_, err := p.Run(context.Background(), q, Options{UserID: "u1"})

	assert.NoError(t, err)
	assert.Equal(t, 1, gate.consumed)
	assert.Equal(t, 1, gate.refunded)
	assert.Equal(t, 1, gate.left)
}

type cancelingAnalyzer struct {
	cancel context.CancelFunc
}

func (a cancelingAnalyzer) Analyze(ctx context.Context, req llm.Request) (*llm.AnalysisResult, error) {
	a.cancel()
	return nil, ctx.Err()
}

func TestRun_CanceledCallIsRefunded(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:", storage.DeriveKey("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	assert.NoError(t, store.SaveProfile(context.Background(), &account.UserProfile{ID: "u1", CreditsLimit: 5}))

	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, _ := newTestProcessor(cancelingAnalyzer{cancel: cancel}, account.NewGate(store))

	_, err = p.Run(ctx, q, Options{UserID: "u1"})

	assert.ErrorIs(t, err, context.Canceled)
	profile, err := store.GetProfile(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, profile.CreditsUsed)
}

func TestQueue_CompletedReturnsCopies(t *testing.T) {
	q := NewQueue()
	q.Add("a.png", pngBytes(t), "")
	p, _ := newTestProcessor(&fakeAnalyzer{}, nil)
	_, err := p.Run(context.Background(), q, Options{})
	assert.NoError(t, err)

	c := q.Completed()
	c[0].Name = "changed"
	assert.Equal(t, "a.png", q.Images()[0].Name)

	q.Clear()
	assert.Equal(t, 0, q.Len())
}
