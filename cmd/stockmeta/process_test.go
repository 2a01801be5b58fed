package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/stockmeta/internal/batch"
	"github.com/raine/stockmeta/internal/export"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/session"
	"github.com/raine/stockmeta/internal/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type analyzerMock struct {
	mock.Mock
}

func (m *analyzerMock) Analyze(ctx context.Context, req llm.Request) (*llm.AnalysisResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*llm.AnalysisResult)
	return res, args.Error(1)
}

type sessionRecorder struct {
	last session.Record
}

func (s *sessionRecorder) UpsertSession(ctx context.Context, rec *session.Record) error {
	s.last = *rec
	return nil
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	assert.NoError(t, png.Encode(&buf, img))
	assert.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestProcessJob_Run(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "sunset.png")
	writePNG(t, photo)
	doc := filepath.Join(dir, "notes.pdf")
	assert.NoError(t, os.WriteFile(doc, []byte("%PDF-1.4"), 0o644))

	analyzer := new(analyzerMock)
	analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Platform == stock.PlatformShutterstock && req.Instruction == "warm tones"
	})).Return(&llm.AnalysisResult{
		Result: &stock.Result{Title: "Sunset over hills", Description: "Orange sky", Keywords: []string{"sunset", "sky"}},
		Usage:  llm.Usage{CostUSD: 0.001},
	}, nil).Once()

	outDir := filepath.Join(dir, "exports")
	sessions := &sessionRecorder{}
	job := processJob{
		analyzer: analyzer,
		sessions: sessions,
		sinks:    []export.Sink{export.DirSink{Root: outDir}},
		opts: batch.Options{
			Platform:    stock.PlatformShutterstock,
			Mode:        stock.ModeMetadata,
			Instruction: "warm tones",
		},
		out: io.Discard,
		now: func() time.Time { return time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC) },
	}

	report, err := job.run(context.Background(), []string{photo, doc})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Completed)
	assert.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0], "notes.pdf")

	want := filepath.Join(outDir, "shutterstock", "shutterstock-2026-07-04.csv")
	assert.Equal(t, []string{want}, report.Locations)
	data, err := os.ReadFile(want)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "Sunset over hills")

	assert.Equal(t, 1, sessions.last.ImagesProcessed)
	assert.NotNil(t, sessions.last.EndedAt)
	analyzer.AssertExpectations(t)
}

func TestProcessJob_AllFailedWritesNothing(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "a.png")
	writePNG(t, photo)

	analyzer := new(analyzerMock)
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	outDir := filepath.Join(dir, "exports")
	job := processJob{
		analyzer: analyzer,
		sessions: &sessionRecorder{},
		sinks:    []export.Sink{export.DirSink{Root: outDir}},
		opts:     batch.Options{Platform: stock.PlatformGeneral},
		out:      io.Discard,
	}

	report, err := job.run(context.Background(), []string{photo})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Failed)
	if assert.Len(t, report.Failed, 1) {
		assert.Contains(t, report.Failed[0].Error, "quota exceeded")
	}
	assert.Empty(t, report.Locations)
	assert.NoDirExists(t, outDir)
}

func TestProcessJob_NoUsableFiles(t *testing.T) {
	job := processJob{analyzer: new(analyzerMock), sessions: &sessionRecorder{}, out: io.Discard}

	_, err := job.run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.jpg")})

	assert.Error(t, err)
}
