package llm

import (
	"context"

	"github.com/raine/stockmeta/internal/stock"
)

// Targets are the length limits embedded in the prompt.
type Targets struct {
	TitleMinWords       int `json:"titleMinWords" yaml:"title_min_words"`
	TitleMaxWords       int `json:"titleMaxWords" yaml:"title_max_words"`
	KeywordMin          int `json:"keywordMin" yaml:"keyword_min"`
	KeywordMax          int `json:"keywordMax" yaml:"keyword_max"`
	DescriptionMinWords int `json:"descriptionMinWords" yaml:"description_min_words"`
	DescriptionMaxWords int `json:"descriptionMaxWords" yaml:"description_max_words"`
}

// DefaultTargets returns the limits used when the caller sets none.
func DefaultTargets() Targets {
	return Targets{
		TitleMinWords:       8,
		TitleMaxWords:       15,
		KeywordMin:          30,
		KeywordMax:          49,
		DescriptionMinWords: 10,
		DescriptionMaxWords: 30,
	}
}

// WithDefaults fills zero limits from DefaultTargets. An inverted pair set
// by the caller is swapped; a default that conflicts with the caller's
// bound is clamped to it.
func (t Targets) WithDefaults() Targets {
	d := DefaultTargets()
	fill := func(min, max *int, dmin, dmax int) {
		setMin, setMax := *min > 0, *max > 0
		if !setMin {
			*min = dmin
		}
		if !setMax {
			*max = dmax
		}
		if *min <= *max {
			return
		}
		switch {
		case setMin && setMax:
			*min, *max = *max, *min
		case setMax:
			*min = *max
		default:
			*max = *min
		}
	}
	fill(&t.TitleMinWords, &t.TitleMaxWords, d.TitleMinWords, d.TitleMaxWords)
	fill(&t.KeywordMin, &t.KeywordMax, d.KeywordMin, d.KeywordMax)
	fill(&t.DescriptionMinWords, &t.DescriptionMaxWords, d.DescriptionMinWords, d.DescriptionMaxWords)
	return t
}

// Request is a single analysis call.
type Request struct {
	Data     []byte
	MIMEType string
	Platform stock.Platform
	Mode     stock.Mode
	Targets  Targets
	// Instruction is optional free text appended to the prompt.
	Instruction string
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// AnalysisResult contains the generated metadata and usage information.
type AnalysisResult struct {
	Result *stock.Result
	Usage  Usage
}

// Analyzer generates stock metadata for an image or video.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*AnalysisResult, error)
}
