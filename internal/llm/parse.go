package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/raine/stockmeta/internal/stock"
)

// fencedJSON matches a JSON object inside a markdown code fence.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. Returns the extracted JSON string or an error.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// keywordList accepts keywords as a JSON array or a comma separated string.
type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("keywords must be an array or a string: %w", err)
	}
	*k = stock.SplitKeywords(s)
	return nil
}

type rawResponse struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Keywords    keywordList `json:"keywords"`
	Prompt      string      `json:"prompt"`
	BaseModel   string      `json:"baseModel"`
}

// ParseResponse turns the model's reply into a cleaned Result for req's
// platform: symbols stripped from the title, keywords normalized and
// capped, categories suggested where the platform needs them.
func ParseResponse(text string, req Request) (*stock.Result, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	if req.Mode == stock.ModePrompt {
		prompt := strings.TrimSpace(raw.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("response has no prompt")
		}
		return &stock.Result{Prompt: prompt}, nil
	}

	t := req.Targets.WithDefaults()
	res := &stock.Result{
		Title:       stock.TruncateWords(stock.StripSymbols(raw.Title), t.TitleMaxWords),
		Description: stock.TruncateWords(raw.Description, t.DescriptionMaxWords),
		Keywords:    stock.NormalizeKeywords(raw.Keywords, t.KeywordMax),
	}
	if res.Title == "" {
		return nil, fmt.Errorf("response has no title")
	}
	if req.Platform == stock.PlatformFreepik {
		res.Prompt = strings.TrimSpace(raw.Prompt)
		res.BaseModel = strings.TrimSpace(raw.BaseModel)
	}
	res.Categories = stock.SuggestCategories(req.Platform, res)
	return res, nil
}
