package stock

import (
	"regexp"
	"strings"
)

// bannedSymbols matches everything marketplaces reject in titles.
var bannedSymbols = regexp.MustCompile(`[^a-zA-Z0-9\s,.\-()]`)

// StripSymbols removes every character that is not an ASCII letter or digit,
// whitespace, comma, period, hyphen or parenthesis.
func StripSymbols(s string) string {
	return bannedSymbols.ReplaceAllString(s, "")
}

// NormalizeKeywords trims and lowercases keywords, drops empty entries and
// duplicates, and keeps at most max entries (max <= 0 keeps all).
func NormalizeKeywords(keywords []string, max int) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		kw = strings.Trim(kw, `"'.`)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// SplitKeywords splits a comma separated keyword string.
func SplitKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// TruncateWords keeps at most n words of s, joined by single spaces.
// n <= 0 keeps every word.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
