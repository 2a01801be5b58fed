package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripSymbols(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain title unchanged", "Red apple on a table", "Red apple on a table"},
		{"allowed punctuation kept", "Sunset (beach), v2.0 - wide", "Sunset (beach), v2.0 - wide"},
		{"banned symbols removed", "Happy #Diwali! 50% off & more @home", "Happy Diwali 50 off  more home"},
		{"quotes and colons removed", `"Best" coffee: espresso`, "Best coffee espresso"},
		{"non-ascii letters removed", "Café crème brûlée", "Caf crme brle"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSymbols(tt.input))
		})
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Cat", "dog", "CAT", "", "  ", "\"bird\"", "fish"}, 0)
	assert.Equal(t, []string{"cat", "dog", "bird", "fish"}, got)

	got = NormalizeKeywords([]string{"a", "b", "c"}, 2)
	assert.Equal(t, []string{"a", "b"}, got)

	assert.Empty(t, NormalizeKeywords(nil, 5))
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"cat", " dog"}, SplitKeywords("cat, dog"))
	assert.Nil(t, SplitKeywords("  "))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two", TruncateWords("one two three", 2))
	assert.Equal(t, "one two three", TruncateWords("one  two three", 0))
	assert.Equal(t, "short", TruncateWords("short", 10))
}
