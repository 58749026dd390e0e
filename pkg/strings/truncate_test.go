package strings

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "hello",
			maxLen:   10,
			expected: "hello",
		},
		{
			name:     "exact length unchanged",
			input:    "hello",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "long string truncated with ellipsis",
			input:    "hello world this is long",
			maxLen:   10,
			expected: "hello w...",
		},
		{
			name:     "newlines collapsed to spaces",
			input:    "line one\nline two",
			maxLen:   50,
			expected: "line one line two",
		},
		{
			name:     "whitespace runs collapsed",
			input:    "too   many\t\tspaces",
			maxLen:   50,
			expected: "too many spaces",
		},
		{
			name:     "maxLen clamped to minimum",
			input:    "abcdefgh",
			maxLen:   1,
			expected: "a...",
		},
		{
			name:     "unicode not split mid-rune",
			input:    "héllo wörld éxtra",
			maxLen:   10,
			expected: "héllo w...",
		},
		{
			name:     "empty string",
			input:    "",
			maxLen:   10,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.maxLen)
			if got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
