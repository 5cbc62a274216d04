package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckURLContains(t *testing.T) {
	tests := []struct {
		name       string
		currentURL string
		expected   string
		wantPass   bool
	}{
		{"path segment match", "https://x.com/thank-you", "thank-you", true},
		{"case insensitive", "https://x.com/Thank-You", "thank-you", true},
		{"no match", "https://x.com/cart", "thank-you", false},
		{"query match", "https://x.com/search?q=laptop", "q=laptop", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &VerificationResult{VerifyType: VerifyURLContains, Expected: tt.expected}
			checkURLContains(tt.currentURL, tt.expected, result)

			assert.Equal(t, tt.wantPass, result.Passed)
			assert.Equal(t, ConfidenceHigh, result.Confidence)
			assert.Equal(t, tt.currentURL, result.Actual)
			assert.NotEmpty(t, result.Reason)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}
