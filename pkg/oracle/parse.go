package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/Prasadchowdar/SentinelQA/pkg/engine"
)

// ParseSuggestion decodes a visual-healing response, tolerating code-fence
// wrapping the same way action responses do.
func ParseSuggestion(raw string) (*engine.SelectorSuggestion, error) {
	content := engine.StripCodeFences(raw)

	var suggestion engine.SelectorSuggestion
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		return nil, fmt.Errorf("response was not valid JSON: %w", err)
	}
	if suggestion.Selector == "" {
		return nil, fmt.Errorf("response contained no selector")
	}

	switch suggestion.Confidence {
	case engine.ConfidenceLow, engine.ConfidenceMedium, engine.ConfidenceHigh:
	default:
		suggestion.Confidence = engine.ConfidenceLow
	}

	return &suggestion, nil
}
