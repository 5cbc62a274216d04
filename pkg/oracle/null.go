package oracle

import (
	"context"
	"fmt"

	"github.com/Prasadchowdar/SentinelQA/pkg/engine"
)

// NullOracle is a failing DecisionOracle used in tests and when no API key
// is configured. Decide always degrades to a wait action.
type NullOracle struct{}

var _ engine.DecisionOracle = (*NullOracle)(nil)

// Decide returns the degraded wait action.
func (NullOracle) Decide(ctx context.Context, req engine.DecideRequest) engine.Action {
	return engine.WaitAction("oracle not configured")
}

// SuggestSelector always fails.
func (NullOracle) SuggestSelector(ctx context.Context, req engine.HealRequest) (*engine.SelectorSuggestion, error) {
	return nil, fmt.Errorf("oracle not configured")
}

// ExplainFailure always fails.
func (NullOracle) ExplainFailure(ctx context.Context, req engine.ExplainRequest) (string, error) {
	return "", fmt.Errorf("oracle not configured")
}
