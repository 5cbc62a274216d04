package engine

import "context"

// Confidence tiers attached to verification verdicts and healed selectors.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// DecideRequest carries one perception of the page to the oracle.
type DecideRequest struct {
	Instruction string
	Screenshot  []byte
	PageHTML    string
	// History is the ordered list of human-readable descriptions of
	// completed actions, passed back each step to discourage repetition.
	History []string
}

// HealRequest asks the oracle for a best-guess selector when every
// heuristic healing strategy has failed.
type HealRequest struct {
	Screenshot     []byte
	FailedSelector string
	Reasoning      string
	Value          string
}

// SelectorSuggestion is the oracle's visual healing answer.
type SelectorSuggestion struct {
	Selector   string     `json:"selector"`
	Visible    bool       `json:"visible"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// ExplainRequest asks the oracle for a plain-language failure explanation.
type ExplainRequest struct {
	Instruction     string
	TechnicalReason string
	Step            int
}

// DecisionOracle abstracts the external vision-capable decision service.
//
// Decide never fails: implementations must fold transport errors and
// malformed responses into a degraded wait action carrying the failure
// reason as Reasoning, so the run loop never raises on a bad response.
type DecisionOracle interface {
	Decide(ctx context.Context, req DecideRequest) Action
	SuggestSelector(ctx context.Context, req HealRequest) (*SelectorSuggestion, error)
	ExplainFailure(ctx context.Context, req ExplainRequest) (string, error)
}
