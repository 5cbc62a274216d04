// Package engine implements the SentinelQA test execution core: a bounded
// control loop that perceives page state, asks a decision oracle for the
// next action, executes it with multi-strategy selector resolution and
// self-healing, and verifies typed assertions against the live page.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind identifies one of the closed set of actions the oracle may
// request. Unknown kinds are rejected at the oracle boundary.
type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionPress    ActionKind = "press"
	ActionNavigate ActionKind = "navigate"
	ActionWait     ActionKind = "wait"
	ActionVerify   ActionKind = "verify"
	ActionComplete ActionKind = "complete"
)

// VerifyType identifies a typed assertion against page state.
type VerifyType string

const (
	VerifyExists       VerifyType = "exists"
	VerifyVisible      VerifyType = "visible"
	VerifyNotVisible   VerifyType = "not_visible"
	VerifyEnabled      VerifyType = "enabled"
	VerifyTextContains VerifyType = "text_contains"
	VerifyTextEquals   VerifyType = "text_equals"
	VerifyURLContains  VerifyType = "url_contains"
)

// Action is one decision returned by the oracle. Selector is a locator
// hint: either a CSS selector or a "text="-prefixed literal. The meaning
// of Value depends on the kind (typed text, key name, or URL).
type Action struct {
	Kind      ActionKind `json:"action"`
	Selector  string     `json:"selector,omitempty"`
	Value     string     `json:"value,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`

	// Verify-only fields
	VerifyType VerifyType `json:"verify_type,omitempty"`
	Expected   string     `json:"expected,omitempty"`
	Assertion  string     `json:"assertion,omitempty"`
}

// WaitAction builds the degraded action used when the oracle response
// cannot be used; the loop never raises on a bad oracle response.
func WaitAction(reason string) Action {
	return Action{Kind: ActionWait, Reasoning: reason}
}

var validKinds = map[ActionKind]bool{
	ActionClick:    true,
	ActionType:     true,
	ActionPress:    true,
	ActionNavigate: true,
	ActionWait:     true,
	ActionVerify:   true,
	ActionComplete: true,
}

var validVerifyTypes = map[VerifyType]bool{
	VerifyExists:       true,
	VerifyVisible:      true,
	VerifyNotVisible:   true,
	VerifyEnabled:      true,
	VerifyTextContains: true,
	VerifyTextEquals:   true,
	VerifyURLContains:  true,
}

// ParseAction decodes an oracle response into an Action. The response may
// be wrapped in triple-backtick fences (optionally tagged json); the
// wrapper is stripped before parsing. Unknown action kinds and unknown
// verify types are rejected here, at the boundary, rather than deep in
// execution.
func ParseAction(raw string) (Action, error) {
	content := StripCodeFences(raw)

	var action Action
	if err := json.Unmarshal([]byte(content), &action); err != nil {
		return Action{}, fmt.Errorf("response was not valid JSON: %w", err)
	}

	if !validKinds[action.Kind] {
		return Action{}, fmt.Errorf("unknown action kind %q", action.Kind)
	}

	if action.Kind == ActionVerify {
		if action.VerifyType == "" {
			action.VerifyType = VerifyExists
		}
		if !validVerifyTypes[action.VerifyType] {
			return Action{}, fmt.Errorf("unknown verify type %q", action.VerifyType)
		}
		if action.Assertion == "" {
			action.Assertion = fmt.Sprintf("Verify %s", action.VerifyType)
		}
	}

	return action, nil
}

// StripCodeFences removes a markdown code-fence wrapper from model output,
// tolerating an optional language tag on the opening fence.
func StripCodeFences(s string) string {
	content := strings.TrimSpace(s)

	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
	} else {
		return content
	}

	if end := strings.Index(content, "```"); end >= 0 {
		content = content[:end]
	}
	return strings.TrimSpace(content)
}

// Describe renders the action as the human-readable history entry fed back
// to the oracle to discourage repetition.
func (a Action) Describe() string {
	reasoning := a.Reasoning
	if len(reasoning) > 50 {
		reasoning = reasoning[:50]
	}
	if a.Kind == ActionVerify {
		return fmt.Sprintf("verify: %s", a.Assertion)
	}
	return fmt.Sprintf("%s on '%s' - %s", a.Kind, a.Selector, reasoning)
}
