package engine

import (
	"fmt"
	"strings"
	"time"
)

// Status is the tri-state result of a test run.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	// StatusInconclusive marks runs that completed without error but
	// performed zero verifications, so success cannot be confirmed.
	StatusInconclusive Status = "inconclusive"
)

// VerificationCounts aggregates the verify actions of one run.
type VerificationCounts struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// FailureEvidence captures the page at the moment of the first failure.
// At most one is stored per run.
type FailureEvidence struct {
	Step       int
	Elapsed    time.Duration
	Action     ActionKind
	Selector   string
	Screenshot []byte
	DOMSnippet string
}

// maxDOMSnippet bounds the DOM excerpt attached to failure evidence.
const maxDOMSnippet = 500

// FailureInfo is the serializable view of FailureEvidence carried on the
// outcome; the screenshot is persisted to disk and referenced by path.
type FailureInfo struct {
	Step           int        `json:"step"`
	ElapsedMs      int64      `json:"elapsed_ms"`
	Action         ActionKind `json:"action"`
	Selector       string     `json:"selector"`
	ScreenshotPath string     `json:"screenshot_path,omitempty"`
	DOMSnippet     string     `json:"dom_snippet,omitempty"`
}

// TestOutcome is the final result handed back to the dispatcher.
type TestOutcome struct {
	Status                  Status             `json:"status"`
	DurationMs              int64              `json:"duration_ms"`
	Summary                 string             `json:"summary"`
	BugSummary              string             `json:"bug_summary,omitempty"`
	Verifications           VerificationCounts `json:"verifications"`
	FailureInfo             *FailureInfo       `json:"failure_info,omitempty"`
	PlainEnglishExplanation string             `json:"plain_english_explanation,omitempty"`
	HealingSummary          HealingSummary     `json:"healing_summary"`
	VideoPath               string             `json:"video_path,omitempty"`
	ExecutionLog            []string           `json:"execution_log"`
}

// DeriveStatus computes the tri-state outcome status.
//
// fail:         an error occurred, an action failed, or at least one
//               verification did not pass.
// inconclusive: clean run with zero verifications.
// pass:         clean run with every verification passing.
func DeriveStatus(hadError, actionFailed bool, counts VerificationCounts) Status {
	if hadError || actionFailed || (counts.Total > 0 && counts.Passed < counts.Total) {
		return StatusFail
	}
	if counts.Total == 0 {
		return StatusInconclusive
	}
	return StatusPass
}

// verificationSummary renders the "x/y passed" block appended to run
// summaries when any verifications ran.
func verificationSummary(counts VerificationCounts) string {
	if counts.Total == 0 {
		return ""
	}
	s := fmt.Sprintf("\n\nVerification Results: %d/%d passed", counts.Passed, counts.Total)
	if counts.Passed < counts.Total {
		s += fmt.Sprintf(" (%d failed)", counts.Total-counts.Passed)
	}
	return s
}

// buildSummary assembles the human-readable run summary from the status,
// target, page title, verification block, and execution log.
func buildSummary(status Status, url, title string, counts VerificationCounts, executionLog []string) string {
	var head string
	switch status {
	case StatusPass:
		head = fmt.Sprintf("Successfully completed test on %s. Page title: %q.", url, title)
	case StatusInconclusive:
		head = fmt.Sprintf("Completed test on %s without verifications. Page title: %q.", url, title)
	default:
		head = fmt.Sprintf("Failed to complete test on %s.", url)
	}
	return head + verificationSummary(counts) + "\n" + strings.Join(executionLog, "\n")
}
