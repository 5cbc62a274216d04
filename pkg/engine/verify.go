package engine

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/Prasadchowdar/SentinelQA/pkg/logging"
)

// VerificationResult is the structured verdict of one typed assertion.
type VerificationResult struct {
	Passed       bool       `json:"passed"`
	Assertion    string     `json:"assertion"`
	VerifyType   VerifyType `json:"verify_type"`
	Expected     string     `json:"expected"`
	Actual       string     `json:"actual"`
	Confidence   Confidence `json:"confidence"`
	Reason       string     `json:"reason"`
	SelectorUsed string     `json:"selector_used"`
}

// VerificationEngine executes typed assertions against page state using
// the same multi-strategy locator resolution as actuation. Lookup and read
// failures are converted to failed results with a diagnostic reason; Verify
// never raises.
type VerificationEngine struct {
	page playwright.Page
	log  *logging.Logger
}

// NewVerificationEngine creates a verification engine for one page.
func NewVerificationEngine(page playwright.Page) *VerificationEngine {
	log, _ := logging.NewLogger("verify")
	return &VerificationEngine{page: page, log: log}
}

// Verify executes a verify action and returns its verdict.
func (v *VerificationEngine) Verify(action Action) (result *VerificationResult) {
	result = &VerificationResult{
		Passed:       false,
		Assertion:    action.Assertion,
		VerifyType:   action.VerifyType,
		Expected:     action.Expected,
		Confidence:   ConfidenceLow,
		SelectorUsed: action.Selector,
	}
	if result.Assertion == "" {
		result.Assertion = fmt.Sprintf("Verify %s", action.VerifyType)
	}

	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Reason = fmt.Sprintf("Verification error: %v", r)
			result.Confidence = ConfidenceLow
			v.log.Errorf("VERIFY ERROR: %s", result.Reason)
		}
	}()

	// URL verification needs no element resolution; the URL is reliable.
	if action.VerifyType == VerifyURLContains {
		checkURLContains(v.page.URL(), action.Expected, result)
		v.logResult(result)
		return result
	}

	locator, tried := v.resolveLocator(action, result)

	// not_visible treats an unresolvable element as passing.
	if locator == nil && action.VerifyType == VerifyNotVisible {
		result.Passed = true
		result.Actual = "not present"
		result.Reason = "Element not present in DOM (good)"
		v.logResult(result)
		return result
	}

	if locator == nil {
		result.Reason = fmt.Sprintf("Element not found. Tried selectors: %s", strings.Join(tried, ", "))
		result.Confidence = ConfidenceLow
		v.log.Warnf("VERIFY failed: %s", result.Reason)
		return result
	}

	v.check(locator, action, result)
	v.logResult(result)
	return result
}

// resolveLocator tries the provided selector, then a text search for the
// expected value, then an aria-label fallback. Returns nil when nothing
// resolved, along with the list of strategies tried.
func (v *VerificationEngine) resolveLocator(action Action, result *VerificationResult) (playwright.Locator, []string) {
	var tried []string

	if action.Selector != "" {
		locator := v.page.Locator(action.Selector)
		count, err := locator.Count()
		switch {
		case err != nil:
			tried = append(tried, fmt.Sprintf("%s (invalid)", action.Selector))
		case count == 0:
			tried = append(tried, fmt.Sprintf("%s (not found)", action.Selector))
		default:
			result.Confidence = ConfidenceHigh // direct selector match
			return locator, tried
		}
	}

	if action.Expected != "" {
		textLocator := v.page.GetByText(action.Expected, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(false),
		})
		if count, err := textLocator.Count(); err == nil && count > 0 {
			result.SelectorUsed = fmt.Sprintf("text='%s'", action.Expected)
			result.Confidence = ConfidenceMedium
			return textLocator, tried
		}
		tried = append(tried, fmt.Sprintf("text='%s' (not found)", action.Expected))

		ariaSelector := fmt.Sprintf(`[aria-label*=%q i]`, action.Expected)
		ariaLocator := v.page.Locator(ariaSelector)
		if count, err := ariaLocator.Count(); err == nil && count > 0 {
			result.SelectorUsed = ariaSelector
			result.Confidence = ConfidenceMedium
			return ariaLocator, tried
		}
		tried = append(tried, fmt.Sprintf("%s (not found)", ariaSelector))
	}

	return nil, tried
}

// checkURLContains evaluates url_contains against the current URL,
// case-insensitive.
func checkURLContains(currentURL, expected string, result *VerificationResult) {
	result.Actual = currentURL
	result.Passed = strings.Contains(strings.ToLower(currentURL), strings.ToLower(expected))
	result.Confidence = ConfidenceHigh
	if result.Passed {
		result.Reason = fmt.Sprintf("URL contains %q", expected)
	} else {
		result.Reason = fmt.Sprintf("URL does not contain %q", expected)
	}
}

// check applies the typed assertion against the resolved locator.
func (v *VerificationEngine) check(locator playwright.Locator, action Action, result *VerificationResult) {
	switch action.VerifyType {
	case VerifyExists:
		count, err := locator.Count()
		if err != nil {
			result.Reason = fmt.Sprintf("Error counting elements: %v", err)
			return
		}
		result.Passed = count > 0
		result.Actual = fmt.Sprintf("%d element(s) found", count)
		if result.Passed {
			result.Reason = "Element exists"
		} else {
			result.Reason = "Element not found in DOM"
		}

	case VerifyVisible:
		visible, err := locator.First().IsVisible()
		if err != nil {
			result.Actual = "not found"
			result.Reason = "Could not check visibility"
			return
		}
		result.Passed = visible
		if visible {
			result.Actual = "visible"
			result.Reason = "Element is visible"
		} else {
			result.Actual = "not visible"
			result.Reason = "Element exists but not visible"
		}

	case VerifyNotVisible:
		// Checks that a spinner is gone, a modal closed, an error absent.
		count, err := locator.Count()
		if err != nil || count == 0 {
			result.Passed = true
			result.Actual = "not present"
			result.Reason = "Element not present in DOM (good)"
			return
		}
		visible, err := locator.First().IsVisible()
		if err != nil {
			result.Passed = true
			result.Actual = "not found"
			result.Reason = "Element not found (treated as not visible)"
			return
		}
		result.Passed = !visible
		if result.Passed {
			result.Actual = "hidden"
			result.Reason = "Element hidden"
		} else {
			result.Actual = "still visible"
			result.Reason = "Element still visible (should be hidden)"
		}

	case VerifyEnabled:
		enabled, err := locator.First().IsEnabled()
		if err != nil {
			result.Actual = "unknown"
			result.Reason = "Could not check enabled state"
			return
		}
		result.Passed = enabled
		if enabled {
			result.Actual = "enabled"
			result.Reason = "Element is clickable"
		} else {
			result.Actual = "disabled"
			result.Reason = "Element is disabled"
		}

	case VerifyTextContains:
		text, err := locator.First().InnerText()
		if err != nil {
			result.Actual = "could not read text"
			result.Reason = fmt.Sprintf("Error reading text: %v", err)
			return
		}
		result.Actual = truncate(text, 100)
		result.Passed = strings.Contains(strings.ToLower(text), strings.ToLower(action.Expected))
		if result.Passed {
			result.Reason = fmt.Sprintf("Text contains %q", action.Expected)
		} else {
			result.Reason = fmt.Sprintf("Text does not contain %q", action.Expected)
		}

	case VerifyTextEquals:
		text, err := locator.First().InnerText()
		if err != nil {
			result.Actual = "could not read text"
			result.Reason = fmt.Sprintf("Error reading text: %v", err)
			return
		}
		result.Actual = strings.TrimSpace(text)
		result.Passed = strings.EqualFold(strings.TrimSpace(action.Expected), strings.TrimSpace(text))
		if result.Passed {
			result.Reason = "Text matches exactly"
		} else {
			result.Reason = fmt.Sprintf("Text mismatch: got %q", result.Actual)
		}

	default:
		result.Reason = fmt.Sprintf("Unknown verification type: %s", action.VerifyType)
	}
}

func (v *VerificationEngine) logResult(result *VerificationResult) {
	status := "PASS"
	if !result.Passed {
		status = "FAIL"
	}
	v.log.Infof("VERIFY [%s] %s: %s - %s", result.Confidence, status, result.Assertion, result.Reason)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
