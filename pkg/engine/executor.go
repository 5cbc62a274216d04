package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/Prasadchowdar/SentinelQA/pkg/logging"
)

// Per-operation timeouts, in milliseconds.
const (
	clickTimeout     = 5000.0
	fallbackTimeout  = 3000.0
	fillTimeout      = 5000.0
	navigateTimeout  = 30000.0
	waitTimeout      = 5000.0
	settleBeforeType = 500.0
	settleAfterPress = 1000.0
	genericPause     = 2000.0
	domReadyTimeout  = 5000.0
)

// Executor performs actuation actions against the live page, resolving
// selectors through ordered fallback chains. Every failure mode is folded
// into a boolean result; nothing propagates out of Execute.
type Executor struct {
	page   playwright.Page
	healer *SelfHealingEngine
	log    *logging.Logger
}

// NewExecutor creates an executor for one page. The healer is optional;
// when present it is consulted after the primary selector strategies fail.
func NewExecutor(page playwright.Page, healer *SelfHealingEngine) *Executor {
	log, _ := logging.NewLogger("executor")
	return &Executor{page: page, healer: healer, log: log}
}

// Execute performs an actuation action and reports whether it succeeded.
// Verify actions belong to the VerificationEngine and are rejected here;
// complete is a no-op signaling loop termination.
func (e *Executor) Execute(ctx context.Context, action Action) (ok bool) {
	// Playwright driver calls can panic on a dead connection; an action
	// failure must never take down the run loop.
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("action execution panicked: %v", r)
			ok = false
		}
	}()

	e.log.Infof("executing action: %s on %q", action.Kind, action.Selector)

	switch action.Kind {
	case ActionClick:
		return e.executeClick(ctx, action)
	case ActionType:
		return e.executeType(ctx, action)
	case ActionPress:
		return e.executePress(action)
	case ActionNavigate:
		return e.executeNavigate(action)
	case ActionWait:
		return e.executeWait(action)
	case ActionComplete:
		return true
	default:
		e.log.Warnf("executor received unsupported action kind %q", action.Kind)
		return false
	}
}

// executeClick resolves and clicks the target, then waits for the DOM to
// settle (non-fatal if that wait times out).
func (e *Executor) executeClick(ctx context.Context, action Action) bool {
	var clicked bool
	if strings.HasPrefix(action.Selector, "text=") {
		clicked = e.clickByText(strings.TrimPrefix(action.Selector, "text="))
	} else {
		clicked = e.clickBySelector(ctx, action)
	}
	if !clicked {
		return false
	}

	if err := e.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(domReadyTimeout),
	}); err != nil {
		e.log.Debugf("DOM not ready after click: %v", err)
	}
	return true
}

// clickByText clicks the first visible element matching the literal text,
// cascading through derived CSS selectors, accessible-role lookup, and a
// last-resort click on the first DOM match.
func (e *Executor) clickByText(text string) bool {
	locator := e.page.GetByText(text, playwright.PageGetByTextOptions{
		Exact: playwright.Bool(false),
	})

	count, err := locator.Count()
	if err != nil {
		count = 0
	}
	for i := 0; i < count; i++ {
		element := locator.Nth(i)
		visible, err := element.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := element.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(clickTimeout)}); err == nil {
			return true
		}
	}

	e.log.Infof("text %q not found visible, trying derived fallbacks", text)
	for _, selector := range derivedClickFallbacks(text) {
		if e.tryClickSelector(selector, fallbackTimeout) {
			e.log.Infof("fallback selector worked: %s", selector)
			return true
		}
	}

	// Accessible-role lookup by name, buttons before links.
	for _, role := range []playwright.AriaRole{*playwright.AriaRoleButton, *playwright.AriaRoleLink} {
		roleLocator := e.page.GetByRole(role, playwright.PageGetByRoleOptions{Name: text})
		if n, err := roleLocator.Count(); err == nil && n > 0 {
			if err := roleLocator.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(fallbackTimeout)}); err == nil {
				e.log.Infof("role lookup (%s, name=%q) worked", role, text)
				return true
			}
		}
	}

	// Last resort: click the first DOM match regardless of visibility.
	e.log.Warnf("all fallbacks failed for %q, clicking first text match", text)
	return locator.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(clickTimeout)}) == nil
}

// derivedClickFallbacks builds the ordered CSS fallback cascade for a
// text-based click target.
func derivedClickFallbacks(text string) []string {
	textLower := strings.ToLower(strings.TrimSpace(text))
	return []string{
		// Aria-label contains the text (most accessible)
		fmt.Sprintf(`button[aria-label*=%q i]`, text),
		fmt.Sprintf(`a[aria-label*=%q i]`, text),
		fmt.Sprintf(`[aria-label*=%q i]`, text),

		// Title attribute contains the text
		fmt.Sprintf(`[title*=%q i]`, text),

		// Role-based selectors
		fmt.Sprintf(`[role="button"][aria-label*=%q i]`, text),
		fmt.Sprintf(`[role="link"][aria-label*=%q i]`, text),

		// Data attributes (common pattern)
		fmt.Sprintf(`[data-action*=%q]`, textLower),
		fmt.Sprintf(`[data-test*=%q]`, textLower),
		fmt.Sprintf(`[data-testid*=%q]`, textLower),

		// ID or class contains the text
		"#" + textLower,
		fmt.Sprintf(`[id*=%q]`, textLower),
		fmt.Sprintf(`[class*=%q]`, textLower),

		// Links with href containing the text
		fmt.Sprintf(`a[href*=%q]`, textLower),

		// Buttons/links with child images whose alt contains the text
		fmt.Sprintf(`button:has([alt*=%q i])`, text),
		fmt.Sprintf(`a:has([alt*=%q i])`, text),
	}
}

// tryClickSelector clicks the first match of a selector if it is visible.
func (e *Executor) tryClickSelector(selector string, timeout float64) bool {
	locator := e.page.Locator(selector).First()
	count, err := locator.Count()
	if err != nil || count == 0 {
		return false
	}
	visible, err := locator.IsVisible()
	if err != nil || !visible {
		return false
	}
	return locator.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(timeout)}) == nil
}

// clickBySelector clicks a plain CSS selector: the first visible match when
// several elements match, then a bare click attempt, then a healed selector.
func (e *Executor) clickBySelector(ctx context.Context, action Action) bool {
	locator := e.page.Locator(action.Selector)
	count, err := locator.Count()
	if err != nil {
		count = 0
	}

	if count > 1 {
		e.log.Infof("found %d elements for %q, looking for a visible one", count, action.Selector)
		for i := 0; i < count; i++ {
			element := locator.Nth(i)
			visible, err := element.IsVisible()
			if err != nil || !visible {
				continue
			}
			if err := element.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(clickTimeout)}); err == nil {
				return true
			}
		}
	}

	if err := e.page.Click(action.Selector, playwright.PageClickOptions{Timeout: playwright.Float(clickTimeout)}); err == nil {
		return true
	}

	if e.healer != nil {
		result := e.healer.Heal(ctx, HealingContext{
			Selector:  action.Selector,
			Reasoning: action.Reasoning,
			Value:     action.Value,
		})
		if result.Found {
			return e.page.Locator(result.Selector).First().Click(
				playwright.LocatorClickOptions{Timeout: playwright.Float(clickTimeout)}) == nil
		}
	}
	return false
}

// inputFallbacks is the generic input cascade used when the requested
// selector does not resolve to a fillable element.
var inputFallbacks = []string{
	`input[type="search"]`,
	`input[name="search"]`,
	`input[placeholder*="search" i]`,
	`input[aria-label*="search" i]`,
	`[role="search"] input`,
	`[role="searchbox"]`,
	`input:visible`, // last resort: any visible input
}

// executeType fills the target input, cascading through generic input
// fallbacks and a healed selector before a final direct fill attempt.
func (e *Executor) executeType(ctx context.Context, action Action) bool {
	// Let transient animations settle before locating the input.
	e.page.WaitForTimeout(settleBeforeType)

	locator := e.page.Locator(action.Selector).First()
	if count, err := locator.Count(); err == nil && count > 0 {
		if visible, err := locator.IsVisible(); err == nil && visible {
			if err := locator.Fill(action.Value, playwright.LocatorFillOptions{Timeout: playwright.Float(fillTimeout)}); err == nil {
				return true
			}
		}
	}

	e.log.Infof("selector %q not fillable, trying input fallbacks", action.Selector)
	for _, selector := range inputFallbacks {
		fallback := e.page.Locator(selector).First()
		count, err := fallback.Count()
		if err != nil || count == 0 {
			continue
		}
		visible, err := fallback.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := fallback.Fill(action.Value, playwright.LocatorFillOptions{Timeout: playwright.Float(fallbackTimeout)}); err == nil {
			e.log.Infof("fallback input worked: %s", selector)
			return true
		}
	}

	if e.healer != nil {
		result := e.healer.Heal(ctx, HealingContext{
			Selector:  action.Selector,
			Reasoning: action.Reasoning,
			Value:     action.Value,
		})
		if result.Found {
			if err := e.page.Locator(result.Selector).First().Fill(action.Value,
				playwright.LocatorFillOptions{Timeout: playwright.Float(fillTimeout)}); err == nil {
				return true
			}
		}
	}

	// Final direct attempt with the original selector.
	return e.page.Fill(action.Selector, action.Value, playwright.PageFillOptions{Timeout: playwright.Float(fillTimeout)}) == nil
}

// executePress dispatches a literal key, waits for any triggered action,
// then best-effort waits for the DOM (not all keys navigate).
func (e *Executor) executePress(action Action) bool {
	key := strings.TrimSpace(action.Value)
	if err := e.page.Keyboard().Press(key); err != nil {
		e.log.Errorf("key press %q failed: %v", key, err)
		return false
	}

	e.page.WaitForTimeout(settleAfterPress)
	if err := e.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(domReadyTimeout),
	}); err != nil {
		e.log.Debugf("DOM not ready after key press: %v", err)
	}
	return true
}

// executeNavigate goes to the URL and waits for the network to go idle.
func (e *Executor) executeNavigate(action Action) bool {
	if _, err := e.page.Goto(action.Value, playwright.PageGotoOptions{
		Timeout: playwright.Float(navigateTimeout),
	}); err != nil {
		e.log.Errorf("navigation to %q failed: %v", action.Value, err)
		return false
	}
	if err := e.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		e.log.Errorf("network idle wait failed after navigation: %v", err)
		return false
	}
	return true
}

// executeWait waits for a selector when given one, else pauses briefly.
func (e *Executor) executeWait(action Action) bool {
	if action.Selector != "" {
		if _, err := e.page.WaitForSelector(action.Selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(waitTimeout),
		}); err != nil {
			e.log.Warnf("wait for %q failed: %v", action.Selector, err)
			return false
		}
		return true
	}
	e.page.WaitForTimeout(genericPause)
	return true
}
