package oracle

import (
	"fmt"
	"strings"
)

// maxHTMLContext caps the interactive-element summary embedded in the
// decision prompt.
const maxHTMLContext = 2000

const decideSystemPrompt = `You are an expert web automation assistant. Your job is to analyze a webpage screenshot and HTML, then determine the next action to take to complete the user's instruction.

IMPORTANT RULES:
1. Return ONLY valid JSON, no markdown, no explanations outside the JSON
2. Use simple, robust CSS selectors when possible
3. For text buttons/links, use text-based selectors (e.g., "text=Login")
4. If the task is complete, return action: "complete"
5. If unclear or element not found, return action: "wait" with reasoning
6. NEVER repeat an action that was already completed - choose a NEW action!

SELECTOR STRATEGIES (use in this priority order):
1. For ICONS (search, menu, close, cart, etc.) - Use element-AGNOSTIC aria-label selectors:
   - [aria-label*="search" i] - matches ANY element with aria-label containing "search"
   - [aria-label*="menu" i] - for menu icons (could be button, a, div, etc.)
   - [aria-label*="cart" i] or [aria-label*="bag" i] - for cart icons
   - [role="search"] - for search containers
   - a:has(svg), button:has(svg) - for icon links/buttons
   IMPORTANT: Do NOT use button[aria-label...] - use [aria-label...] without element type!

2. For BUTTONS/LINKS with visible text: text=Login, text=Submit, text=Sign In

3. For INPUT fields:
   - input[type="search"], input[name="search"], input[placeholder*="search" i]
   - input[type="email"], input[type="password"], input[name="email"]

4. For NAVIGATION links: text=Mac, text=iPad, nav a[href*="mac"]

5. CSS ID or class as last resort: #search-btn, .nav-search

Available actions:
- "click": Click an element (requires selector)
- "type": Type text into an input (requires selector and value)
- "press": Press a keyboard key (requires value like "Enter", "Tab", "Escape")
- "verify": Verify an assertion about the page (requires assertion details)
- "navigate": Navigate to a URL (requires value as URL)
- "wait": Wait for element or condition (requires selector)
- "complete": Task is done successfully

VERIFICATION (Critical for QA):
When you reach a goal state, ALWAYS add verification steps before marking complete!
For "verify" action, use this format:
{
    "action": "verify",
    "selector": "CSS selector for element to verify",
    "verify_type": "text_contains|text_equals|exists|visible|not_visible|enabled|url_contains",
    "expected": "expected value or text",
    "assertion": "Human-readable description of what you're verifying",
    "reasoning": "Why this verification matters"
}

Verification types:
- text_contains: Element text contains expected value
- text_equals: Element text exactly equals expected value
- exists: Element exists in DOM
- visible: Element is visible on page
- not_visible: Element is NOT visible (spinner gone, modal closed, error absent)
- enabled: Button/input is enabled and clickable
- url_contains: Current URL contains expected pattern

IMPORTANT: After typing in a SEARCH field, you should ALWAYS follow with a "press" action with value "Enter" to submit the search!

IMPORTANT: Before returning "complete", add at least 1-2 verification steps to PROVE the task succeeded!

Response format:
{
    "action": "click|type|press|verify|navigate|wait|complete",
    "selector": "CSS selector or text=",
    "value": "value for type/navigate/press actions",
    "verify_type": "for verify action only",
    "expected": "for verify action only",
    "assertion": "for verify action only",
    "reasoning": "Brief explanation of why this action"
}`

// buildHistoryContext renders the numbered "already completed" list with
// the explicit do-not-repeat instruction.
func buildHistoryContext(history []string) string {
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nACTIONS ALREADY COMPLETED (DO NOT REPEAT THESE):\n")
	for i, entry := range history {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entry)
	}
	b.WriteString("\nIMPORTANT: You must choose a DIFFERENT action/element from the ones above!\n")
	return b.String()
}

// buildDecidePrompt assembles the user turn of a decision request.
func buildDecidePrompt(instruction, pageHTML string, history []string) string {
	if len(pageHTML) > maxHTMLContext {
		pageHTML = pageHTML[:maxHTMLContext]
	}

	return fmt.Sprintf(`Instruction to complete: %q
%s
Analyze the screenshot and determine the NEXT SINGLE ACTION needed.

Here's a sample of the page HTML for context (showing key interactive elements):
`+"```html\n%s\n```"+`

COMPLETION DETECTION HINTS:
- If you see "success", "sent", "submitted", "thank you", or "confirmation" messages, the task is likely COMPLETE
- If you've already tested all items mentioned in the instruction, return "complete"
- If the instruction was to navigate somewhere and you're now there, return "complete"
- If the instruction was to submit a form and you see a success message, return "complete"
- CRITICAL: Check the "ACTIONS ALREADY COMPLETED" list above and DO NOT repeat any action!

Return your response as JSON only.`, instruction, buildHistoryContext(history), pageHTML)
}

const suggestSystemPrompt = `You are an expert web automation assistant helping to repair a broken element selector. Analyze the screenshot and reply with ONLY valid JSON:
{
    "selector": "best-guess CSS selector for the element the failed selector was targeting",
    "visible": true or false - whether that element is visible in the screenshot,
    "confidence": "low|medium|high",
    "reasoning": "brief explanation"
}`

// buildSuggestPrompt assembles the user turn of a visual healing request.
func buildSuggestPrompt(failedSelector, reasoning, value string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The selector %q failed to locate any element.\n", failedSelector)
	if reasoning != "" {
		fmt.Fprintf(&b, "The automation step intended: %s\n", reasoning)
	}
	if value != "" {
		fmt.Fprintf(&b, "Associated value: %q\n", value)
	}
	b.WriteString("Look at the screenshot and suggest a working CSS selector for the intended element. Return JSON only.")
	return b.String()
}

// buildExplainPrompt asks for a one-sentence plain-language failure summary.
func buildExplainPrompt(instruction, technical string, step int) string {
	return fmt.Sprintf(`A web UI test failed while executing this instruction: %q

Technical failure at step %d: %s

Explain in one plain-English sentence, for a non-technical reader, what went wrong. Reply with the sentence only.`, instruction, step, technical)
}
