package engine

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// successKeywords is the ordered list scanned for completion indicators.
// The scan is a plain case-insensitive substring match over the page HTML;
// script and style text also matches. That imprecision is intentional: the
// signal is advisory and only ever logged, never used for control flow.
var successKeywords = []string{
	"success", "successfully", "sent", "submitted",
	"thank you", "thanks", "confirmation", "confirmed",
	"check your email", "password reset email", "reset link",
	"completed", "done", "congratulations",
}

// PageStateTracker tracks page state changes across the steps of one run:
// URL transitions and success-message indicators.
type PageStateTracker struct {
	previousURL string
}

// NewPageStateTracker creates a tracker with no baseline URL recorded.
func NewPageStateTracker() *PageStateTracker {
	return &PageStateTracker{}
}

// DetectNavigation reports whether the page moved to a different location
// since the last call. The first call records the baseline and reports no
// navigation. Host and path changes count as navigation; query or fragment
// changes update the baseline but report only a state-change description.
func (t *PageStateTracker) DetectNavigation(currentURL string) (bool, string) {
	if t.previousURL == "" {
		t.previousURL = currentURL
		return false, ""
	}

	prev, prevErr := url.Parse(t.previousURL)
	curr, currErr := url.Parse(currentURL)
	if prevErr != nil || currErr != nil {
		t.previousURL = currentURL
		return false, ""
	}

	if prev.Host != curr.Host {
		desc := fmt.Sprintf("Domain changed: %s → %s", prev.Host, curr.Host)
		t.previousURL = currentURL
		return true, desc
	}

	if prev.Path != curr.Path {
		desc := fmt.Sprintf("Path changed: %s → %s", prev.Path, curr.Path)
		t.previousURL = currentURL
		return true, desc
	}

	if prev.RawQuery != curr.RawQuery || prev.Fragment != curr.Fragment {
		t.previousURL = currentURL
		return false, "URL params changed (possible state change)"
	}

	return false, ""
}

// DetectSuccessMessage scans HTML for success indicators and returns the
// first keyword that matches.
func (t *PageStateTracker) DetectSuccessMessage(htmlContent string) (bool, string) {
	lower := strings.ToLower(htmlContent)
	for _, keyword := range successKeywords {
		if strings.Contains(lower, keyword) {
			return true, keyword
		}
	}
	return false, ""
}

// VisibleText extracts script/style-free text from raw HTML, used for the
// DOM snippet attached to failure evidence. Returns at most maxLen bytes.
func VisibleText(rawHTML string, maxLen int) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// Fall back to the raw markup, truncated.
		if len(rawHTML) > maxLen {
			return rawHTML[:maxLen]
		}
		return rawHTML
	}

	var builder strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if builder.Len() >= maxLen {
			return
		}
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if builder.Len() > 0 {
					builder.WriteByte(' ')
				}
				builder.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := builder.String()
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}
