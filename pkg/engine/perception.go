package engine

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// PageState is one perception of the live page: a viewport screenshot, a
// compact HTML summary of interactive elements, and page identity.
type PageState struct {
	Screenshot []byte
	HTML       string
	URL        string
	Title      string
}

// elementSummaryJS collects up to 60 interactive elements with the
// attributes the oracle needs for selector construction. Inner text is
// capped at 30 chars per element to save tokens.
const elementSummaryJS = `() => {
	const elements = document.querySelectorAll('button, a, input, select, textarea, [role="button"], [role="search"], [aria-label]');
	let html = '';
	elements.forEach((el, i) => {
		if (i < 60) {
			const tag = el.tagName.toLowerCase();
			const text = el.innerText?.substring(0, 30) || '';
			const id = el.id ? ` + "`id=\"${el.id}\"`" + ` : '';
			const className = el.className && typeof el.className === 'string' ? ` + "`class=\"${el.className.substring(0, 50)}\"`" + ` : '';
			const type = el.type ? ` + "`type=\"${el.type}\"`" + ` : '';
			const ariaLabel = el.getAttribute('aria-label') ? ` + "`aria-label=\"${el.getAttribute('aria-label')}\"`" + ` : '';
			const title = el.title ? ` + "`title=\"${el.title}\"`" + ` : '';
			const href = el.href ? ` + "`href=\"${el.href.substring(0, 50)}\"`" + ` : '';
			const role = el.getAttribute('role') ? ` + "`role=\"${el.getAttribute('role')}\"`" + ` : '';
			html += ` + "`<${tag} ${id} ${className} ${type} ${ariaLabel} ${title} ${href} ${role}>${text}</${tag}>\\n`" + `;
		}
	});
	return html;
}`

// CapturePageState takes a viewport screenshot and extracts the
// interactive-element summary used as oracle context.
func CapturePageState(page playwright.Page) (*PageState, error) {
	screenshot, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	result, err := page.Evaluate(elementSummaryJS)
	if err != nil {
		return nil, fmt.Errorf("element summary failed: %w", err)
	}
	summary, _ := result.(string)

	title, err := page.Title()
	if err != nil {
		title = ""
	}

	return &PageState{
		Screenshot: screenshot,
		HTML:       summary,
		URL:        page.URL(),
		Title:      title,
	}, nil
}
