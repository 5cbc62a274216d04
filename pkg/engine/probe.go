package engine

import "github.com/playwright-community/playwright-go"

// pageProbe implements SelectorProbe against a live Playwright page.
type pageProbe struct {
	page playwright.Page
}

// NewPageProbe creates a SelectorProbe over the given page.
func NewPageProbe(page playwright.Page) SelectorProbe {
	return &pageProbe{page: page}
}

func (p *pageProbe) Count(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (p *pageProbe) Visible(selector string) (bool, error) {
	return p.page.Locator(selector).First().IsVisible()
}
