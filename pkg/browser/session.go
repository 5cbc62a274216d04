package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RunSession is the browser context and page owned by a single test run.
type RunSession struct {
	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session, records video)
	Context playwright.BrowserContext

	// Page is the run's single page
	Page playwright.Page

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time
}

// SessionOptions configures a new run session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// ViewportWidth and ViewportHeight set the page viewport and the
	// recorded video size
	ViewportWidth  int
	ViewportHeight int

	// VideoDir, when set, enables video recording into the directory
	VideoDir string
}

// NewRunSession launches a browser with an isolated context and page for
// one test run. The caller must Close the session to finalize the video.
func (l *Launcher) NewRunSession(opts SessionOptions) (*RunSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil, fmt.Errorf("launcher not initialized")
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	browser, err := l.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}
	if opts.VideoDir != "" {
		contextOpts.RecordVideo = &playwright.RecordVideo{
			Dir: opts.VideoDir,
			Size: &playwright.Size{
				Width:  opts.ViewportWidth,
				Height: opts.ViewportHeight,
			},
		}
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &RunSession{
		Browser:   browser,
		Context:   context,
		Page:      page,
		CreatedAt: time.Now(),
	}, nil
}

// Close closes the context (which finalizes video capture) and the browser,
// returning the recorded video path if one exists. Close errors during
// cleanup are ignored so a failing teardown never masks the run result.
func (s *RunSession) Close() (string, error) {
	video := s.Page.Video()

	if err := s.Context.Close(); err != nil {
		s.Browser.Close()
		return "", fmt.Errorf("failed to close context: %w", err)
	}

	videoPath := ""
	if video != nil {
		if path, err := video.Path(); err == nil {
			videoPath = path
		}
	}

	_ = s.Browser.Close()
	return videoPath, nil
}
