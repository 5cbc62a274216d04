// Package browser manages Playwright browser lifecycle for SentinelQA runs.
// Each test run owns an isolated browser context and page; the Launcher is
// shared across runs within a worker process.
package browser

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Launcher owns the Playwright runtime shared by all run sessions.
type Launcher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
}

// NewLauncher creates a new launcher. Initialize must be called before
// creating any run sessions.
func NewLauncher() *Launcher {
	return &Launcher{}
}

// Initialize installs and starts the Playwright driver.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	// Discard driver output so it does not interleave with worker output.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Shutdown stops the Playwright driver.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized || l.playwright == nil {
		return nil
	}

	if err := l.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	l.initialized = false
	return nil
}

// EnsureDirs creates the artifact directories a worker writes into.
// Called explicitly by the process entry point, never as an import side
// effect.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
