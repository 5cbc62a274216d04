package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/Prasadchowdar/SentinelQA/pkg/browser"
	"github.com/Prasadchowdar/SentinelQA/pkg/config"
	"github.com/Prasadchowdar/SentinelQA/pkg/logging"
)

// networkIdleTimeout is the non-fatal settle wait after the initial load.
const networkIdleTimeout = 10000.0

// interStepPause is the small delay between decision steps.
const interStepPause = 1000.0

// Worker runs AI-driven UI tests. One worker owns one healing cache, so
// healings learned in one run benefit later runs on the same worker.
type Worker struct {
	launcher *browser.Launcher
	oracle   DecisionOracle
	cache    *HealingCache
	cfg      *config.Config
	log      *logging.Logger
}

// NewWorker creates a worker. The oracle may be nil, in which case runs
// only navigate and report inconclusive.
func NewWorker(launcher *browser.Launcher, oracle DecisionOracle, cfg *config.Config) *Worker {
	log, _ := logging.NewLogger("orchestrator")
	return &Worker{
		launcher: launcher,
		oracle:   oracle,
		cache:    NewHealingCache(),
		cfg:      cfg,
		log:      log,
	}
}

// stepDriver is the set of per-step operations the run loop needs. The
// production driver binds them to a live page and the configured oracle.
type stepDriver interface {
	Capture(ctx context.Context) (*PageState, error)
	Decide(ctx context.Context, req DecideRequest) Action
	Execute(ctx context.Context, action Action) bool
	Verify(action Action) *VerificationResult
	Pause(ms float64)
}

// liveDriver implements stepDriver against a Playwright page.
type liveDriver struct {
	page     playwright.Page
	oracle   DecisionOracle
	executor *Executor
	verifier *VerificationEngine
}

func (d *liveDriver) Capture(ctx context.Context) (*PageState, error) {
	return CapturePageState(d.page)
}

func (d *liveDriver) Decide(ctx context.Context, req DecideRequest) Action {
	return d.oracle.Decide(ctx, req)
}

func (d *liveDriver) Execute(ctx context.Context, action Action) bool {
	return d.executor.Execute(ctx, action)
}

func (d *liveDriver) Verify(action Action) *VerificationResult {
	return d.verifier.Verify(action)
}

func (d *liveDriver) Pause(ms float64) {
	d.page.WaitForTimeout(ms)
}

// loopResult carries everything the outcome assembly needs out of the loop.
type loopResult struct {
	counts       VerificationCounts
	actionFailed bool
	stepErr      error
	completed    bool
	maxedOut     bool
	evidence     *FailureEvidence
	history      []string
	log          []string
}

// RunTest executes one AI-driven test run: navigate, loop perception →
// decision → action/verify up to the step ceiling, then assemble the
// outcome. In-run failures are folded into the outcome; only setup
// failures (browser launch) return an error.
func (w *Worker) RunTest(ctx context.Context, targetURL, instruction string) (*TestOutcome, error) {
	w.log.Infof("starting test for %s with instruction: %s", targetURL, instruction)
	start := time.Now()
	runID := uuid.New().String()

	// Navigation guard: refuse to drive hosts outside the allowlist.
	allowed, err := HostAllowed(targetURL, w.cfg.Browser.AllowedHosts)
	if err == nil && !allowed {
		err = fmt.Errorf("navigation blocked: host of %s is not in the allowed list", targetURL)
	}
	if err != nil {
		w.log.Errorf("%v", err)
		return &TestOutcome{
			Status:       StatusFail,
			DurationMs:   time.Since(start).Milliseconds(),
			Summary:      buildSummary(StatusFail, targetURL, "", VerificationCounts{}, []string{fmt.Sprintf("✗ Error: %v", err)}),
			BugSummary:   err.Error(),
			ExecutionLog: []string{fmt.Sprintf("✗ Error: %v", err)},
		}, nil
	}

	session, err := w.launcher.NewRunSession(browser.SessionOptions{
		Headless:       w.cfg.Browser.Headless,
		ViewportWidth:  w.cfg.Browser.ViewportWidth,
		ViewportHeight: w.cfg.Browser.ViewportHeight,
		VideoDir:       w.cfg.Artifacts.VideoDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	page := session.Page
	probe := NewPageProbe(page)
	healer := NewSelfHealingEngine(probe, w.cache, w.oracle, func(ctx context.Context) ([]byte, error) {
		return page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(false)})
	})
	driver := &liveDriver{
		page:     page,
		oracle:   w.oracle,
		executor: NewExecutor(page, healer),
		verifier: NewVerificationEngine(page),
	}

	var (
		executionLog []string
		runErr       error
		title        string
		result       loopResult
	)

	// Navigation failure is fatal: no AI steps are attempted.
	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(w.cfg.Run.NavigationTimeoutMs),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		runErr = fmt.Errorf("navigation failed: %w", err)
		w.log.Errorf("%v", runErr)
		executionLog = append(executionLog, fmt.Sprintf("✗ Error: %v", runErr))
	} else {
		if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateNetworkidle,
			Timeout: playwright.Float(networkIdleTimeout),
		}); err != nil {
			w.log.Warnf("network not idle after %.0fs, proceeding anyway", networkIdleTimeout/1000)
		}

		title, _ = page.Title()
		executionLog = append(executionLog, fmt.Sprintf("✓ Navigated to %s", targetURL))
		executionLog = append(executionLog, fmt.Sprintf("✓ Page title: %s", title))

		if w.oracle != nil && instruction != "" {
			result = w.runLoop(ctx, driver, instruction, start)
			executionLog = append(executionLog, result.log...)
		} else {
			w.log.Warnf("oracle not configured or no instruction provided")
			executionLog = append(executionLog, "⚠ AI not configured - only navigated to URL")
			driver.Pause(genericPause)
		}
	}

	// Closing the context finalizes video capture.
	videoPath, closeErr := session.Close()
	if closeErr != nil {
		w.log.Warnf("session close: %v", closeErr)
	}

	outcome := w.assembleOutcome(ctx, assembleParams{
		runID:        runID,
		targetURL:    targetURL,
		instruction:  instruction,
		title:        title,
		start:        start,
		runErr:       runErr,
		result:       result,
		executionLog: executionLog,
		videoPath:    videoPath,
		healing:      healer.Summary(),
	})
	return outcome, nil
}

// runLoop drives the bounded perception → decision → action cycle.
func (w *Worker) runLoop(ctx context.Context, driver stepDriver, instruction string, start time.Time) loopResult {
	var r loopResult
	tracker := NewPageStateTracker()
	maxSteps := w.cfg.Run.MaxSteps

	step := 0
	for step < maxSteps {
		step++
		w.log.Infof("AI step %d/%d", step, maxSteps)

		state, err := driver.Capture(ctx)
		if err != nil {
			// A step-level error is logged and breaks the loop; it never
			// propagates to the caller.
			r.stepErr = err
			r.log = append(r.log, fmt.Sprintf("✗ Step %d error: %v", step, err))
			w.log.Errorf("error in AI step %d: %v", step, err)
			break
		}

		// Navigation and success detection are advisory: logged, never
		// used for control flow.
		if navigated, desc := tracker.DetectNavigation(state.URL); navigated {
			w.log.Infof("navigation detected: %s", desc)
			r.log = append(r.log, desc)
		}
		if found, keyword := tracker.DetectSuccessMessage(state.HTML); found {
			w.log.Infof("success indicator detected: %q", keyword)
			r.log = append(r.log, fmt.Sprintf("✓ Success message found: '%s'", keyword))
		}

		action := driver.Decide(ctx, DecideRequest{
			Instruction: instruction,
			Screenshot:  state.Screenshot,
			PageHTML:    state.HTML,
			History:     r.history,
		})
		reasoning := action.Reasoning
		if reasoning == "" {
			reasoning = "No reasoning provided"
		}
		w.log.Infof("oracle decided: %s - %s", action.Kind, reasoning)
		r.log = append(r.log, fmt.Sprintf("Step %d: %s", step, reasoning))

		if action.Kind == ActionComplete {
			r.log = append(r.log, "✓ Task completed successfully")
			r.completed = true
			break
		}

		if action.Kind == ActionVerify {
			verdict := driver.Verify(action)
			r.counts.Total++
			if verdict.Passed {
				r.counts.Passed++
				r.log = append(r.log, fmt.Sprintf("  ✓ VERIFY [%s]: %s", verdict.Confidence, verdict.Assertion))
				r.log = append(r.log, fmt.Sprintf("    Result: %s", verdict.Reason))
			} else {
				r.counts.Failed++
				r.log = append(r.log, fmt.Sprintf("  ✗ VERIFY FAILED [%s]: %s", verdict.Confidence, verdict.Assertion))
				r.log = append(r.log, fmt.Sprintf("    Expected: %s", verdict.Expected))
				r.log = append(r.log, fmt.Sprintf("    Actual: %s", verdict.Actual))
				r.log = append(r.log, fmt.Sprintf("    Reason: %s", verdict.Reason))
				r.log = append(r.log, fmt.Sprintf("    Selector: %s", verdict.SelectorUsed))
				w.captureEvidence(ctx, driver, &r, step, start, action)
			}
			passFail := "PASS"
			if !verdict.Passed {
				passFail = "FAIL"
			}
			r.history = append(r.history, fmt.Sprintf("verify: %s - %s", verdict.Assertion, passFail))
			// A failed verification does not abort remaining steps.
		} else {
			if driver.Execute(ctx, action) {
				r.log = append(r.log, fmt.Sprintf("✓ Executed: %s %s", action.Kind, action.Selector))
				r.history = append(r.history, action.Describe())
				w.log.Infof("action history now has %d items", len(r.history))
			} else {
				// Non-verify action failures are unrecoverable for the run.
				w.captureEvidence(ctx, driver, &r, step, start, action)
				r.log = append(r.log, "✗ Failed to execute action")
				r.actionFailed = true
				break
			}
		}

		driver.Pause(interStepPause)
	}

	if step >= maxSteps && !r.completed && !r.actionFailed && r.stepErr == nil {
		r.maxedOut = true
		r.log = append(r.log, "⚠ Reached maximum step limit")
	}
	return r
}

// captureEvidence stores failure evidence for the first failure only.
func (w *Worker) captureEvidence(ctx context.Context, driver stepDriver, r *loopResult, step int, start time.Time, action Action) {
	if r.evidence != nil {
		return
	}

	evidence := &FailureEvidence{
		Step:     step,
		Elapsed:  time.Since(start),
		Action:   action.Kind,
		Selector: action.Selector,
	}
	if state, err := driver.Capture(ctx); err == nil {
		evidence.Screenshot = state.Screenshot
		evidence.DOMSnippet = VisibleText(state.HTML, maxDOMSnippet)
	} else {
		w.log.Warnf("failed to capture failure evidence: %v", err)
	}
	r.evidence = evidence
}

// assembleParams bundles the inputs to outcome assembly.
type assembleParams struct {
	runID        string
	targetURL    string
	instruction  string
	title        string
	start        time.Time
	runErr       error
	result       loopResult
	executionLog []string
	videoPath    string
	healing      HealingSummary
}

// assembleOutcome folds the run state into the final TestOutcome.
func (w *Worker) assembleOutcome(ctx context.Context, p assembleParams) *TestOutcome {
	hadError := p.runErr != nil || p.result.stepErr != nil
	status := DeriveStatus(hadError, p.result.actionFailed, p.result.counts)

	outcome := &TestOutcome{
		Status:         status,
		DurationMs:     time.Since(p.start).Milliseconds(),
		Verifications:  p.result.counts,
		HealingSummary: p.healing,
		VideoPath:      p.videoPath,
		ExecutionLog:   p.executionLog,
	}
	outcome.Summary = buildSummary(status, p.targetURL, p.title, p.result.counts, p.executionLog)

	if status == StatusFail {
		switch {
		case p.runErr != nil:
			outcome.BugSummary = p.runErr.Error()
		case p.result.stepErr != nil:
			outcome.BugSummary = fmt.Sprintf("step error: %v", p.result.stepErr)
		case p.result.counts.Failed > 0 && !p.result.actionFailed:
			outcome.BugSummary = "Verification failed"
		default:
			outcome.BugSummary = "Test execution incomplete"
		}
	}

	if p.result.evidence != nil {
		outcome.FailureInfo = w.persistEvidence(p.runID, p.result.evidence)
	}

	// Best-effort plain-language explanation for failures with evidence;
	// falls back silently to the technical reason.
	if status == StatusFail && p.result.evidence != nil && w.oracle != nil {
		explanation, err := w.oracle.ExplainFailure(ctx, ExplainRequest{
			Instruction:     p.instruction,
			TechnicalReason: outcome.BugSummary,
			Step:            p.result.evidence.Step,
		})
		if err != nil || explanation == "" {
			explanation = outcome.BugSummary
		}
		outcome.PlainEnglishExplanation = explanation
	}

	w.log.Infof("run %s finished: %s in %dms", p.runID, outcome.Status, outcome.DurationMs)
	return outcome
}

// persistEvidence writes the evidence screenshot under the screenshot dir
// keyed by run ID and returns the serializable failure info.
func (w *Worker) persistEvidence(runID string, evidence *FailureEvidence) *FailureInfo {
	info := &FailureInfo{
		Step:       evidence.Step,
		ElapsedMs:  evidence.Elapsed.Milliseconds(),
		Action:     evidence.Action,
		Selector:   evidence.Selector,
		DOMSnippet: evidence.DOMSnippet,
	}

	if len(evidence.Screenshot) > 0 {
		path := filepath.Join(w.cfg.Artifacts.ScreenshotDir, fmt.Sprintf("%s-step%d-failure.png", runID, evidence.Step))
		if err := os.WriteFile(path, evidence.Screenshot, 0600); err != nil {
			w.log.Warnf("failed to persist failure screenshot: %v", err)
		} else {
			info.ScreenshotPath = path
		}
	}
	return info
}
