package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prasadchowdar/SentinelQA/pkg/config"
	"github.com/Prasadchowdar/SentinelQA/pkg/logging"
)

// scriptedDriver plays back canned decisions and results so the run loop
// can be exercised without a browser or an oracle.
type scriptedDriver struct {
	state      *PageState
	captureErr error

	actions  []Action
	execOK   []bool
	verdicts []*VerificationResult

	captures int
	decides  int
	executes int
	verifies int
	pauses   int
}

func (d *scriptedDriver) Capture(ctx context.Context) (*PageState, error) {
	d.captures++
	if d.captureErr != nil {
		return nil, d.captureErr
	}
	if d.state != nil {
		return d.state, nil
	}
	return &PageState{
		Screenshot: []byte{0x89, 0x50},
		HTML:       "<html><body><h1>Checkout</h1></body></html>",
		URL:        "https://example.com/",
		Title:      "Example",
	}, nil
}

func (d *scriptedDriver) Decide(ctx context.Context, req DecideRequest) Action {
	d.decides++
	if d.decides <= len(d.actions) {
		return d.actions[d.decides-1]
	}
	return WaitAction("script exhausted")
}

func (d *scriptedDriver) Execute(ctx context.Context, action Action) bool {
	d.executes++
	if d.executes <= len(d.execOK) {
		return d.execOK[d.executes-1]
	}
	return true
}

func (d *scriptedDriver) Verify(action Action) *VerificationResult {
	d.verifies++
	if d.verifies <= len(d.verdicts) {
		return d.verdicts[d.verifies-1]
	}
	return &VerificationResult{Passed: true, Assertion: action.Assertion}
}

func (d *scriptedDriver) Pause(ms float64) {
	d.pauses++
}

func testWorker(t *testing.T) *Worker {
	t.Helper()
	log, err := logging.NewLogger("engine-test")
	require.NoError(t, err)
	return &Worker{
		cache: NewHealingCache(),
		cfg:   config.Default(),
		log:   log,
	}
}

func TestRunLoopStepCeiling(t *testing.T) {
	w := testWorker(t)
	driver := &scriptedDriver{} // every decision degrades to wait

	result := w.runLoop(context.Background(), driver, "do the thing", time.Now())

	assert.Equal(t, w.cfg.Run.MaxSteps, driver.decides)
	assert.True(t, result.maxedOut)
	assert.False(t, result.completed)
	assert.Contains(t, result.log, "⚠ Reached maximum step limit")
}

func TestRunLoopCompleteStopsEarly(t *testing.T) {
	w := testWorker(t)
	driver := &scriptedDriver{
		actions: []Action{
			{Kind: ActionClick, Selector: "#login", Reasoning: "open the login form"},
			{Kind: ActionComplete, Reasoning: "the task is done"},
		},
	}

	result := w.runLoop(context.Background(), driver, "log in", time.Now())

	assert.True(t, result.completed)
	assert.Equal(t, 2, driver.decides)
	assert.Equal(t, 1, driver.executes)
	require.Len(t, result.history, 1)
	assert.Contains(t, result.history[0], "click on '#login'")
	assert.Contains(t, result.log, "✓ Task completed successfully")
}

func TestRunLoopVerifyFailureContinues(t *testing.T) {
	w := testWorker(t)
	verify := Action{
		Kind:       ActionVerify,
		VerifyType: VerifyVisible,
		Selector:   ".toast",
		Assertion:  "Toast is shown",
		Reasoning:  "check the confirmation toast",
	}
	driver := &scriptedDriver{
		actions: []Action{verify, verify, {Kind: ActionComplete, Reasoning: "done"}},
		verdicts: []*VerificationResult{
			{Passed: false, Assertion: "Toast is shown", Expected: "visible", Actual: "not visible", Reason: "Element not visible", SelectorUsed: ".toast", Confidence: ConfidenceHigh},
			{Passed: true, Assertion: "Toast is shown", Reason: "Element is visible", SelectorUsed: ".toast", Confidence: ConfidenceHigh},
		},
	}

	result := w.runLoop(context.Background(), driver, "confirm the toast", time.Now())

	// A failed verification records evidence and keeps going.
	assert.True(t, result.completed)
	assert.Equal(t, VerificationCounts{Total: 2, Passed: 1, Failed: 1}, result.counts)
	require.NotNil(t, result.evidence)
	assert.Equal(t, 1, result.evidence.Step)
	assert.Equal(t, ActionVerify, result.evidence.Action)
	assert.NotEmpty(t, result.evidence.Screenshot)
	assert.Contains(t, result.evidence.DOMSnippet, "Checkout")
	assert.Equal(t, []string{
		"verify: Toast is shown - FAIL",
		"verify: Toast is shown - PASS",
	}, result.history)
}

func TestRunLoopActionFailureBreaks(t *testing.T) {
	w := testWorker(t)
	driver := &scriptedDriver{
		actions: []Action{
			{Kind: ActionClick, Selector: "#missing", Reasoning: "click the missing button"},
			{Kind: ActionComplete},
		},
		execOK: []bool{false},
	}

	result := w.runLoop(context.Background(), driver, "click it", time.Now())

	assert.True(t, result.actionFailed)
	assert.False(t, result.completed)
	assert.Equal(t, 1, driver.decides)
	require.NotNil(t, result.evidence)
	assert.Equal(t, "#missing", result.evidence.Selector)
	assert.Contains(t, result.log, "✗ Failed to execute action")
	assert.Equal(t, StatusFail, DeriveStatus(false, result.actionFailed, result.counts))
}

func TestRunLoopCaptureErrorBreaks(t *testing.T) {
	w := testWorker(t)
	driver := &scriptedDriver{captureErr: errors.New("page crashed")}

	result := w.runLoop(context.Background(), driver, "anything", time.Now())

	require.Error(t, result.stepErr)
	assert.Equal(t, 0, driver.decides)
	assert.False(t, result.maxedOut)
	assert.Equal(t, StatusFail, DeriveStatus(result.stepErr != nil, result.actionFailed, result.counts))
}

func TestRunLoopEvidenceCapturedOnce(t *testing.T) {
	w := testWorker(t)
	failing := &VerificationResult{Passed: false, Assertion: "a", Expected: "x", Actual: "y", Reason: "mismatch", SelectorUsed: "#a"}
	verify := Action{Kind: ActionVerify, VerifyType: VerifyExists, Selector: "#a", Assertion: "a"}
	driver := &scriptedDriver{
		actions:  []Action{verify, verify, {Kind: ActionComplete}},
		verdicts: []*VerificationResult{failing, failing},
	}

	result := w.runLoop(context.Background(), driver, "verify twice", time.Now())

	require.NotNil(t, result.evidence)
	assert.Equal(t, 1, result.evidence.Step)
	assert.Equal(t, VerificationCounts{Total: 2, Passed: 0, Failed: 2}, result.counts)
}

func TestRunLoopSuccessIndicatorLogged(t *testing.T) {
	w := testWorker(t)
	driver := &scriptedDriver{
		state: &PageState{
			Screenshot: []byte{1},
			HTML:       "<html><body>Thank you for your order</body></html>",
			URL:        "https://example.com/confirm",
			Title:      "Order placed",
		},
		actions: []Action{{Kind: ActionComplete, Reasoning: "order confirmed"}},
	}

	result := w.runLoop(context.Background(), driver, "place the order", time.Now())

	assert.True(t, result.completed)
	assert.Contains(t, result.log, "✓ Success message found: 'thank you'")
}
