package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Prasadchowdar/SentinelQA/pkg/logging"
)

// HealingRecord maps an original selector to its healed replacement.
type HealingRecord struct {
	OriginalSelector string     `json:"original_selector"`
	HealedSelector   string     `json:"healed_selector"`
	Strategy         string     `json:"strategy"`
	Confidence       Confidence `json:"confidence"`
	HealedAt         time.Time  `json:"healed_at"`
}

// HealingCache stores successful healings keyed by the original selector.
// The cache is scoped to the owning worker instance, not to a single run,
// so healings learned in one run amortize across later runs.
//
// Concurrency contract: reads and writes are guarded by an RWMutex; when
// concurrent runs heal the same selector the last writer wins per key.
type HealingCache struct {
	mu      sync.RWMutex
	records map[string]HealingRecord
}

// NewHealingCache creates an empty healing cache.
func NewHealingCache() *HealingCache {
	return &HealingCache{records: make(map[string]HealingRecord)}
}

// Get returns the healing record for an original selector, if present.
func (c *HealingCache) Get(original string) (HealingRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[original]
	return rec, ok
}

// Put stores a healing record, overwriting any previous healing for the
// same original selector.
func (c *HealingCache) Put(rec HealingRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.OriginalSelector] = rec
}

// Len returns the number of cached healings.
func (c *HealingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// SelectorProbe checks candidate selectors against the live page. Healing
// strategies generate candidates; the probe decides whether they resolve.
type SelectorProbe interface {
	// Count returns how many elements the selector matches.
	Count(selector string) (int, error)
	// Visible reports whether the first match is visible.
	Visible(selector string) (bool, error)
}

// HealingContext describes the failure being healed.
type HealingContext struct {
	// Selector is the original, failing selector
	Selector string
	// Reasoning is the oracle's stated intent for the action
	Reasoning string
	// Value is the action's value, if any (typed text, key, URL)
	Value string
}

// HealingResult reports the outcome of a healing attempt.
type HealingResult struct {
	Found      bool
	Selector   string
	Strategy   string
	Confidence Confidence
	FromCache  bool
}

// HealingEvent is one entry in the bounded healing history.
type HealingEvent struct {
	Original   string     `json:"original"`
	Healed     string     `json:"healed"`
	Strategy   string     `json:"strategy"`
	Confidence Confidence `json:"confidence"`
	At         time.Time  `json:"at"`
}

// HealingSummary aggregates healing activity for outcome reporting.
type HealingSummary struct {
	Attempts int            `json:"attempts"`
	Healed   int            `json:"healed"`
	Events   []HealingEvent `json:"events,omitempty"`
}

// Strategy names recorded in healing records and events.
const (
	strategyCache       = "cache"
	strategyOriginal    = "original"
	strategyTextContent = "text_content"
	strategyAriaLabel   = "aria_label"
	strategyRole        = "role"
	strategyDataTestID  = "data_testid"
	strategyVisualAI    = "visual_ai"
)

// maxHealingEvents bounds the rolling event history.
const maxHealingEvents = 10

// ScreenshotFunc captures a fresh screenshot for visual healing.
type ScreenshotFunc func(ctx context.Context) ([]byte, error)

// SelfHealingEngine repairs failing selectors by trying ranked
// alternative-discovery strategies, caching what worked.
type SelfHealingEngine struct {
	probe  SelectorProbe
	cache  *HealingCache
	oracle DecisionOracle // optional; enables visual healing
	shot   ScreenshotFunc // optional; required for visual healing
	log    *logging.Logger

	mu       sync.Mutex
	attempts int
	healed   int
	events   []HealingEvent
}

// NewSelfHealingEngine creates a healing engine over the given probe and
// shared cache. Oracle and screenshot function may be nil, which disables
// the visual strategy.
func NewSelfHealingEngine(probe SelectorProbe, cache *HealingCache, oracle DecisionOracle, shot ScreenshotFunc) *SelfHealingEngine {
	log, _ := logging.NewLogger("healing")
	if cache == nil {
		cache = NewHealingCache()
	}
	return &SelfHealingEngine{
		probe:  probe,
		cache:  cache,
		oracle: oracle,
		shot:   shot,
		log:    log,
	}
}

// candidate is one alternative selector proposed by a strategy, evaluated
// in order with the first resolving candidate winning.
type candidate struct {
	selector   string
	strategy   string
	confidence Confidence
}

// Heal attempts to find a working replacement for a failing selector.
// Returns a not-found result when every strategy fails; the caller must
// surface that as an action or verification failure.
func (h *SelfHealingEngine) Heal(ctx context.Context, hctx HealingContext) *HealingResult {
	h.mu.Lock()
	h.attempts++
	h.mu.Unlock()

	// 1. Cache: a previously healed selector is reused without a new
	// strategy search as long as it still resolves.
	if rec, ok := h.cache.Get(hctx.Selector); ok {
		if count, err := h.probe.Count(rec.HealedSelector); err == nil && count > 0 {
			h.log.Infof("healing cache hit: %q -> %q (%s)", hctx.Selector, rec.HealedSelector, rec.Strategy)
			return &HealingResult{
				Found:      true,
				Selector:   rec.HealedSelector,
				Strategy:   strategyCache,
				Confidence: rec.Confidence,
				FromCache:  true,
			}
		}
	}

	// 2. Confirm the original truly fails before healing.
	if count, err := h.probe.Count(hctx.Selector); err == nil && count > 0 {
		if visible, err := h.probe.Visible(hctx.Selector); err == nil && visible {
			return &HealingResult{
				Found:      true,
				Selector:   hctx.Selector,
				Strategy:   strategyOriginal,
				Confidence: ConfidenceHigh,
			}
		}
	}

	// 3-5. Heuristic strategies, ranked.
	candidates := h.textContentCandidates(hctx)
	candidates = append(candidates, h.ariaRoleCandidates(hctx)...)
	candidates = append(candidates, h.dataTestIDCandidates(hctx)...)

	for _, cand := range candidates {
		count, err := h.probe.Count(cand.selector)
		if err != nil || count == 0 {
			continue
		}
		if visible, err := h.probe.Visible(cand.selector); err != nil || !visible {
			continue
		}
		return h.accept(hctx.Selector, cand)
	}

	// 6. Visual AI healing, last resort.
	if result := h.visualHeal(ctx, hctx); result != nil {
		return result
	}

	h.log.Warnf("all healing strategies failed for %q", hctx.Selector)
	return &HealingResult{Found: false}
}

// accept caches a successful healing and records it in the rolling history.
func (h *SelfHealingEngine) accept(original string, cand candidate) *HealingResult {
	rec := HealingRecord{
		OriginalSelector: original,
		HealedSelector:   cand.selector,
		Strategy:         cand.strategy,
		Confidence:       cand.confidence,
		HealedAt:         time.Now(),
	}
	h.cache.Put(rec)

	h.mu.Lock()
	h.healed++
	h.events = append(h.events, HealingEvent{
		Original:   original,
		Healed:     cand.selector,
		Strategy:   cand.strategy,
		Confidence: cand.confidence,
		At:         rec.HealedAt,
	})
	if len(h.events) > maxHealingEvents {
		h.events = h.events[len(h.events)-maxHealingEvents:]
	}
	h.mu.Unlock()

	h.log.Infof("healed %q -> %q via %s (%s)", original, cand.selector, cand.strategy, cand.confidence)
	return &HealingResult{
		Found:      true,
		Selector:   cand.selector,
		Strategy:   cand.strategy,
		Confidence: cand.confidence,
	}
}

// textContentCandidates derives selectors from keywords in the action's
// reasoning and value, preferring clickable elements over bare text.
func (h *SelfHealingEngine) textContentCandidates(hctx HealingContext) []candidate {
	keywords := extractKeywords(hctx.Reasoning+" "+hctx.Value, 3)

	var out []candidate
	for _, kw := range keywords {
		for _, sel := range []string{
			fmt.Sprintf(`button:has-text(%q)`, kw),
			fmt.Sprintf(`a:has-text(%q)`, kw),
			fmt.Sprintf(`input[type="submit"][value*=%q i]`, kw),
			fmt.Sprintf("text=%s", kw),
		} {
			out = append(out, candidate{selector: sel, strategy: strategyTextContent, confidence: ConfidenceMedium})
		}
	}
	return out
}

// reasoningVocabulary is the fixed set of intent words recognized in the
// oracle's reasoning when deriving aria/role hints.
var reasoningVocabulary = []string{"search", "login", "submit", "buy", "add", "cart", "checkout"}

// selectorHintWords are substrings of the failing selector that hint at
// the element's purpose.
var selectorHintWords = []string{"button", "search", "submit", "login"}

// roleSelectors maps hint words to role-based selectors.
var roleSelectors = map[string]string{
	"button":   `[role="button"]`,
	"search":   `[role="search"]`,
	"submit":   `[role="button"]`,
	"login":    `[role="button"]`,
	"buy":      `[role="button"]`,
	"add":      `[role="button"]`,
	"cart":     `[role="button"]`,
	"checkout": `[role="button"]`,
}

// ariaRoleCandidates derives selectors from hint words found in the failing
// selector and the reasoning text.
func (h *SelfHealingEngine) ariaRoleCandidates(hctx HealingContext) []candidate {
	seen := make(map[string]bool)
	var hints []string

	selectorLower := strings.ToLower(hctx.Selector)
	for _, word := range selectorHintWords {
		if strings.Contains(selectorLower, word) && !seen[word] {
			seen[word] = true
			hints = append(hints, word)
		}
	}

	reasoningLower := strings.ToLower(hctx.Reasoning)
	for _, word := range reasoningVocabulary {
		if strings.Contains(reasoningLower, word) && !seen[word] {
			seen[word] = true
			hints = append(hints, word)
		}
	}

	var out []candidate
	for _, hint := range hints {
		out = append(out, candidate{
			selector:   fmt.Sprintf(`[aria-label*=%q i]`, hint),
			strategy:   strategyAriaLabel,
			confidence: ConfidenceHigh,
		})
		if roleSel, ok := roleSelectors[hint]; ok {
			out = append(out, candidate{
				selector:   roleSel,
				strategy:   strategyRole,
				confidence: ConfidenceMedium,
			})
		}
	}
	return out
}

// selectorTokenPattern extracts class/id-like tokens from a CSS selector.
var selectorTokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_-]{2,}`)

// cssNoise filters structural words that never make useful testid tokens.
var cssNoise = map[string]bool{
	"div": true, "span": true, "input": true, "button": true, "class": true,
	"nth": true, "child": true, "type": true, "aria": true, "label": true,
	"role": true, "data": true, "testid": true, "href": true, "text": true,
}

// dataTestIDCandidates derives data-testid selectors from tokens in the
// failing selector, exact match before substring match.
func (h *SelfHealingEngine) dataTestIDCandidates(hctx HealingContext) []candidate {
	tokens := selectorTokenPattern.FindAllString(hctx.Selector, -1)

	var out []candidate
	seen := make(map[string]bool)
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if cssNoise[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out,
			candidate{
				selector:   fmt.Sprintf(`[data-testid=%q]`, tok),
				strategy:   strategyDataTestID,
				confidence: ConfidenceHigh,
			},
			candidate{
				selector:   fmt.Sprintf(`[data-testid*=%q]`, tok),
				strategy:   strategyDataTestID,
				confidence: ConfidenceMedium,
			},
		)
	}
	return out
}

// visualHeal asks the oracle for a best-guess selector from a fresh
// screenshot. Returns nil when the strategy is unavailable or fails.
func (h *SelfHealingEngine) visualHeal(ctx context.Context, hctx HealingContext) *HealingResult {
	if h.oracle == nil || h.shot == nil {
		return nil
	}

	screenshot, err := h.shot(ctx)
	if err != nil {
		h.log.Warnf("visual healing screenshot failed: %v", err)
		return nil
	}

	suggestion, err := h.oracle.SuggestSelector(ctx, HealRequest{
		Screenshot:     screenshot,
		FailedSelector: hctx.Selector,
		Reasoning:      hctx.Reasoning,
		Value:          hctx.Value,
	})
	if err != nil {
		h.log.Warnf("visual healing failed: %v", err)
		return nil
	}

	count, err := h.probe.Count(suggestion.Selector)
	if err != nil || count == 0 {
		h.log.Warnf("visual healing suggestion %q did not resolve", suggestion.Selector)
		return nil
	}

	return h.accept(hctx.Selector, candidate{
		selector:   suggestion.Selector,
		strategy:   strategyVisualAI,
		confidence: suggestion.Confidence,
	})
}

// Summary returns the healing activity aggregated so far, including the
// last events (bounded).
func (h *SelfHealingEngine) Summary() HealingSummary {
	h.mu.Lock()
	defer h.mu.Unlock()

	events := make([]HealingEvent, len(h.events))
	copy(events, h.events)
	return HealingSummary{
		Attempts: h.attempts,
		Healed:   h.healed,
		Events:   events,
	}
}

// extractKeywords splits text into lowercase words longer than two
// characters, keeping at most limit of them.
func extractKeywords(text string, limit int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) <= 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out
}
