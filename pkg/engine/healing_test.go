package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe resolves selectors against fixed maps. Selectors absent from
// counts match nothing; matched selectors are visible unless hidden.
type fakeProbe struct {
	counts map[string]int
	hidden map[string]bool
}

func (p *fakeProbe) Count(selector string) (int, error) {
	return p.counts[selector], nil
}

func (p *fakeProbe) Visible(selector string) (bool, error) {
	if p.counts[selector] == 0 {
		return false, nil
	}
	return !p.hidden[selector], nil
}

// fakeSuggestOracle serves canned selector suggestions.
type fakeSuggestOracle struct {
	suggestion *SelectorSuggestion
	err        error
	calls      int
}

func (o *fakeSuggestOracle) Decide(ctx context.Context, req DecideRequest) Action {
	return WaitAction("not under test")
}

func (o *fakeSuggestOracle) SuggestSelector(ctx context.Context, req HealRequest) (*SelectorSuggestion, error) {
	o.calls++
	return o.suggestion, o.err
}

func (o *fakeSuggestOracle) ExplainFailure(ctx context.Context, req ExplainRequest) (string, error) {
	return "", errors.New("not under test")
}

func TestHealOriginalStillResolves(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{"#submit": 1}}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{Selector: "#submit"})
	require.True(t, result.Found)
	assert.Equal(t, "#submit", result.Selector)
	assert.Equal(t, strategyOriginal, result.Strategy)
	assert.Equal(t, ConfidenceHigh, result.Confidence)

	// Nothing was healed, so nothing is cached.
	assert.Equal(t, 0, healer.cache.Len())
}

func TestHealAriaLabelStrategy(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{`[aria-label*="search" i]`: 1}}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{
		Selector:  "#old-search-btn",
		Reasoning: "Click the search icon to open the search box",
	})
	require.True(t, result.Found)
	assert.Equal(t, `[aria-label*="search" i]`, result.Selector)
	assert.Equal(t, strategyAriaLabel, result.Strategy)
	assert.Equal(t, ConfidenceHigh, result.Confidence)
	assert.False(t, result.FromCache)
}

func TestHealTextContentStrategy(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{`button:has-text("checkout")`: 1}}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{
		Selector:  ".old-class",
		Reasoning: "checkout now",
	})
	require.True(t, result.Found)
	assert.Equal(t, `button:has-text("checkout")`, result.Selector)
	assert.Equal(t, strategyTextContent, result.Strategy)
	assert.Equal(t, ConfidenceMedium, result.Confidence)
}

func TestHealDataTestIDStrategy(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{`[data-testid="product"]`: 1}}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{
		Selector: "#product-card-old",
	})
	require.True(t, result.Found)
	assert.Equal(t, `[data-testid="product"]`, result.Selector)
	assert.Equal(t, strategyDataTestID, result.Strategy)
	assert.Equal(t, ConfidenceHigh, result.Confidence)
}

func TestHealCacheHit(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{`[aria-label*="search" i]`: 1}}
	cache := NewHealingCache()
	healer := NewSelfHealingEngine(probe, cache, nil, nil)

	hctx := HealingContext{
		Selector:  "#old-search-btn",
		Reasoning: "Click the search icon",
	}

	first := healer.Heal(context.Background(), hctx)
	require.True(t, first.Found)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.Len())

	second := healer.Heal(context.Background(), hctx)
	require.True(t, second.Found)
	assert.True(t, second.FromCache)
	assert.Equal(t, strategyCache, second.Strategy)
	assert.Equal(t, first.Selector, second.Selector)
}

func TestHealCacheInvalidatedWhenHealedSelectorGone(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{}}
	cache := NewHealingCache()
	cache.Put(HealingRecord{
		OriginalSelector: "#gone",
		HealedSelector:   "#also-gone",
		Strategy:         strategyAriaLabel,
		Confidence:       ConfidenceHigh,
	})
	healer := NewSelfHealingEngine(probe, cache, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{Selector: "#gone"})
	assert.False(t, result.Found)
}

func TestHealVisualAIFallback(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{`[data-cy="pay-button"]`: 1}}
	oracle := &fakeSuggestOracle{
		suggestion: &SelectorSuggestion{
			Selector:   `[data-cy="pay-button"]`,
			Visible:    true,
			Confidence: ConfidenceMedium,
		},
	}
	shot := func(ctx context.Context) ([]byte, error) { return []byte{0x89}, nil }
	healer := NewSelfHealingEngine(probe, nil, oracle, shot)

	result := healer.Heal(context.Background(), HealingContext{Selector: "#zz"})
	require.True(t, result.Found)
	assert.Equal(t, `[data-cy="pay-button"]`, result.Selector)
	assert.Equal(t, strategyVisualAI, result.Strategy)
	assert.Equal(t, ConfidenceMedium, result.Confidence)
	assert.Equal(t, 1, oracle.calls)
}

func TestHealAllStrategiesFail(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{}}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{
		Selector:  "#zz",
		Reasoning: "press the submit button",
	})
	assert.False(t, result.Found)

	summary := healer.Summary()
	assert.Equal(t, 1, summary.Attempts)
	assert.Equal(t, 0, summary.Healed)
	assert.Empty(t, summary.Events)
}

func TestHealSkipsInvisibleCandidates(t *testing.T) {
	probe := &fakeProbe{
		counts: map[string]int{
			`[aria-label*="search" i]`: 1,
			`[role="search"]`:          1,
		},
		hidden: map[string]bool{`[aria-label*="search" i]`: true},
	}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	result := healer.Heal(context.Background(), HealingContext{
		Selector: "input.search-field",
	})
	require.True(t, result.Found)
	assert.Equal(t, `[role="search"]`, result.Selector)
	assert.Equal(t, strategyRole, result.Strategy)
}

func TestHealingSummaryBounded(t *testing.T) {
	probe := &fakeProbe{counts: map[string]int{`[aria-label*="search" i]`: 1}}
	healer := NewSelfHealingEngine(probe, nil, nil, nil)

	for i := 0; i < maxHealingEvents+5; i++ {
		// Distinct originals so the engine heals every time instead of
		// confirming the original or hitting the cache.
		hctx := HealingContext{
			Selector:  "#old-" + string(rune('a'+i)),
			Reasoning: "open search",
		}
		result := healer.Heal(context.Background(), hctx)
		require.True(t, result.Found)
	}

	summary := healer.Summary()
	assert.Equal(t, maxHealingEvents+5, summary.Attempts)
	assert.Equal(t, maxHealingEvents+5, summary.Healed)
	assert.Len(t, summary.Events, maxHealingEvents)
}

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t, []string{"click", "the", "checkout"},
		extractKeywords("Click the checkout button", 3))
	assert.Empty(t, extractKeywords("a an to", 3))
}
