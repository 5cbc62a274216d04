package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectNavigation(t *testing.T) {
	t.Run("first call records baseline", func(t *testing.T) {
		tracker := NewPageStateTracker()
		navigated, desc := tracker.DetectNavigation("https://example.com/home")
		assert.False(t, navigated)
		assert.Empty(t, desc)
	})

	t.Run("domain change", func(t *testing.T) {
		tracker := NewPageStateTracker()
		tracker.DetectNavigation("https://example.com/home")
		navigated, desc := tracker.DetectNavigation("https://other.com/home")
		assert.True(t, navigated)
		assert.Equal(t, "Domain changed: example.com → other.com", desc)
	})

	t.Run("path change", func(t *testing.T) {
		tracker := NewPageStateTracker()
		tracker.DetectNavigation("https://example.com/home")
		navigated, desc := tracker.DetectNavigation("https://example.com/cart")
		assert.True(t, navigated)
		assert.Equal(t, "Path changed: /home → /cart", desc)
	})

	t.Run("query change is state change not navigation", func(t *testing.T) {
		tracker := NewPageStateTracker()
		tracker.DetectNavigation("https://example.com/search")
		navigated, desc := tracker.DetectNavigation("https://example.com/search?q=laptop")
		assert.False(t, navigated)
		assert.Equal(t, "URL params changed (possible state change)", desc)
	})

	t.Run("fragment change is state change not navigation", func(t *testing.T) {
		tracker := NewPageStateTracker()
		tracker.DetectNavigation("https://example.com/docs")
		navigated, desc := tracker.DetectNavigation("https://example.com/docs#install")
		assert.False(t, navigated)
		assert.Equal(t, "URL params changed (possible state change)", desc)
	})

	t.Run("identical url reports nothing", func(t *testing.T) {
		tracker := NewPageStateTracker()
		tracker.DetectNavigation("https://example.com/home")
		navigated, desc := tracker.DetectNavigation("https://example.com/home")
		assert.False(t, navigated)
		assert.Empty(t, desc)
	})

	t.Run("baseline advances after state change", func(t *testing.T) {
		tracker := NewPageStateTracker()
		tracker.DetectNavigation("https://example.com/search")
		tracker.DetectNavigation("https://example.com/search?q=laptop")
		navigated, desc := tracker.DetectNavigation("https://example.com/search?q=laptop")
		assert.False(t, navigated)
		assert.Empty(t, desc)
	})
}

func TestDetectSuccessMessage(t *testing.T) {
	tracker := NewPageStateTracker()

	found, keyword := tracker.DetectSuccessMessage(`<div class="banner">Thank You! Your order is on its way.</div>`)
	assert.True(t, found)
	assert.Equal(t, "thank you", keyword)

	found, keyword = tracker.DetectSuccessMessage(`<p>Please fill in the required fields.</p>`)
	assert.False(t, found)
	assert.Empty(t, keyword)
}

func TestVisibleText(t *testing.T) {
	raw := `<html><head><style>.x{color:red}</style><script>var a=1;</script></head>` +
		`<body><h1>Checkout</h1><p>Order confirmed</p><noscript>enable js</noscript></body></html>`

	text := VisibleText(raw, 500)
	assert.Equal(t, "Checkout Order confirmed", text)

	truncated := VisibleText(raw, 8)
	assert.Equal(t, "Checkout", truncated)
}
