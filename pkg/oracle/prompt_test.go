package oracle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHistoryContext(t *testing.T) {
	assert.Empty(t, buildHistoryContext(nil))

	ctx := buildHistoryContext([]string{
		"click on '#login' - open the login form",
		"type on '#email' - enter the email address",
	})
	assert.Contains(t, ctx, "ACTIONS ALREADY COMPLETED (DO NOT REPEAT THESE):")
	assert.Contains(t, ctx, "1. click on '#login' - open the login form")
	assert.Contains(t, ctx, "2. type on '#email' - enter the email address")
	assert.Contains(t, ctx, "DIFFERENT action/element")
}

func TestBuildDecidePrompt(t *testing.T) {
	prompt := buildDecidePrompt("log in as admin", "<button>Login</button>", []string{"click on '#x' - first try"})

	assert.Contains(t, prompt, `Instruction to complete: "log in as admin"`)
	assert.Contains(t, prompt, "<button>Login</button>")
	assert.Contains(t, prompt, "1. click on '#x' - first try")
	assert.Contains(t, prompt, "Return your response as JSON only.")
}

func TestBuildDecidePromptTruncatesHTML(t *testing.T) {
	huge := strings.Repeat("x", maxHTMLContext+500)
	prompt := buildDecidePrompt("anything", huge, nil)

	assert.Contains(t, prompt, strings.Repeat("x", maxHTMLContext))
	assert.NotContains(t, prompt, strings.Repeat("x", maxHTMLContext+1))
}

func TestBuildSuggestPrompt(t *testing.T) {
	prompt := buildSuggestPrompt("#gone", "click the pay button", "42.00")
	assert.Contains(t, prompt, `The selector "#gone" failed`)
	assert.Contains(t, prompt, "click the pay button")
	assert.Contains(t, prompt, `"42.00"`)

	bare := buildSuggestPrompt("#gone", "", "")
	assert.NotContains(t, bare, "intended:")
	assert.NotContains(t, bare, "Associated value")
}

func TestBuildExplainPrompt(t *testing.T) {
	prompt := buildExplainPrompt("buy a laptop", "selector #buy not found", 4)
	assert.Contains(t, prompt, `"buy a laptop"`)
	assert.Contains(t, prompt, "step 4")
	assert.Contains(t, prompt, "selector #buy not found")
}
