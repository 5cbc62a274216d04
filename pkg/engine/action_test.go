package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Action
		wantErr bool
	}{
		{
			name: "plain json click",
			raw:  `{"action": "click", "selector": "#submit", "reasoning": "submit the form"}`,
			want: Action{Kind: ActionClick, Selector: "#submit", Reasoning: "submit the form"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"action\": \"type\", \"selector\": \"#q\", \"value\": \"laptop\"}\n```",
			want: Action{Kind: ActionType, Selector: "#q", Value: "laptop"},
		},
		{
			name: "fenced without language tag",
			raw:  "```\n{\"action\": \"wait\", \"selector\": \".spinner\"}\n```",
			want: Action{Kind: ActionWait, Selector: ".spinner"},
		},
		{
			name: "fence with leading prose",
			raw:  "Here is the next action:\n```json\n{\"action\": \"complete\"}\n```",
			want: Action{Kind: ActionComplete},
		},
		{
			name: "verify defaults applied",
			raw:  `{"action": "verify", "selector": ".toast"}`,
			want: Action{
				Kind:       ActionVerify,
				Selector:   ".toast",
				VerifyType: VerifyExists,
				Assertion:  "Verify exists",
			},
		},
		{
			name: "verify keeps explicit fields",
			raw:  `{"action": "verify", "verify_type": "text_contains", "selector": "h1", "expected": "Welcome", "assertion": "Heading greets the user"}`,
			want: Action{
				Kind:       ActionVerify,
				Selector:   "h1",
				VerifyType: VerifyTextContains,
				Expected:   "Welcome",
				Assertion:  "Heading greets the user",
			},
		},
		{
			name:    "not json",
			raw:     "I think you should click the button",
			wantErr: true,
		},
		{
			name:    "unknown action kind",
			raw:     `{"action": "hover", "selector": "#menu"}`,
			wantErr: true,
		},
		{
			name:    "unknown verify type",
			raw:     `{"action": "verify", "verify_type": "smells_right"}`,
			wantErr: true,
		},
		{
			name:    "empty action kind",
			raw:     `{"selector": "#submit"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
		{"surrounding whitespace", "  \n{\"a\": 1}\n ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestActionDescribe(t *testing.T) {
	click := Action{Kind: ActionClick, Selector: "#buy", Reasoning: "buy the item"}
	assert.Equal(t, "click on '#buy' - buy the item", click.Describe())

	long := Action{Kind: ActionType, Selector: "#q", Reasoning: strings.Repeat("x", 80)}
	assert.Len(t, long.Describe(), len("type on '#q' - ")+50)

	verify := Action{Kind: ActionVerify, Assertion: "Cart shows one item"}
	assert.Equal(t, "verify: Cart shows one item", verify.Describe())
}
