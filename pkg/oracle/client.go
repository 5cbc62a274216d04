// Package oracle implements the vision-capable decision service boundary
// for SentinelQA. The production client talks to an OpenAI-compatible chat
// completions API; NullOracle stands in when no API key is configured.
package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/Prasadchowdar/SentinelQA/pkg/engine"
	"github.com/Prasadchowdar/SentinelQA/pkg/logging"
)

const (
	// DefaultModel is the vision-capable model used for decisions.
	DefaultModel = "gpt-4o"

	decideMaxTokens = 500
	// Low temperature for consistent, reliable responses.
	decideTemperature = 0.1
)

// Client implements engine.DecisionOracle against an OpenAI-compatible API.
type Client struct {
	client openai.Client
	model  string
	log    *logging.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// ClientOption configures a Client.
type ClientOption func(*Client) []option.RequestOption

// WithModel sets the model used for all oracle calls.
func WithModel(model string) ClientOption {
	return func(c *Client) []option.RequestOption {
		if model != "" {
			c.model = model
		}
		return nil
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint
// (Azure OpenAI, a local model, a gateway).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) []option.RequestOption {
		if baseURL == "" {
			return nil
		}
		return []option.RequestOption{option.WithBaseURL(baseURL)}
	}
}

// NewClient creates an oracle client. The API key is required; callers
// without one should use NullOracle instead.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}

	log, _ := logging.NewLogger("oracle")

	c := &Client{
		model: DefaultModel,
		log:   log,
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		requestOpts = append(requestOpts, opt(c)...)
	}

	c.client = openai.NewClient(requestOpts...)
	return c, nil
}

// Model returns the model name used for oracle calls.
func (c *Client) Model() string {
	return c.model
}

// Decide asks the oracle for the next action given the current perception.
// Transport failures and malformed responses degrade to a wait action
// carrying the failure reason; Decide never fails the run loop.
func (c *Client) Decide(ctx context.Context, req engine.DecideRequest) engine.Action {
	userPrompt := buildDecidePrompt(req.Instruction, req.PageHTML, req.History)
	c.logPromptTokens("decide", decideSystemPrompt, userPrompt)

	content, err := c.visionCall(ctx, decideSystemPrompt, userPrompt, req.Screenshot)
	if err != nil {
		c.log.Errorf("decision request failed: %v", err)
		return engine.WaitAction(fmt.Sprintf("AI request failed: %v", err))
	}

	action, err := engine.ParseAction(content)
	if err != nil {
		c.log.Errorf("failed to parse decision response: %v (raw: %.200s)", err, content)
		return engine.WaitAction(fmt.Sprintf("AI response was not valid JSON: %v", err))
	}

	c.log.Infof("oracle suggested action: %s on %q (%s)", action.Kind, action.Selector, action.Reasoning)
	return action
}

// SuggestSelector asks the oracle for a best-guess selector from a fresh
// screenshot, used as the last-resort healing strategy.
func (c *Client) SuggestSelector(ctx context.Context, req engine.HealRequest) (*engine.SelectorSuggestion, error) {
	userPrompt := buildSuggestPrompt(req.FailedSelector, req.Reasoning, req.Value)

	content, err := c.visionCall(ctx, suggestSystemPrompt, userPrompt, req.Screenshot)
	if err != nil {
		return nil, fmt.Errorf("selector suggestion failed: %w", err)
	}

	suggestion, err := ParseSuggestion(content)
	if err != nil {
		return nil, fmt.Errorf("selector suggestion unusable: %w", err)
	}
	return suggestion, nil
}

// ExplainFailure asks for a one-sentence plain-language failure summary.
func (c *Client) ExplainFailure(ctx context.Context, req engine.ExplainRequest) (string, error) {
	prompt := buildExplainPrompt(req.Instruction, req.TechnicalReason, req.Step)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(120),
		Temperature: openai.Float(decideTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("explanation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("explanation response was empty")
	}
	return resp.Choices[0].Message.Content, nil
}

// visionCall sends a system prompt plus a user turn of text and screenshot,
// returning the raw assistant content.
func (c *Client) visionCall(ctx context.Context, systemPrompt, userPrompt string, screenshot []byte) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userPrompt),
	}
	if len(screenshot) > 0 {
		dataURL := fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(screenshot))
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}))
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(parts),
		},
		MaxTokens:   openai.Int(decideMaxTokens),
		Temperature: openai.Float(decideTemperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// logPromptTokens records prompt size for budget tracking. Token counting
// is best-effort: if the encoder cannot be initialized (e.g. no cached BPE
// data), the call is skipped.
func (c *Client) logPromptTokens(kind, systemPrompt, userPrompt string) {
	c.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			c.log.Warnf("token counting disabled: %v", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return
	}

	total := len(c.enc.Encode(systemPrompt, nil, nil)) + len(c.enc.Encode(userPrompt, nil, nil))
	c.log.Debugf("%s prompt: %d tokens (excluding image)", kind, total)
}
