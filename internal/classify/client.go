// Package classify turns extracted document text into a validated retention
// decision via the chat-completion API. The caller-visible contract is
// "always returns a decision, never an error": every failure path resolves to
// the fallback decision with a diagnostic reasoning.
package classify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/logger"
	"github.com/timmy/retention/internal/prompts"
	"github.com/timmy/retention/internal/retry"
)

// Config holds classification client configuration.
type Config struct {
	Endpoint     string // chat-completions endpoint
	APIKey       string
	Model        string
	HTTPTimeout  time.Duration
	MaxTextChars int // text preview budget sent to the model
	Retry        retry.Policy
}

// Client issues one structured classification request per extracted document.
type Client struct {
	client       *resty.Client
	endpoint     string
	model        string
	maxTextChars int
	policy       retry.Policy
}

// NewClient creates a classification client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxChars := cfg.MaxTextChars
	if maxChars == 0 {
		maxChars = 2000
	}

	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{
		client:       client,
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		maxTextChars: maxChars,
		policy:       cfg.Retry,
	}
}

// OpenAI-compatible chat completion request/response structures.
type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends document metadata plus a text preview to the chat API and
// returns a validated RetentionDecision. Network failures, exhausted retries,
// unparseable content, and schema violations all resolve to the fallback
// decision; the file identity only appears in logs.
func (c *Client) Classify(ctx context.Context, file domain.ScannedFile, extraction domain.ExtractionResult) domain.RetentionDecision {
	ctx = logger.WithField(ctx, logger.FieldFile, file.Path)

	req := chatRequest{
		Model:          c.model,
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: prompts.RetentionSystemPrompt},
			{Role: "user", Content: buildUserMessage(file, extraction, c.maxTextChars)},
		},
	}

	var parsed chatResponse
	_, err := c.policy.Execute(ctx, "classify", func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&parsed).
			Post(c.endpoint)
	})
	if err != nil {
		logger.CtxError(ctx, "Classification request failed: %v", err)
		return domain.FallbackDecision(err.Error())
	}

	if len(parsed.Choices) == 0 {
		logger.CtxWarn(ctx, "Classification response has no choices")
		return domain.FallbackDecision("no choices in classification response")
	}

	decision, err := parseDecision(parsed.Choices[0].Message.Content)
	if err != nil {
		logger.CtxWarn(ctx, "Classification response rejected: %v", err)
		return domain.FallbackDecision(err.Error())
	}

	logger.CtxInfo(ctx, "Classified: action=%s score=%d confidence=%.2f",
		decision.Action, decision.Score, decision.Confidence)
	return decision
}
