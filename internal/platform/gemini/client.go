// Package gemini implements domain.Generator on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// ErrEmptyResponse is returned when the model answers without any text part.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Client generates text with a single Gemini model.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a Client for model authenticated with apiKey. A zero timeout
// leaves request deadlines to the caller's context.
func New(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: new client: %w", domain.ErrGeneratorUnavailable)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{client: client, model: model, timeout: timeout}, nil
}

// Generate sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.model)
	if opts.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(opts.SystemInstruction))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Available reports that a model is configured.
func (c *Client) Available() bool { return true }

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

// Disabled is the generator wired when no API key is configured. Every call
// fails, so callers fall back to their fixed replies.
type Disabled struct{}

// Generate always returns domain.ErrGeneratorUnavailable.
func (Disabled) Generate(context.Context, string, domain.GenerateOptions) (string, error) {
	return "", domain.ErrGeneratorUnavailable
}

// Available always reports false.
func (Disabled) Available() bool { return false }

var (
	_ domain.Generator = (*Client)(nil)
	_ domain.Generator = Disabled{}
)
