package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiOptions configures a Gemini-backed client.
type GeminiOptions struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model is the model identifier, e.g. "gemini-2.5-flash".
	Model string

	// Temperature is the sampling temperature.
	Temperature float32

	// MaxRetries bounds how many times a failed call is retried with
	// exponential backoff before the error is surfaced.
	MaxRetries int
}

// Gemini implements Client against the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxRetries  int
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxRetries:  opts.MaxRetries,
	}, nil
}

// Generate sends the messages to the Gemini API. System messages
// become the system instruction; user messages become the contents.
// Transient failures are retried with exponential backoff (1s, 2s,
// 4s, ...) up to MaxRetries.
func (g *Gemini) Generate(ctx context.Context, messages []Message) (*Response, error) {
	var system []string
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no user messages to send")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	var lastErr error
	for i := 0; i <= g.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			lastErr = err
			continue
		}

		text := resp.Text()
		if text == "" {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}

		out := &Response{Content: text}
		if resp.UsageMetadata != nil {
			out.Usage = Usage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("generation failed after %d retries: %w", g.maxRetries, lastErr)
}

// Verify Gemini implements Client interface.
var _ Client = (*Gemini)(nil)
