// Package generator defines the LLM capability used by the agent loop
// and its implementations. The agent only sees the Client interface;
// swapping the Gemini-backed client for the mock changes no loop code.
package generator

import "context"

// Message roles. The loop only ever sends system and user messages;
// previous candidates travel inside the retry prompt body.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry in a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for a single generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of a generation call.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Client generates a completion for an ordered message list. Generate
// returns an error only for transport or API failures; unusable
// content in a successful response is the caller's problem.
type Client interface {
	Generate(ctx context.Context, messages []Message) (*Response, error)
}
