// Package ai abstracts over interchangeable text-generation backends.
// Hosted backends (OpenAI, Gemini) meter real token usage and dollar
// cost per request; the self-hosted Ollama backend has zero marginal
// cost and approximates token counts. Callers pick a backend through
// the registry and wrap calls in a Retryer for transient failures.
package ai

import (
	"context"
	"time"
)

// Message is one turn of a chat-style completion.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// Response is the ephemeral result of one generation call. It is never
// persisted; callers consume it immediately.
type Response struct {
	Content    string
	Model      string
	Provider   string
	TokensUsed int
	Cost       float64 // USD
	Latency    time.Duration
}

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	Name            string
	ContextLength   int
	CostPer1KTokens float64 // USD
	Description     string
}

// Options tune a single generation call. Zero values fall back to
// provider defaults.
type Options struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	Stop        []string
}

// Provider is the capability set every backend implements.
type Provider interface {
	Name() string

	GenerateText(ctx context.Context, prompt string, opts Options) (*Response, error)
	GenerateChat(ctx context.Context, messages []Message, opts Options) (*Response, error)

	// GenerateStructured asks for JSON matching dest's shape and decodes
	// into it, tolerating markdown code fences around the payload.
	// A response that does not decode yields a *ParseError.
	GenerateStructured(ctx context.Context, prompt string, dest interface{}, opts Options) error

	Models() []ModelInfo
	EstimateCost(tokens int, model string) float64
	CountTokens(text string) int
}
