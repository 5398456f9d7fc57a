// Package llm defines the provider contract for text generation.
// Concrete providers live under internal/service/llm/providers.
package llm

import "context"

// Message is one prior exchange handed to a provider.
type Message struct {
	Role    string // user or assistant
	Content string
}

// GenerateRequest is a single text-generation call.
type GenerateRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider produces a complete text response for a request.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// SupportsModel reports whether the provider can serve the model.
	SupportsModel(model string) bool
	// GenerateText returns the full response text for the request.
	GenerateText(ctx context.Context, req *GenerateRequest) (string, error)
}
