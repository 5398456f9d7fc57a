// Package lorem is a mock text-generation provider used for local
// development without real API keys. Its free-form output never parses
// as the structured scoring or feedback JSON, which exercises the
// collaborator's degrade paths end to end.
package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "kakehashi/internal/domain/services/llm"
)

// Provider generates lorem ipsum text.
type Provider struct {
	generator *loremgen.Lorem
	delay     time.Duration
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     300 * time.Millisecond,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// GenerateText produces one to three sentences after a short simulated
// API delay.
func (p *Provider) GenerateText(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	if !p.SupportsModel(req.Model) {
		return "", fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var sb strings.Builder
	sentences := 1 + len(req.Messages)%3
	for i := 0; i < sentences; i++ {
		sb.WriteString(p.generator.Sentence(5, 12))
		sb.WriteString(" ")
	}

	return strings.TrimSpace(sb.String()), nil
}
