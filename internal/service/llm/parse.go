package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"kakehashi/internal/domain"
)

// stripCodeFence removes a surrounding markdown code fence, including
// an optional "json" language tag, and returns the inner text.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	parts := strings.Split(text, "```")
	if len(parts) > 1 {
		text = parts[1]
	}
	text = strings.TrimPrefix(text, "json")

	return strings.TrimSpace(text)
}

// decodeJSONResponse parses a structured model response, tolerating a
// markdown code fence around the JSON body. Failures are reported as
// domain.ErrCollaboratorParse so callers can apply their degrade
// policies.
func decodeJSONResponse(text string, out any) error {
	cleaned := stripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("decode model response: %v: %w", err, domain.ErrCollaboratorParse)
	}
	return nil
}
