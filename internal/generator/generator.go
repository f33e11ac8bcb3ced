//go:generate mockery --name Generator --output ./mocks --outpkg mocks --case=underscore
package generator

import (
	"context"
	"strings"
)

// Generator turns a prompt into raw model text. Implementations are
// synchronous and honor ctx cancellation; failures wrap
// model.ErrGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StripCodeFences removes a surrounding ```json ... ``` block, which models
// emit even when asked for bare JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
