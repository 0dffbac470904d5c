// Package detector runs the pattern catalog over a raw workflow buffer and
// produces positioned, contextualized error records. Detection is pure: it
// never mutates the buffer and carries no state between invocations.
package detector

import (
	"strings"

	"go.uber.org/zap"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/registry"
)

// contextRadius is how many lines before and after the matched line are
// included in an error's context window.
const contextRadius = 2

// Detector scans buffers against an ordered pattern set.
type Detector struct {
	log      *zap.Logger
	patterns []*schemas.Pattern
}

// New returns a detector over the full registry catalog.
func New(log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{log: log, patterns: registry.Patterns()}
}

// NewWithPatterns returns a detector restricted to the given patterns,
// preserving their order. Used by the fix engine's per-category functions.
func NewWithPatterns(log *zap.Logger, patterns []*schemas.Pattern) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{log: log, patterns: patterns}
}

// Detect returns every pattern match in the buffer, in catalog order and
// then in buffer order within each pattern. An empty buffer yields nil.
func (d *Detector) Detect(content string) []schemas.DetectedError {
	if content == "" {
		return nil
	}

	var found []schemas.DetectedError
	for _, p := range d.patterns {
		locs := p.Matcher.FindAllStringIndex(content, -1)
		for _, loc := range locs {
			match := content[loc[0]:loc[1]]
			line := 1 + strings.Count(content[:loc[0]], "\n")
			found = append(found, schemas.DetectedError{
				Pattern:      p,
				Match:        match,
				Line:         line,
				Context:      contextWindow(content, line),
				SuggestedFix: registry.SuggestionFor(p, match),
			})
		}
		if len(locs) > 0 {
			d.log.Debug("pattern matched",
				zap.String("pattern", p.Name),
				zap.Int("count", len(locs)))
		}
	}
	return found
}

// contextWindow returns the lines [line-contextRadius, line+contextRadius],
// clipped to the buffer bounds. line is 1-based.
func contextWindow(content string, line int) string {
	lines := strings.Split(content, "\n")
	start := line - 1 - contextRadius
	if start < 0 {
		start = 0
	}
	end := line + contextRadius
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
