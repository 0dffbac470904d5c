// Package reporting renders fix and analysis results for humans and
// machines. The format-switch factory mirrors how reports are produced
// everywhere else in the tool: pick a Reporter once, render many times.
package reporting

import (
	"fmt"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/logscan"
)

// Reporter renders the two report kinds the CLI emits.
type Reporter interface {
	// FixReport renders the outcome of one fix run over one file.
	FixReport(path string, rep *schemas.FixReport) (string, error)
	// Analysis renders categorized run-log findings with advice.
	Analysis(source string, findings []logscan.Finding) (string, error)
}

// New returns the reporter for a format: "markdown" or "json".
func New(format string) (Reporter, error) {
	switch format {
	case "markdown", "md", "":
		return &markdownReporter{}, nil
	case "json":
		return &jsonReporter{}, nil
	default:
		return nil, fmt.Errorf("reporting: unsupported format %q (want markdown or json)", format)
	}
}
