package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/logscan"
)

type markdownReporter struct{}

func (m *markdownReporter) FixReport(path string, rep *schemas.FixReport) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Workflow Fix Report\n\n")
	fmt.Fprintf(&b, "**File:** `%s`  \n", path)
	fmt.Fprintf(&b, "**Report:** `%s`  \n", rep.ReportID)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Detected | Fixed | Skipped | Failed | Passes | Converged |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %v |\n\n",
		rep.TotalErrors, rep.FixedErrors, rep.SkippedErrors, rep.FailedFixes, rep.Passes, rep.Converged)

	if len(rep.ConfidenceDistribution) > 0 {
		fmt.Fprintf(&b, "### Confidence distribution\n\n")
		tiers := make([]string, 0, len(rep.ConfidenceDistribution))
		for tier := range rep.ConfidenceDistribution {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		for _, tier := range tiers {
			fmt.Fprintf(&b, "- %s: %d\n", tier, rep.ConfidenceDistribution[tier])
		}
		b.WriteString("\n")
	}

	if len(rep.Attempts) > 0 {
		fmt.Fprintf(&b, "## Fix log\n\n")
		fmt.Fprintf(&b, "| Pass | Status | Pattern | Line | Confidence | Description |\n")
		fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
		for _, a := range rep.Attempts {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %s | %s |\n",
				a.Pass, a.Status, a.Error.Pattern.Name, a.Error.Line, a.Confidence, sanitizeCell(a.Description))
		}
		b.WriteString("\n")
	}

	if rep.Validation != nil {
		fmt.Fprintf(&b, "## Validation\n\n")
		fmt.Fprintf(&b, "- valid: %v\n", rep.Validation.IsValid)
		fmt.Fprintf(&b, "- severity score: %d/100\n", rep.Validation.SeverityScore)
		fmt.Fprintf(&b, "- scoped permissions: %v\n", rep.Validation.ProperPermissions)
		for _, e := range rep.Validation.Errors {
			fmt.Fprintf(&b, "- ❌ %s\n", e)
		}
		for _, w := range rep.Validation.Warnings {
			fmt.Fprintf(&b, "- ⚠️ %s\n", w)
		}
		for _, s := range rep.Validation.Suggestions {
			fmt.Fprintf(&b, "- 💡 %s\n", s)
		}
	}

	return b.String(), nil
}

func (m *markdownReporter) Analysis(source string, findings []logscan.Finding) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run Log Analysis\n\n")
	fmt.Fprintf(&b, "**Source:** `%s`  \n", source)
	fmt.Fprintf(&b, "**Findings:** %d\n\n", len(findings))

	if len(findings) == 0 {
		b.WriteString("No recognized failure signatures in the log.\n")
		return b.String(), nil
	}

	byCat := make(map[logscan.Category][]logscan.Finding)
	var order []logscan.Category
	for _, f := range findings {
		if _, seen := byCat[f.Category]; !seen {
			order = append(order, f.Category)
		}
		byCat[f.Category] = append(byCat[f.Category], f)
	}

	for _, cat := range order {
		adv := logscan.Advise(cat)
		fmt.Fprintf(&b, "## %s (%d)\n\n", cat, len(byCat[cat]))
		if adv.Description != "" {
			fmt.Fprintf(&b, "%s.", adv.Description)
			if adv.AutoFixable {
				b.WriteString(" Likely fixable automatically.")
			}
			b.WriteString("\n\n")
		}
		for _, f := range byCat[cat] {
			fmt.Fprintf(&b, "- line %d: `%s`\n", f.Line, sanitizeCell(f.Text))
		}
		if len(adv.Suggestions) > 0 {
			b.WriteString("\nSuggestions:\n")
			for _, s := range adv.Suggestions {
				fmt.Fprintf(&b, "- %s\n", s)
			}
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// PRBody renders the pull-request description for an automated fix.
func PRBody(path string, rep *schemas.FixReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Automated workflow repair for `%s`.\n\n", path)
	fmt.Fprintf(&b, "Applied %d of %d detected fixes in %d pass(es).\n\n", rep.FixedErrors, rep.TotalErrors, rep.Passes)

	for _, a := range rep.Attempts {
		if a.Status != schemas.FixSuccess {
			continue
		}
		fmt.Fprintf(&b, "- **%s** (line %d, %s confidence): %s\n",
			a.Error.Pattern.Name, a.Error.Line, a.Confidence, sanitizeCell(a.Description))
	}

	if rep.SkippedErrors > 0 {
		fmt.Fprintf(&b, "\n%d finding(s) stayed below the confidence bar and were left untouched; see the attached report.\n", rep.SkippedErrors)
	}
	if rep.Validation != nil && rep.Validation.IsValid {
		b.WriteString("\nThe corrected file passes structural validation.\n")
	}
	return b.String()
}

// IssueBody renders an issue description for failures that need a human.
func IssueBody(source string, findings []logscan.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Workflow run `%s` failed with issues that need manual attention.\n\n", source)
	for _, f := range findings {
		adv := logscan.Advise(f.Category)
		if adv.AutoFixable {
			continue
		}
		fmt.Fprintf(&b, "### %s (line %d)\n\n```\n%s\n```\n\n", f.Category, f.Line, f.Context)
		for _, s := range adv.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// sanitizeCell keeps markdown table cells on one line.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
