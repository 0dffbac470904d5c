package reporting

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/logscan"
	"github.com/quellcrist/flowmend/internal/registry"
)

func sampleReport(t *testing.T) *schemas.FixReport {
	t.Helper()
	p := registry.Lookup("invalid_runner_label")
	require.NotNil(t, p)

	rep := schemas.NewFixReport()
	rep.Passes = 2
	rep.Converged = true
	rep.Attempts = []schemas.FixAttempt{
		{
			Error:       schemas.DetectedError{Pattern: p, Match: "runs-on: ubuntu-lat", Line: 7},
			Description: "Replace 'ubuntu-lat' with 'ubuntu-latest'",
			Confidence:  schemas.TierVeryHigh,
			Status:      schemas.FixSuccess,
			Pass:        1,
		},
		{
			Error:       schemas.DetectedError{Pattern: registry.Lookup("env_var_unbraced"), Match: "$X", Line: 12},
			Description: "confidence medium below configured minimum",
			Confidence:  schemas.TierMedium,
			Status:      schemas.FixSkipped,
			Pass:        1,
		},
	}
	rep.Validation = &schemas.ValidationResult{IsValid: true, ProperPermissions: true}
	rep.Tally()
	return rep
}

func sampleFindings() []logscan.Finding {
	return []logscan.Finding{
		{Category: logscan.CategoryMissingDependency, Line: 4, Text: "ModuleNotFoundError: No module named 'requests'", Context: "..."},
		{Category: logscan.CategoryPermission, Line: 9, Text: "Resource not accessible by integration", Context: "..."},
	}
}

func TestFactory(t *testing.T) {
	for _, f := range []string{"markdown", "md", "", "json"} {
		r, err := New(f)
		require.NoError(t, err, f)
		assert.NotNil(t, r)
	}
	_, err := New("xml")
	assert.Error(t, err)
}

func TestMarkdownFixReport(t *testing.T) {
	r, err := New("markdown")
	require.NoError(t, err)

	out, err := r.FixReport(".github/workflows/ci.yml", sampleReport(t))
	require.NoError(t, err)

	assert.Contains(t, out, "# Workflow Fix Report")
	assert.Contains(t, out, "`.github/workflows/ci.yml`")
	assert.Contains(t, out, "| 2 | 1 | 1 | 0 | 2 | true |")
	assert.Contains(t, out, "invalid_runner_label")
	assert.Contains(t, out, "very_high")
	assert.Contains(t, out, "scoped permissions: true")
}

func TestMarkdownAnalysis(t *testing.T) {
	r, err := New("markdown")
	require.NoError(t, err)

	out, err := r.Analysis("run 12345", sampleFindings())
	require.NoError(t, err)

	assert.Contains(t, out, "# Run Log Analysis")
	assert.Contains(t, out, "## missing_dependency (1)")
	assert.Contains(t, out, "## permission (1)")
	assert.Contains(t, out, "Likely fixable automatically")

	out, err = r.Analysis("run 0", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No recognized failure signatures")
}

func TestJSONReportsAreValid(t *testing.T) {
	r, err := New("json")
	require.NoError(t, err)

	out, err := r.FixReport("ci.yml", sampleReport(t))
	require.NoError(t, err)
	var fixDoc map[string]any
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &fixDoc))
	assert.Equal(t, "ci.yml", fixDoc["file"])

	out, err = r.Analysis("run 12345", sampleFindings())
	require.NoError(t, err)
	var anaDoc map[string]any
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &anaDoc))
	assert.Equal(t, "run 12345", anaDoc["source"])
}

func TestPRBodyListsOnlySuccesses(t *testing.T) {
	body := PRBody("ci.yml", sampleReport(t))

	assert.Contains(t, body, "Applied 1 of 2")
	assert.Contains(t, body, "invalid_runner_label")
	assert.NotContains(t, body, "env_var_unbraced")
	assert.Contains(t, body, "below the confidence bar")
	assert.Contains(t, body, "passes structural validation")
}

func TestIssueBodySkipsAutoFixable(t *testing.T) {
	body := IssueBody("run 12345", sampleFindings())

	// Dependency findings are auto-fixable and stay out of the issue.
	assert.NotContains(t, body, "missing_dependency")
	assert.Contains(t, body, "permission")
}

func TestSanitizeCell(t *testing.T) {
	assert.Equal(t, "a b \\| c", sanitizeCell("a\nb | c"))
}
