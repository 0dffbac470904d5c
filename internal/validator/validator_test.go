package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validWorkflow = `name: CI
on:
  push:
    branches: [main]
permissions:
  contents: read
jobs:
  build:
    runs-on: ubuntu-latest
    timeout-minutes: 15
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-python@v5
        with:
          python-version: '3.11'
      - run: make test
`

func TestValidWorkflowPasses(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate(validWorkflow)

	assert.True(t, res.IsValid, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
	assert.Zero(t, res.CriticalErrors)
	assert.True(t, res.ProperPermissions)
	assert.Zero(t, res.SeverityScore)
}

func TestParseFailureIsCritical(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("jobs:\n  build:\n   bad\n  indent: [\n")

	assert.False(t, res.IsValid)
	assert.Equal(t, 1, res.CriticalErrors)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "YAML parse error")
}

func TestMissingRequiredKeys(t *testing.T) {
	v := New(zap.NewNop())

	res := v.Validate("name: CI\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n")
	assert.False(t, res.IsValid)
	assert.Contains(t, strings.Join(res.Errors, "; "), "missing required top-level key: on")

	res = v.Validate("name: CI\non:\n  push:\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), "missing required top-level key: jobs")
}

func TestBooleanTriggerKeyIsDiagnosed(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("true:\n  push:\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n")

	assert.False(t, res.IsValid)
	assert.Contains(t, strings.Join(res.Errors, "; "), "parsed as boolean")
	assert.GreaterOrEqual(t, res.CriticalErrors, 1)
}

func TestUnknownTrigger(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on:\n  pushh:\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n")

	joined := strings.Join(res.Errors, "; ")
	assert.Contains(t, joined, "unknown trigger type: pushh")
	assert.Contains(t, joined, "no valid trigger types")
}

func TestUnknownRunnerSuggestsNearest(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-lat\n    steps:\n      - run: make test\n")

	require.False(t, res.IsValid)
	joined := strings.Join(res.Errors, "; ")
	assert.Contains(t, joined, `unknown runner "ubuntu-lat"`)
	assert.Contains(t, joined, "ubuntu-latest")
}

func TestExpressionRunnerIsSkipped(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ${{ matrix.os }}\n    strategy:\n      matrix:\n        os: [ubuntu-latest]\n    steps:\n      - run: make test\n")
	assert.True(t, res.IsValid, "errors: %v", res.Errors)
}

func TestStepRequiresUsesOrRun(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - name: nothing here\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), "neither uses nor run")
}

func TestActionVersionTagRequired(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), "no version tag")

	// Local and docker actions are exempt.
	res = v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: ./local-action\n")
	assert.True(t, res.IsValid, "errors: %v", res.Errors)
}

func TestKnownActionInputs(t *testing.T) {
	v := New(zap.NewNop())

	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/setup-python@v5\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), `missing required input "python-version"`)

	res = v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/setup-python@v5\n        with:\n          python-version: '3.11'\n          pyhton: oops\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), `unknown input "pyhton"`)
}

func TestMatrixSizeLimit(t *testing.T) {
	v := New(zap.NewNop())

	var b strings.Builder
	b.WriteString("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    strategy:\n      matrix:\n        x:\n")
	for i := 0; i < 20; i++ {
		b.WriteString("          - a\n")
	}
	b.WriteString("        y:\n")
	for i := 0; i < 20; i++ {
		b.WriteString("          - b\n")
	}
	b.WriteString("    steps:\n      - run: make test\n")

	res := v.Validate(b.String())
	assert.Contains(t, strings.Join(res.Errors, "; "), "400 combinations")
}

func TestSoftChecks(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: pip install -r requirements.txt\n")

	assert.True(t, res.IsValid)
	joined := strings.Join(res.Warnings, "; ")
	assert.Contains(t, joined, "timeout-minutes")
	assert.Contains(t, strings.Join(res.Suggestions, "; "), "actions/cache")
}

func TestSeverityScore(t *testing.T) {
	v := New(zap.NewNop())

	// Two errors and one warning: 2*20 + 1*5 = 45.
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-wat\n    steps:\n      - uses: actions/checkout\n")
	assert.Equal(t, 45, res.SeverityScore)

	// Score saturates at 100.
	var b strings.Builder
	b.WriteString("on: push\njobs:\n")
	for _, j := range []string{"a", "b", "c", "d", "e", "f"} {
		b.WriteString("  " + j + ":\n    runs-on: nope-runner\n    steps:\n      - uses: actions/checkout\n")
	}
	res = v.Validate(b.String())
	assert.Equal(t, 100, res.SeverityScore)
}

func TestWriteAllPermissionsIsImproper(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\npermissions: write-all\njobs:\n  a:\n    runs-on: ubuntu-latest\n    timeout-minutes: 5\n    steps:\n      - run: make test\n")

	assert.False(t, res.ProperPermissions)
	assert.Contains(t, strings.Join(res.Warnings, "; "), "write-all")
}

func TestRunCommandLint(t *testing.T) {
	v := New(zap.NewNop())
	res := v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: pip install -r requirement.txt\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), "requirement.txt")

	res = v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: |\n          export PYTHONPATH=\n          make test\n")
	assert.Contains(t, strings.Join(res.Errors, "; "), "export with no value")

	res = v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: ./run-tests.sh $@\n")
	assert.Contains(t, strings.Join(res.Warnings, "; "), "unquoted")

	res = v.Validate("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: ./run-tests.sh \"$@\"\n")
	assert.NotContains(t, strings.Join(res.Warnings, "; "), "unquoted")
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 10.0/13.0, similarity("ubuntu-lat", "ubuntu-latest"), 1e-9)
	assert.Equal(t, 1.0, similarity("same", "same"))
	assert.Equal(t, 0.0, similarity("", "abc"))
}
