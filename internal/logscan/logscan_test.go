package logscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleLog = `2026-08-20T10:12:01Z Set up job
2026-08-20T10:12:04Z Run actions/checkout@v4
2026-08-20T10:12:09Z Run pip install -r requirements.txt
2026-08-20T10:12:31Z ModuleNotFoundError: No module named 'requests'
2026-08-20T10:12:31Z Error: Process completed with exit code 1
2026-08-20T10:12:32Z Warning: The set-output command is deprecated
2026-08-20T10:12:40Z Error: Resource not accessible by integration
2026-08-20T10:14:02Z 3 tests failed
`

func TestAnalyzeCategorizesLines(t *testing.T) {
	a := New(zap.NewNop())
	findings := a.Analyze(sampleLog)
	require.Len(t, findings, 4)

	assert.Equal(t, CategoryMissingDependency, findings[0].Category)
	assert.Equal(t, 4, findings[0].Line)
	assert.Equal(t, CategoryDeprecatedAction, findings[1].Category)
	assert.Equal(t, CategoryPermission, findings[2].Category)
	assert.Equal(t, CategoryTestFailure, findings[3].Category)
}

func TestAnalyzeEmptyLog(t *testing.T) {
	a := New(zap.NewNop())
	assert.Nil(t, a.Analyze(""))
}

func TestFirstMatcherClaimsLine(t *testing.T) {
	// Matches both the dependency and the build matchers; dependency runs
	// first and wins.
	a := New(zap.NewNop())
	findings := a.Analyze("cannot find module './build' build failed\n")
	require.Len(t, findings, 1)
	assert.Equal(t, CategoryMissingDependency, findings[0].Category)
}

func TestContextWindow(t *testing.T) {
	a := New(zap.NewNop())
	findings := a.Analyze(sampleLog)
	require.NotEmpty(t, findings)

	ctx := strings.Split(findings[0].Context, "\n")
	assert.LessOrEqual(t, len(ctx), 7)
	assert.Contains(t, findings[0].Context, "ModuleNotFoundError")
	assert.Contains(t, findings[0].Context, "pip install")
}

func TestSummarize(t *testing.T) {
	a := New(zap.NewNop())
	counts := a.Summarize(a.Analyze(sampleLog))

	assert.Equal(t, 1, counts[CategoryMissingDependency])
	assert.Equal(t, 1, counts[CategoryTestFailure])
	assert.Len(t, counts, 4)
}

func TestAdvise(t *testing.T) {
	adv := Advise(CategoryMissingDependency)
	assert.NotEmpty(t, adv.Description)
	assert.NotEmpty(t, adv.Suggestions)
	assert.True(t, adv.AutoFixable)

	assert.False(t, Advise(CategoryBuild).AutoFixable)
	assert.Empty(t, Advise(Category("nope")).Description)
}
