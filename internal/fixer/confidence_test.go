package fixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/registry"
)

func detected(t *testing.T, name, match, context string, line int) schemas.DetectedError {
	t.Helper()
	p := registry.Lookup(name)
	require.NotNil(t, p, "unknown pattern %q", name)
	return schemas.DetectedError{Pattern: p, Match: match, Line: line, Context: context}
}

func TestScoreTiers(t *testing.T) {
	longCtx := "jobs:\n  build:\n    runs-on: ubuntu-lat\n    steps:"

	tests := []struct {
		name    string
		err     schemas.DetectedError
		want    schemas.ConfidenceTier
	}{
		// 0.90 base + 0.15 known-safe + 0.05 configuration + 0.03 context, clamped.
		{"runner typo", detected(t, "invalid_runner_label", "runs-on: ubuntu-lat", longCtx, 3), schemas.TierVeryHigh},
		// 0.85 base + 0.05 medium-safe + 0.03 context = 0.93.
		{"incomplete action", detected(t, "action_version_incomplete", "uses: actions/checkout@", longCtx, 5), schemas.TierVeryHigh},
		// Security exemption: permissions_too_broad keeps its boost.
		{"broad permissions", detected(t, "permissions_too_broad", "permissions: write-all", longCtx, 2), schemas.TierVeryHigh},
		// 0.50 base - 0.10 security + 0.03 context = 0.43.
		{"hardcoded secret", detected(t, "hardcoded_secret", `password: "hunter2hunter2"`, longCtx, 9), schemas.TierLow},
		// 0.60 base + 0.05 configuration + 0.03 context = 0.68.
		{"unbraced env var", detected(t, "env_var_unbraced", "$BUILD_DIR", longCtx, 4), schemas.TierMedium},
		// Short context forfeits the context bonus: 0.60 + 0.05 = 0.65.
		{"unbraced short context", detected(t, "env_var_unbraced", "$X", "echo", 4), schemas.TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.err))
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	e := detected(t, "invalid_runner_label", "runs-on: ubuntu-lat", "jobs:\n  build:\n    runs-on: ubuntu-lat", 3)
	first := Score(e)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(e))
	}
}

func TestTierGate(t *testing.T) {
	assert.True(t, schemas.TierVeryHigh.AtLeast(schemas.TierHigh))
	assert.True(t, schemas.TierHigh.AtLeast(schemas.TierHigh))
	assert.False(t, schemas.TierMedium.AtLeast(schemas.TierHigh))
	assert.False(t, schemas.TierVeryLow.AtLeast(schemas.TierLow))
}
