package fixer

import (
	"strings"

	"github.com/quellcrist/flowmend/api/schemas"
)

// knownSafe names patterns whose fixes are unambiguous typo or structure
// repairs; they earn the largest confidence boost.
var knownSafe = map[string]bool{
	"yaml_on_key_quoted":      true,
	"yaml_on_key_boolean":     true,
	"invalid_runner_label":    true,
	"deprecated_runner_label": true,
	"checkout_name_typo":      true,
	"env_var_name_typo":       true,
	"pythonpath_typo":         true,
	"requirements_file_typo":  true,
	"timeout_key_invalid":     true,
	"working_directory_typo":  true,
}

// mediumSafe names patterns whose fixes are mechanical but depend on
// post-fix validation to confirm.
var mediumSafe = map[string]bool{
	"action_version_incomplete":    true,
	"action_version_missing":       true,
	"action_version_deprecated":    true,
	"runner_version_bare":          true,
	"github_context_single_equals": true,
	"python_version_deprecated":    true,
	"env_var_name_garbled":         true,
	"permissions_too_broad":        true,
	"environment_name_missing":     true,
}

// Score computes the confidence tier for a detected error. The result is a
// pure function of the pattern and the match context.
func Score(e schemas.DetectedError) schemas.ConfidenceTier {
	score := e.Pattern.Confidence

	if knownSafe[e.Pattern.Name] {
		score += 0.15
	}
	if mediumSafe[e.Pattern.Name] {
		score += 0.05
	}
	// Security fixes carry extra blast radius, with one exception: tightening
	// a blanket permissions grant only ever removes access.
	if e.Pattern.Category == schemas.CategorySecurity && e.Pattern.Name != "permissions_too_broad" {
		score -= 0.10
	}
	if e.Pattern.Category == schemas.CategorySyntax || e.Pattern.Category == schemas.CategoryConfiguration {
		score += 0.05
	}
	if e.Line > 0 && len(strings.TrimSpace(e.Context)) > 20 {
		score += 0.03
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return schemas.TierFromScore(score)
}
