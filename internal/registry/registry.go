// Package registry holds the ordered catalog of detection patterns. The
// catalog is built once at process start from a static table and never
// mutated; detection order is table order. Patterns are allowed to overlap:
// conflicting matches are resolved by multi-pass convergence in the fix
// engine, not by any priority scheme here.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/quellcrist/flowmend/api/schemas"
)

// SuggestionFunc computes a fix suggestion from the matched text. Functions
// that describe literal substitutions use the canonical
// "Replace '<old>' with '<new>'" form so unresolved occurrences can later be
// replayed from the learning store.
type SuggestionFunc func(match string) string

type patternSpec struct {
	name        string
	expr        string
	category    schemas.PatternCategory
	severity    schemas.Severity
	description string
	suggestion  string
	confidence  float64
	autoFixable bool
}

// The static pattern table. Order is detection order and roughly tracks how
// often each mistake shows up in failing workflows.
var specs = []patternSpec{
	{
		name:        "yaml_on_key_quoted",
		expr:        `(?m)^['"]on['"]:`,
		category:    schemas.CategorySyntax,
		severity:    schemas.SeverityCritical,
		description: "Workflow trigger key is quoted",
		suggestion:  "Replace ''on':' with 'on:'",
		confidence:  0.95,
		autoFixable: true,
	},
	{
		name:        "yaml_on_key_boolean",
		expr:        `(?m)^true:`,
		category:    schemas.CategorySyntax,
		severity:    schemas.SeverityCritical,
		description: "Trigger key parsed as YAML boolean instead of 'on'",
		suggestion:  "Replace 'true:' with 'on:'",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "invalid_runner_label",
		expr:        `(?im)runs-on:\s*(?:ubuntu|windows|macos)-lat(?:es)?\b`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityHigh,
		description: "Truncated runner label",
		suggestion:  "Use a complete runner label such as ubuntu-latest",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "runner_version_bare",
		expr:        `(?im)runs-on:\s*ubuntu-\d\d\s*$`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityMedium,
		description: "Runner label missing the OS point release",
		suggestion:  "Pin the full runner version, e.g. ubuntu-22.04",
		confidence:  0.80,
		autoFixable: true,
	},
	{
		name:        "deprecated_runner_label",
		expr:        `(?im)runs-on:\s*ubuntu-18\.04\b`,
		category:    schemas.CategoryCompatibility,
		severity:    schemas.SeverityHigh,
		description: "Runner image is end of life",
		suggestion:  "Replace 'ubuntu-18.04' with 'ubuntu-22.04'",
		confidence:  0.80,
		autoFixable: true,
	},
	{
		name:        "checkout_name_typo",
		expr:        `(?i)actions/check(?:t|o)\b`,
		category:    schemas.CategoryDependency,
		severity:    schemas.SeverityHigh,
		description: "Misspelled checkout action reference",
		suggestion:  "Replace 'actions/checkt' with 'actions/checkout@v4'",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "action_version_incomplete",
		expr:        `(?im)uses:\s*[\w./-]+@v?\s*$`,
		category:    schemas.CategoryDependency,
		severity:    schemas.SeverityHigh,
		description: "Action reference has a truncated version tag",
		suggestion:  "Complete the version tag, e.g. actions/checkout@v4",
		confidence:  0.85,
		autoFixable: true,
	},
	{
		name:        "action_version_missing",
		expr:        `(?im)uses:\s*[\w-]+/[\w.-]+\s*$`,
		category:    schemas.CategoryDependency,
		severity:    schemas.SeverityHigh,
		description: "Action reference has no version tag",
		suggestion:  "Pin the action to a released tag",
		confidence:  0.75,
		autoFixable: true,
	},
	{
		name:        "action_version_deprecated",
		expr:        `(?i)actions/(?:checkout@v[1-3]|setup-python@v[1-4]|setup-node@v[1-3]|cache@v[1-3]|upload-artifact@v[1-3])\b`,
		category:    schemas.CategoryCompatibility,
		severity:    schemas.SeverityMedium,
		description: "Action version is deprecated",
		suggestion:  "Update to the latest stable version of the action",
		confidence:  0.85,
		autoFixable: true,
	},
	{
		name:        "env_var_name_typo",
		expr:        `\b(?:NODE_VERSIO|PYTHON_VERSIO|JAVA_VERSIO|TERRAFORM_VERSIO|KUBECTL_VERSIO|HELM_VERSIO|REGISTR|IMAGE_NAM)\b`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityHigh,
		description: "Truncated environment variable name",
		suggestion:  "Correct the environment variable spelling",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "env_var_name_garbled",
		expr:        `\b(?:NODE_VERSION|PYTHON_VERSION|REGISTRY|IMAGE_NAME)[A-Z]+:`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityHigh,
		description: "Environment variable name has trailing garbage",
		suggestion:  "Correct the environment variable spelling",
		confidence:  0.85,
		autoFixable: true,
	},
	{
		name:        "pythonpath_typo",
		expr:        `\b(?:PYTHONPTH|PYTHPATH|PYTHON_PATH|PYPATH|PYTHOH|PYTHATH)\b`,
		category:    schemas.CategoryDependency,
		severity:    schemas.SeverityMedium,
		description: "Misspelled PYTHONPATH",
		suggestion:  "Replace 'PYTHONPTH' with 'PYTHONPATH'",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "requirements_file_typo",
		expr:        `(?i)\b(?:requirement\.txt|requir\.txt|requirements\.tx)\b`,
		category:    schemas.CategoryDependency,
		severity:    schemas.SeverityHigh,
		description: "Misspelled requirements file reference",
		suggestion:  "Replace 'requirement.txt' with 'requirements.txt'",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "github_context_single_equals",
		expr:        `(?i)(?:github\.(?:ref|event_name)|matrix\.[A-Za-z_][\w-]*|needs\.[\w.-]+)\s*=[^=]`,
		category:    schemas.CategorySyntax,
		severity:    schemas.SeverityHigh,
		description: "Single '=' in a GitHub expression comparison",
		suggestion:  "Use '==' for comparisons in expressions",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "timeout_key_invalid",
		expr:        `(?im)\btimeout:\s*\d+`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityMedium,
		description: "Invalid timeout key",
		suggestion:  "Replace 'timeout:' with 'timeout-minutes:'",
		confidence:  0.90,
		autoFixable: true,
	},
	{
		name:        "working_directory_typo",
		expr:        `(?im)\b(?:working_directory|working-dir|working_dir):`,
		category:    schemas.CategorySyntax,
		severity:    schemas.SeverityMedium,
		description: "Misspelled working-directory key",
		suggestion:  "Replace 'working_directory:' with 'working-directory:'",
		confidence:  0.85,
		autoFixable: true,
	},
	{
		name:        "permissions_too_broad",
		expr:        `(?im)^\s*permissions:\s*write-all\s*$`,
		category:    schemas.CategorySecurity,
		severity:    schemas.SeverityCritical,
		description: "Blanket write-all permissions grant",
		suggestion:  "Scope permissions to the access each job needs",
		confidence:  0.85,
		autoFixable: true,
	},
	{
		name:        "python_version_deprecated",
		expr:        `(?im)python-version:\s*['"]?(?:2\.\d+|3\.[0-6])['"]?\s*$`,
		category:    schemas.CategoryCompatibility,
		severity:    schemas.SeverityMedium,
		description: "Unsupported Python version",
		suggestion:  "Use a currently supported Python, e.g. '3.9'",
		confidence:  0.80,
		autoFixable: true,
	},
	{
		name:        "env_var_unbraced",
		expr:        `\$[A-Z_][A-Z0-9_]+\b`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityLow,
		description: "Unbraced environment variable interpolation",
		suggestion:  "Write interpolations as ${VAR}",
		confidence:  0.60,
		autoFixable: true,
	},
	{
		name:        "cache_action_missing_key",
		expr:        `(?im)uses:\s*actions/cache@v\d+\b`,
		category:    schemas.CategoryPerformance,
		severity:    schemas.SeverityMedium,
		description: "Cache action possibly missing its key parameter",
		suggestion:  "Provide a cache key derived from the lockfile hash",
		confidence:  0.70,
		autoFixable: true,
	},
	{
		name:        "artifact_action_missing_name",
		expr:        `(?im)uses:\s*actions/upload-artifact@v\d+\b`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityMedium,
		description: "Upload-artifact action possibly missing its name parameter",
		suggestion:  "Name the artifact explicitly",
		confidence:  0.70,
		autoFixable: true,
	},
	{
		name:        "test_timeout_missing",
		expr:        `(?im)^\s*run:.*\b(?:npm test|pytest|cargo test|jest)\b.*$`,
		category:    schemas.CategoryPerformance,
		severity:    schemas.SeverityLow,
		description: "Test command without a step timeout",
		suggestion:  "Add timeout-minutes next to long-running test steps",
		confidence:  0.65,
		autoFixable: true,
	},
	{
		name:        "environment_name_missing",
		expr:        `(?im)^\s*environment:\s*$`,
		category:    schemas.CategoryConfiguration,
		severity:    schemas.SeverityMedium,
		description: "Deployment environment has no name",
		suggestion:  "Replace 'environment:' with 'environment: staging'",
		confidence:  0.80,
		autoFixable: true,
	},
	{
		name:        "hardcoded_secret",
		expr:        `(?i)(?:password|api_key|secret|token)\s*[:=]\s*['"][A-Za-z0-9+/_-]{8,}['"]`,
		category:    schemas.CategorySecurity,
		severity:    schemas.SeverityCritical,
		description: "Possible hardcoded credential",
		suggestion:  "Move the value into repository secrets and reference it via ${{ secrets.NAME }}",
		confidence:  0.50,
		autoFixable: false,
	},
}

// suggestionFuncs computes per-match suggestions for patterns whose advice
// depends on the matched text. Everything else falls back to the static
// suggestion on the pattern.
var suggestionFuncs = map[string]SuggestionFunc{
	"invalid_runner_label":      suggestRunnerFix,
	"runner_version_bare":       suggestRunnerFix,
	"deprecated_runner_label":   suggestRunnerFix,
	"env_var_name_typo":         suggestTableFix(EnvVarFixes),
	"pythonpath_typo":           suggestTableFix(PythonPathFixes),
	"requirements_file_typo":    suggestTableFix(FileRefFixes),
	"action_version_deprecated": suggestTableFix(DeprecatedActions),
	"action_version_incomplete": suggestActionCompletion,
	"action_version_missing":    suggestActionCompletion,
	"timeout_key_invalid": func(match string) string {
		return fmt.Sprintf("Replace '%s' with '%s'", strings.TrimSpace(match),
			strings.Replace(strings.TrimSpace(match), "timeout:", "timeout-minutes:", 1))
	},
}

// orderedKeys returns table keys longest first, ties alphabetical, so the
// most specific spelling wins and suggestions stay deterministic. Matches
// the application order the fix generator uses.
func orderedKeys(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func suggestRunnerFix(match string) string {
	for _, old := range orderedKeys(RunnerFixes) {
		canonical := RunnerFixes[old]
		if strings.Contains(match, old) && !strings.Contains(match, canonical) {
			return fmt.Sprintf("Replace '%s' with '%s'", old, canonical)
		}
	}
	return "Use a runner label from the supported set"
}

// suggestTableFix returns a SuggestionFunc backed by a replacement table.
func suggestTableFix(table map[string]string) SuggestionFunc {
	return func(match string) string {
		for _, old := range orderedKeys(table) {
			canonical := table[old]
			if strings.Contains(match, old) && !strings.Contains(match, canonical) {
				return fmt.Sprintf("Replace '%s' with '%s'", old, canonical)
			}
		}
		return "Apply the canonical spelling"
	}
}

func suggestActionCompletion(match string) string {
	for _, action := range orderedKeys(ActionVersions) {
		if strings.Contains(match, action) {
			return fmt.Sprintf("Replace '%s' with '%s'", action, ActionVersions[action])
		}
	}
	return "Pin the action to a released tag"
}

// patterns is the compiled, ordered catalog. Built once in init; read-only
// afterwards.
var patterns []*schemas.Pattern

func init() {
	patterns = make([]*schemas.Pattern, 0, len(specs))
	for _, s := range specs {
		patterns = append(patterns, &schemas.Pattern{
			Name:          s.name,
			Matcher:       regexp.MustCompile(s.expr),
			Expr:          s.expr,
			Category:      s.category,
			Severity:      s.severity,
			Description:   s.description,
			FixSuggestion: s.suggestion,
			Confidence:    s.confidence,
			AutoFixable:   s.autoFixable,
		})
	}
}

// Patterns returns the ordered pattern catalog. Callers must not mutate the
// returned slice or its elements.
func Patterns() []*schemas.Pattern {
	return patterns
}

// Lookup returns the pattern with the given name, or nil.
func Lookup(name string) *schemas.Pattern {
	for _, p := range patterns {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SuggestionFor computes the suggestion text for a match of the named
// pattern, using the per-pattern function when one is registered and the
// pattern's static suggestion otherwise.
func SuggestionFor(p *schemas.Pattern, match string) string {
	if fn, ok := suggestionFuncs[p.Name]; ok {
		if s := fn(match); s != "" {
			return s
		}
	}
	return p.FixSuggestion
}
