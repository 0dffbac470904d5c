// Package logscan categorizes raw workflow-run logs into known failure
// classes and attaches per-class advice. It feeds the analyze command and
// the issue/PR report bodies; it never touches the workflow buffer itself.
package logscan

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Category is one known class of run-log failure.
type Category string

const (
	CategoryYAMLSyntax        Category = "yaml_syntax"
	CategoryMissingDependency Category = "missing_dependency"
	CategoryInvalidAction     Category = "invalid_action"
	CategoryDeprecatedAction  Category = "deprecated_action"
	CategoryPermission        Category = "permission"
	CategoryTimeout           Category = "timeout"
	CategoryEnvVar            Category = "env_var"
	CategorySecret            Category = "secret"
	CategoryVersionMismatch   Category = "version_mismatch"
	CategoryBuild             Category = "build"
	CategoryTestFailure       Category = "test_failure"
)

// Finding is one categorized log line.
type Finding struct {
	Category Category `json:"category"`
	Line     int      `json:"line"`
	Text     string   `json:"text"`
	Context  string   `json:"context"`
}

// Advice is the per-category guidance shown to the user.
type Advice struct {
	Description string   `json:"description"`
	Suggestions []string `json:"suggestions"`
	AutoFixable bool     `json:"auto_fixable"`
}

type categoryMatcher struct {
	category Category
	re       *regexp.Regexp
}

// matchers run in order; the first category that matches a line claims it.
var matchers = []categoryMatcher{
	{CategoryYAMLSyntax, regexp.MustCompile(`(?i)error parsing workflow|mapping values are not allowed|ya?ml.*(syntax|parse) error|invalid workflow file`)},
	{CategoryMissingDependency, regexp.MustCompile(`(?i)ModuleNotFoundError|No module named|npm ERR! 404|cannot find module|could not find a version that satisfies|package '.*' (was |)not found`)},
	{CategoryInvalidAction, regexp.MustCompile(`(?i)unable to resolve action|can't find '?action\.ya?ml'?|action '.*' not found`)},
	{CategoryDeprecatedAction, regexp.MustCompile(`(?i)set-output command is deprecated|save-state command is deprecated|node(12|16) actions are deprecated|uses a deprecated version`)},
	{CategoryPermission, regexp.MustCompile(`(?i)permission denied|resource not accessible by integration|EACCES|HTTP 403|status code 403`)},
	{CategoryTimeout, regexp.MustCompile(`(?i)exceeded the maximum execution time|timed out|deadline exceeded|canceled after \d+ minutes`)},
	{CategoryEnvVar, regexp.MustCompile(`(?i)unbound variable|environment variable .* (is |)not (set|defined)|parameter null or not set`)},
	{CategorySecret, regexp.MustCompile(`(?i)bad credentials|authentication failed|invalid (auth(entication)? )?token|secret .* (not found|is empty)`)},
	{CategoryVersionMismatch, regexp.MustCompile(`(?i)unsupported .* version|version .*(not found|unavailable)|requires .* version [\d.]+`)},
	{CategoryBuild, regexp.MustCompile(`(?i)build failed|compilation (error|failed)|cannot find symbol|undefined reference to|error TS\d+`)},
	{CategoryTestFailure, regexp.MustCompile(`(?i)\d+ tests? failed|FAILED \(|AssertionError|test suite failed|failures=[1-9]`)},
}

// advisories maps each category to its guidance.
var advisories = map[Category]Advice{
	CategoryYAMLSyntax: {
		Description: "The workflow file itself failed to parse",
		Suggestions: []string{
			"run the validate command against the workflow file",
			"check indentation and quoting around the reported line",
		},
		AutoFixable: true,
	},
	CategoryMissingDependency: {
		Description: "A package or module the build needs is not installed",
		Suggestions: []string{
			"verify the dependency manifest lists the package",
			"confirm the install step runs before the step that failed",
			"check requirements/lockfile names for typos",
		},
		AutoFixable: true,
	},
	CategoryInvalidAction: {
		Description: "An action reference could not be resolved",
		Suggestions: []string{
			"check the owner/name spelling of the uses: reference",
			"confirm the referenced tag or branch exists",
		},
		AutoFixable: true,
	},
	CategoryDeprecatedAction: {
		Description: "A step depends on a deprecated action or runtime",
		Suggestions: []string{
			"bump the action to its latest major version",
			"replace set-output/save-state with environment files",
		},
		AutoFixable: true,
	},
	CategoryPermission: {
		Description: "The job token lacks access to something it touched",
		Suggestions: []string{
			"grant the needed scope under the permissions block",
			"use a PAT or app token for cross-repository access",
		},
		AutoFixable: false,
	},
	CategoryTimeout: {
		Description: "A step or job ran past its time limit",
		Suggestions: []string{
			"raise timeout-minutes on the slow job",
			"cache dependencies to cut setup time",
			"split long test suites across a matrix",
		},
		AutoFixable: true,
	},
	CategoryEnvVar: {
		Description: "A required environment variable was missing at run time",
		Suggestions: []string{
			"define the variable under env: at the job or workflow level",
			"check the variable name for typos",
		},
		AutoFixable: true,
	},
	CategorySecret: {
		Description: "Authentication material was missing or rejected",
		Suggestions: []string{
			"confirm the secret exists in the repository settings",
			"check the secrets.NAME reference spelling",
		},
		AutoFixable: false,
	},
	CategoryVersionMismatch: {
		Description: "A requested tool or language version is unavailable",
		Suggestions: []string{
			"pin a version the setup action actually publishes",
			"update the version matrix to supported releases",
		},
		AutoFixable: true,
	},
	CategoryBuild: {
		Description: "Compilation failed",
		Suggestions: []string{
			"reproduce the build locally with the same toolchain version",
			"check for API changes in recently bumped dependencies",
		},
		AutoFixable: false,
	},
	CategoryTestFailure: {
		Description: "The test suite reported failures",
		Suggestions: []string{
			"run the failing tests locally",
			"check for environment differences against CI",
		},
		AutoFixable: false,
	},
}

// contextRadius is how many log lines around a finding are kept.
const contextRadius = 3

// Analyzer scans run logs.
type Analyzer struct {
	log *zap.Logger
}

// New returns an Analyzer.
func New(log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{log: log}
}

// Analyze categorizes every line of the log. A line belongs to at most one
// category, decided by matcher order.
func (a *Analyzer) Analyze(logText string) []Finding {
	if logText == "" {
		return nil
	}
	lines := strings.Split(logText, "\n")
	var findings []Finding
	for i, line := range lines {
		for _, m := range matchers {
			if !m.re.MatchString(line) {
				continue
			}
			findings = append(findings, Finding{
				Category: m.category,
				Line:     i + 1,
				Text:     strings.TrimSpace(line),
				Context:  contextWindow(lines, i),
			})
			break
		}
	}
	a.log.Debug("log analyzed",
		zap.Int("lines", len(lines)),
		zap.Int("findings", len(findings)))
	return findings
}

// Summarize counts findings per category.
func (a *Analyzer) Summarize(findings []Finding) map[Category]int {
	out := make(map[Category]int)
	for _, f := range findings {
		out[f.Category]++
	}
	return out
}

// Advise returns the guidance for a category. Unknown categories get an
// empty advice value.
func Advise(c Category) Advice {
	return advisories[c]
}

func contextWindow(lines []string, idx int) string {
	start := idx - contextRadius
	if start < 0 {
		start = 0
	}
	end := idx + contextRadius + 1
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
