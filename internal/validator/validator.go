// Package validator re-parses a workflow buffer through the YAML parser and
// checks structural invariants. It is consulted twice by the fix engine: as
// the per-attempt acceptance gate and as the final verdict after convergence.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quellcrist/flowmend/api/schemas"
)

// maxMatrixSize caps the combinatorial size of a matrix strategy.
const maxMatrixSize = 256

var (
	incompleteExportRe = regexp.MustCompile(`(?m)^\s*export\s+[A-Za-z_][A-Za-z0-9_]*\s*=\s*$`)
	unquotedSpecialRe  = regexp.MustCompile(`[^"']\$[@*](\s|$)`)
)

// Validator checks workflow buffers. It holds no per-buffer state.
type Validator struct {
	log *zap.Logger
}

// New returns a Validator.
func New(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{log: log}
}

// Validate parses the buffer and runs every structural and advisory check.
// Hard errors land in Errors; Warnings and Suggestions never block a fix.
func (v *Validator) Validate(content string) *schemas.ValidationResult {
	res := &schemas.ValidationResult{}

	var root any
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("YAML parse error: %v", err))
		res.CriticalErrors++
		res.Score()
		return res
	}
	if root == nil {
		res.Errors = append(res.Errors, "empty workflow document")
		res.CriticalErrors++
		res.Score()
		return res
	}
	doc, ok := root.(map[string]any)
	if !ok {
		// Non-string keys (a boolean `true:` trigger, typically) make the
		// parser fall back to map[any]any; normalize so the checks below
		// can still see the keys.
		if m, isMap := root.(map[any]any); isMap {
			doc = make(map[string]any, len(m))
			for k, val := range m {
				doc[fmt.Sprint(k)] = val
			}
		} else {
			// A non-mapping root is no workflow, but fragments under
			// repair hit this constantly; reject without making it
			// critical.
			res.Errors = append(res.Errors, "workflow root must be a mapping")
			res.Score()
			return res
		}
	}

	v.checkTriggers(doc, res)
	v.checkPermissions(doc, res)
	v.checkJobs(doc, res)

	res.Score()
	return res
}

// Parses reports whether the buffer round-trips through the YAML parser.
// The fix engine's acceptance gate uses this as its cheapest rejection.
func (v *Validator) Parses(content string) bool {
	var doc any
	return yaml.Unmarshal([]byte(content), &doc) == nil
}

func (v *Validator) checkTriggers(doc map[string]any, res *schemas.ValidationResult) {
	raw, ok := doc["on"]
	if !ok {
		// A bare `on:` key is parsed as boolean true by YAML 1.1 emitters;
		// surface that case distinctly so the fix path is obvious.
		if _, legacy := doc["true"]; legacy {
			res.Errors = append(res.Errors, "trigger key parsed as boolean; quote or rewrite it as 'on:'")
			res.CriticalErrors++
		} else {
			// Fragments under repair legitimately lack top-level keys, so
			// this is a hard error but not a critical one.
			res.Errors = append(res.Errors, "missing required top-level key: on")
		}
		return
	}

	var triggers []string
	switch t := raw.(type) {
	case string:
		triggers = []string{t}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				triggers = append(triggers, s)
			}
		}
	case map[string]any:
		for k := range t {
			triggers = append(triggers, k)
		}
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unrecognized trigger block of type %T", raw))
		return
	}

	valid := 0
	for _, tr := range triggers {
		if knownTriggers[tr] {
			valid++
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown trigger type: %s", tr))
		}
	}
	if valid == 0 {
		res.Errors = append(res.Errors, "no valid trigger types configured")
	}
}

func (v *Validator) checkPermissions(doc map[string]any, res *schemas.ValidationResult) {
	raw, ok := doc["permissions"]
	if !ok {
		res.Suggestions = append(res.Suggestions, "add a top-level permissions block with least-privilege scopes")
		return
	}
	if s, ok := raw.(string); ok && s == "write-all" {
		res.Warnings = append(res.Warnings, "permissions: write-all grants every scope; prefer explicit scopes")
		return
	}
	res.ProperPermissions = true
}

func (v *Validator) checkJobs(doc map[string]any, res *schemas.ValidationResult) {
	raw, ok := doc["jobs"]
	if !ok {
		res.Errors = append(res.Errors, "missing required top-level key: jobs")
		return
	}
	jobs, ok := raw.(map[string]any)
	if !ok || len(jobs) == 0 {
		res.Errors = append(res.Errors, "jobs must be a non-empty mapping")
		return
	}

	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		job, ok := jobs[name].(map[string]any)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q must be a mapping", name))
			continue
		}
		v.checkRunner(name, job, res)
		v.checkMatrix(name, job, res)
		v.checkSteps(name, job, res)

		if _, ok := job["timeout-minutes"]; !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("job %q has no timeout-minutes; runaway jobs bill the full 6h default", name))
		}
	}
}

func (v *Validator) checkRunner(name string, job map[string]any, res *schemas.ValidationResult) {
	raw, ok := job["runs-on"]
	if !ok {
		// Reusable-workflow jobs run elsewhere.
		if _, reusable := job["uses"]; reusable {
			return
		}
		res.Errors = append(res.Errors, fmt.Sprintf("job %q has no runs-on", name))
		return
	}

	switch r := raw.(type) {
	case string:
		if strings.Contains(r, "${{") {
			return // matrix or expression driven, resolved at run time
		}
		if !knownRunners[r] {
			msg := fmt.Sprintf("job %q uses unknown runner %q", name, r)
			if near := nearestRunners(r); len(near) > 0 {
				msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(near, ", "))
			}
			res.Errors = append(res.Errors, msg)
		}
	case []any:
		// Label lists address self-hosted pools; nothing to cross-check.
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("job %q has a malformed runs-on of type %T", name, raw))
	}
}

func (v *Validator) checkMatrix(name string, job map[string]any, res *schemas.ValidationResult) {
	strategy, ok := job["strategy"].(map[string]any)
	if !ok {
		return
	}
	matrix, ok := strategy["matrix"].(map[string]any)
	if !ok {
		return
	}
	size := 1
	for dim, raw := range matrix {
		if dim == "include" || dim == "exclude" {
			continue
		}
		if list, ok := raw.([]any); ok && len(list) > 0 {
			size *= len(list)
		}
	}
	if size > maxMatrixSize {
		res.Errors = append(res.Errors, fmt.Sprintf("job %q matrix expands to %d combinations (limit %d)", name, size, maxMatrixSize))
	}
}

func (v *Validator) checkSteps(name string, job map[string]any, res *schemas.ValidationResult) {
	raw, ok := job["steps"]
	if !ok {
		if _, reusable := job["uses"]; !reusable {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q has no steps", name))
		}
		return
	}
	steps, ok := raw.([]any)
	if !ok || len(steps) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("job %q steps must be a non-empty sequence", name))
		return
	}

	usesPip := false
	hasCache := false

	for i, rawStep := range steps {
		step, ok := rawStep.(map[string]any)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d must be a mapping", name, i+1))
			continue
		}

		uses, hasUses := step["uses"].(string)
		run, hasRun := step["run"].(string)
		if !hasUses && !hasRun {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d has neither uses nor run", name, i+1))
			continue
		}

		if hasUses {
			v.checkActionRef(name, i+1, uses, step, res)
			if strings.HasPrefix(uses, "actions/cache@") {
				hasCache = true
			}
		}
		if hasRun {
			v.checkRunCommand(name, i+1, run, res)
			if strings.Contains(run, "pip install") {
				usesPip = true
			}
		}
	}

	if usesPip && !hasCache {
		res.Suggestions = append(res.Suggestions, fmt.Sprintf("job %q installs with pip but never caches; add actions/cache keyed on the requirements hash", name))
	}
}

func (v *Validator) checkActionRef(job string, stepNo int, uses string, step map[string]any, res *schemas.ValidationResult) {
	// Local and container actions carry no version tag.
	if strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "docker://") {
		return
	}

	at := strings.LastIndex(uses, "@")
	if at < 0 || at == len(uses)-1 {
		res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d action %q has no version tag", job, stepNo, uses))
		return
	}
	action := uses[:at]

	spec, known := knownActions[action]
	if !known {
		return
	}

	with, _ := step["with"].(map[string]any)
	for _, required := range spec.required {
		if _, ok := with[required]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d action %s missing required input %q", job, stepNo, action, required))
		}
	}
	for input := range with {
		if !spec.inputs[input] {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d action %s has unknown input %q", job, stepNo, action, input))
		}
	}
}

// checkRunCommand lints inline commands for the mistakes the detector also
// hunts, so validation flags them even when fixing is off.
func (v *Validator) checkRunCommand(job string, stepNo int, run string, res *schemas.ValidationResult) {
	if strings.Contains(run, "requirements.tx") && !strings.Contains(run, "requirements.txt") {
		res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d references a truncated requirements file", job, stepNo))
	}
	if strings.Contains(run, "requirement.txt") {
		res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d references requirement.txt; the conventional name is requirements.txt", job, stepNo))
	}
	for _, line := range strings.Split(run, "\n") {
		if incompleteExportRe.MatchString(line) {
			res.Errors = append(res.Errors, fmt.Sprintf("job %q step %d has an export with no value", job, stepNo))
		}
	}
	if unquotedSpecialRe.MatchString(run) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("job %q step %d uses $@ or $* unquoted; word splitting will mangle arguments", job, stepNo))
	}
}
