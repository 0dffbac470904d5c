package fixer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/registry"
)

// generateFunc computes the candidate buffer for one detected error. A
// returned buffer equal to the input means the fix does not apply (stale
// match, already repaired); that is not an error.
type generateFunc func(e schemas.DetectedError, text string) (string, error)

// generators dispatches by pattern name. Patterns absent from the table are
// not auto-fixable through the engine.
var generators = map[string]generateFunc{
	"yaml_on_key_quoted":  substitute("on:"),
	"yaml_on_key_boolean": substitute("on:"),

	"invalid_runner_label":    tableSubstitute(registry.RunnerFixes),
	"runner_version_bare":     tableSubstitute(registry.RunnerFixes),
	"deprecated_runner_label": tableSubstitute(registry.RunnerFixes),

	"checkout_name_typo": fixCheckoutTypo,

	"action_version_incomplete": fixIncompleteActionVersion,
	"action_version_missing":    fixMissingActionVersion,
	"action_version_deprecated": fixDeprecatedActionVersion,

	"env_var_name_typo":      tableSubstitute(registry.EnvVarFixes),
	"env_var_name_garbled":   fixGarbledEnvVar,
	"pythonpath_typo":        tableSubstitute(registry.PythonPathFixes),
	"requirements_file_typo": fixRequirementsTypo,

	"github_context_single_equals": fixSingleEquals,
	"timeout_key_invalid":          fixTimeoutKey,
	"working_directory_typo":       fixWorkingDirectoryKey,
	"permissions_too_broad":        fixBroadPermissions,
	"python_version_deprecated":    fixDeprecatedPython,
	"env_var_unbraced":             fixUnbracedEnvVar,
	"environment_name_missing":     fixUnnamedEnvironment,

	"cache_action_missing_key":     fixCacheMissingKey,
	"artifact_action_missing_name": fixArtifactMissingName,
	"test_timeout_missing":         fixTestTimeout,
}

// Generate computes the fixed buffer for a detected error. Unfixable or
// stale errors return the input unchanged.
func Generate(e schemas.DetectedError, text string) (string, error) {
	fn, ok := generators[e.Pattern.Name]
	if !ok {
		return text, nil
	}
	return fn(e, text)
}

// replaceMatch swaps the first remaining occurrence of the matched text.
// Identical matches are interchangeable, so first-occurrence replacement is
// correct even after earlier fixes shifted positions.
func replaceMatch(text, old, new string) string {
	if old == new || !strings.Contains(text, old) {
		return text
	}
	return strings.Replace(text, old, new, 1)
}

// substitute replaces the whole matched span with a fixed literal.
func substitute(replacement string) generateFunc {
	return func(e schemas.DetectedError, text string) (string, error) {
		return replaceMatch(text, e.Match, replacement), nil
	}
}

// tableSubstitute rewrites the matched span by applying a canonical
// replacement table, longest keys first so partial spellings never clobber
// longer ones.
func tableSubstitute(table map[string]string) generateFunc {
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
	return func(e schemas.DetectedError, text string) (string, error) {
		fixed := e.Match
		for _, old := range keys {
			canonical := table[old]
			if strings.Contains(fixed, old) && !strings.Contains(fixed, canonical) {
				fixed = strings.Replace(fixed, old, canonical, 1)
				break
			}
		}
		return replaceMatch(text, e.Match, fixed), nil
	}
}

func fixCheckoutTypo(e schemas.DetectedError, text string) (string, error) {
	// Only the action path is repaired here; version completion is a
	// separate pattern and lands on a later pass.
	return replaceMatch(text, e.Match, "actions/checkout"), nil
}

var incompleteActionRe = regexp.MustCompile(`([\w./-]+)@v?\s*$`)

func fixIncompleteActionVersion(e schemas.DetectedError, text string) (string, error) {
	loc := incompleteActionRe.FindStringSubmatchIndex(e.Match)
	if loc == nil {
		return text, nil
	}
	action := e.Match[loc[2]:loc[3]]
	pinned, ok := registry.ActionVersions[strings.ToLower(action)]
	if !ok {
		return text, nil
	}
	return replaceMatch(text, e.Match, e.Match[:loc[2]]+pinned), nil
}

var bareActionRe = regexp.MustCompile(`([\w-]+/[\w.-]+)\s*$`)

func fixMissingActionVersion(e schemas.DetectedError, text string) (string, error) {
	loc := bareActionRe.FindStringSubmatchIndex(e.Match)
	if loc == nil {
		return text, nil
	}
	action := e.Match[loc[2]:loc[3]]
	pinned, ok := registry.ActionVersions[strings.ToLower(action)]
	if !ok {
		return text, nil
	}
	return replaceMatch(text, e.Match, e.Match[:loc[2]]+pinned), nil
}

func fixDeprecatedActionVersion(e schemas.DetectedError, text string) (string, error) {
	current, ok := registry.DeprecatedActions[strings.ToLower(e.Match)]
	if !ok {
		return text, nil
	}
	return replaceMatch(text, e.Match, current), nil
}

// garbledEnvVarBases is checked longest-first so NODE_VERSION never shadows
// a longer sibling.
var garbledEnvVarBases = []string{"PYTHON_VERSION", "NODE_VERSION", "IMAGE_NAME", "REGISTRY"}

func fixGarbledEnvVar(e schemas.DetectedError, text string) (string, error) {
	for _, base := range garbledEnvVarBases {
		if strings.HasPrefix(e.Match, base) {
			return replaceMatch(text, e.Match, base+":"), nil
		}
	}
	return text, nil
}

func fixRequirementsTypo(e schemas.DetectedError, text string) (string, error) {
	return replaceMatch(text, e.Match, "requirements.txt"), nil
}

func fixSingleEquals(e schemas.DetectedError, text string) (string, error) {
	idx := strings.Index(e.Match, "=")
	if idx < 0 {
		return text, nil
	}
	fixed := e.Match[:idx] + "==" + e.Match[idx+1:]
	return replaceMatch(text, e.Match, fixed), nil
}

func fixTimeoutKey(e schemas.DetectedError, text string) (string, error) {
	fixed := strings.Replace(e.Match, "timeout:", "timeout-minutes:", 1)
	return replaceMatch(text, e.Match, fixed), nil
}

var workingDirKeyRe = regexp.MustCompile(`(?i)(working_directory|working-dir|working_dir):`)

func fixWorkingDirectoryKey(e schemas.DetectedError, text string) (string, error) {
	fixed := workingDirKeyRe.ReplaceAllString(e.Match, "working-directory:")
	return replaceMatch(text, e.Match, fixed), nil
}

func fixBroadPermissions(e schemas.DetectedError, text string) (string, error) {
	indent := e.Match[:len(e.Match)-len(strings.TrimLeft(e.Match, " \t"))]
	var b strings.Builder
	b.WriteString(indent + "permissions:")
	for _, scope := range registry.ScopedPermissions {
		b.WriteString("\n" + indent + "  " + scope)
	}
	return replaceMatch(text, e.Match, b.String()), nil
}

var pythonVersionRe = regexp.MustCompile(`(python-version:\s*)['"]?[\d.]+['"]?`)

func fixDeprecatedPython(e schemas.DetectedError, text string) (string, error) {
	fixed := pythonVersionRe.ReplaceAllString(e.Match, "${1}'3.9'")
	return replaceMatch(text, e.Match, fixed), nil
}

func fixUnbracedEnvVar(e schemas.DetectedError, text string) (string, error) {
	return replaceMatch(text, e.Match, "${"+e.Match[1:]+"}"), nil
}

func fixUnnamedEnvironment(e schemas.DetectedError, text string) (string, error) {
	fixed := strings.TrimRight(e.Match, " \t") + " staging"
	return replaceMatch(text, e.Match, fixed), nil
}

func fixCacheMissingKey(e schemas.DetectedError, text string) (string, error) {
	return ensureWithParams(text, e.Match, []paramLine{
		{key: "path", value: "~/.cache"},
		{key: "key", value: "${{ runner.os }}-${{ hashFiles('**/requirements*.txt', '**/package-lock.json') }}"},
	})
}

func fixArtifactMissingName(e schemas.DetectedError, text string) (string, error) {
	return ensureWithParams(text, e.Match, []paramLine{
		{key: "name", value: "build-artifacts"},
		{key: "path", value: "."},
	})
}

type paramLine struct {
	key   string
	value string
}

// ensureWithParams locates the step that owns the matched `uses:` line and
// guarantees the listed parameters exist under its `with:` block, extending
// the block or inserting a fresh one with indentation inferred from the
// step's dash position. Parameters already present anywhere in the step are
// left untouched.
func ensureWithParams(text, match string, params []paramLine) (string, error) {
	idx := strings.Index(text, match)
	if idx < 0 {
		return text, nil
	}
	lines := strings.Split(text, "\n")
	li := lineIndexAt(text, idx)
	if li >= len(lines) {
		return text, nil
	}

	usesLine := lines[li]
	propIndent := indentOf(usesLine)
	if strings.HasPrefix(strings.TrimLeft(usesLine, " \t"), "- ") {
		propIndent += 2
	}

	end := stepBlockEnd(lines, li, propIndent)
	block := strings.Join(lines[li:end], "\n")

	var missing []paramLine
	for _, p := range params {
		if !strings.Contains(block, p.key+":") {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return text, nil
	}

	pad := strings.Repeat(" ", propIndent)
	withAt := -1
	for j := li + 1; j < end; j++ {
		if strings.TrimSpace(lines[j]) == "with:" && indentOf(lines[j]) == propIndent {
			withAt = j
			break
		}
	}

	var insertion []string
	insertAfter := li
	if withAt >= 0 {
		insertAfter = withAt
	} else {
		insertion = append(insertion, pad+"with:")
	}
	for _, p := range missing {
		insertion = append(insertion, fmt.Sprintf("%s  %s: %s", pad, p.key, p.value))
	}

	out := make([]string, 0, len(lines)+len(insertion))
	out = append(out, lines[:insertAfter+1]...)
	out = append(out, insertion...)
	out = append(out, lines[insertAfter+1:]...)
	return strings.Join(out, "\n"), nil
}

// fixTestTimeout inserts a timeout-minutes annotation after a matched test
// command line, at the command's indentation, unless the owning step already
// carries one.
func fixTestTimeout(e schemas.DetectedError, text string) (string, error) {
	idx := strings.Index(text, e.Match)
	if idx < 0 {
		return text, nil
	}
	lines := strings.Split(text, "\n")
	li := lineIndexAt(text, idx)
	if li >= len(lines) {
		return text, nil
	}

	runIndent := indentOf(lines[li])
	propIndent := runIndent
	if strings.HasPrefix(strings.TrimLeft(lines[li], " \t"), "- ") {
		propIndent += 2
	}

	start := li
	for start > 0 {
		t := strings.TrimLeft(lines[start], " \t")
		if strings.HasPrefix(t, "- ") && indentOf(lines[start]) < propIndent {
			break
		}
		start--
	}
	end := stepBlockEnd(lines, li, propIndent)
	block := strings.Join(lines[start:end], "\n")
	if strings.Contains(block, "timeout-minutes:") {
		return text, nil
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:li+1]...)
	out = append(out, strings.Repeat(" ", propIndent)+"timeout-minutes: 10")
	out = append(out, lines[li+1:]...)
	return strings.Join(out, "\n"), nil
}

// lineIndexAt returns the 0-based line index containing byte offset idx.
func lineIndexAt(text string, idx int) int {
	return strings.Count(text[:idx], "\n")
}

// indentOf counts leading spaces.
func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// stepBlockEnd returns the exclusive end index of the step block whose
// properties sit at propIndent, starting the scan below line li.
func stepBlockEnd(lines []string, li, propIndent int) int {
	end := li + 1
	for end < len(lines) {
		line := lines[end]
		if strings.TrimSpace(line) == "" {
			end++
			continue
		}
		if indentOf(line) < propIndent {
			break
		}
		end++
	}
	return end
}
