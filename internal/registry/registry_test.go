package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsWellFormed(t *testing.T) {
	ps := Patterns()
	require.NotEmpty(t, ps)

	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		assert.False(t, seen[p.Name], "duplicate pattern name %q", p.Name)
		seen[p.Name] = true

		assert.NotNil(t, p.Matcher, "%s: matcher not compiled", p.Name)
		assert.NotEmpty(t, p.Description, "%s: missing description", p.Name)
		assert.NotEmpty(t, p.FixSuggestion, "%s: missing static suggestion", p.Name)
		assert.GreaterOrEqual(t, p.Confidence, 0.0, p.Name)
		assert.LessOrEqual(t, p.Confidence, 1.0, p.Name)
	}
}

func TestLookup(t *testing.T) {
	require.NotNil(t, Lookup("yaml_on_key_quoted"))
	assert.Nil(t, Lookup("no_such_pattern"))
}

func TestPatternMatching(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		match   bool
	}{
		{"quoted on key", "yaml_on_key_quoted", "'on':\n  push:\n", true},
		{"double quoted on key", "yaml_on_key_quoted", "\"on\":\n  push:\n", true},
		{"plain on key untouched", "yaml_on_key_quoted", "on:\n  push:\n", false},
		{"boolean on key", "yaml_on_key_boolean", "name: ci\ntrue:\n  push:\n", true},
		{"truncated ubuntu runner", "invalid_runner_label", "    runs-on: ubuntu-lat\n", true},
		{"truncated windows runner", "invalid_runner_label", "    runs-on: windows-lates\n", true},
		{"complete runner untouched", "invalid_runner_label", "    runs-on: ubuntu-latest\n", false},
		{"eol runner image", "deprecated_runner_label", "    runs-on: ubuntu-18.04\n", true},
		{"checkout typo", "checkout_name_typo", "      - uses: actions/checkt\n", true},
		{"checkout untouched", "checkout_name_typo", "      - uses: actions/checkout@v4\n", false},
		{"bare at sign", "action_version_incomplete", "      - uses: actions/setup-python@\n", true},
		{"bare v suffix", "action_version_incomplete", "      - uses: actions/setup-python@v\n", true},
		{"pinned action untouched", "action_version_incomplete", "      - uses: actions/setup-python@v5\n", false},
		{"unpinned action", "action_version_missing", "      - uses: actions/checkout\n", true},
		{"deprecated checkout", "action_version_deprecated", "      - uses: actions/checkout@v2\n", true},
		{"env var truncated", "env_var_name_typo", "env:\n  NODE_VERSIO: '18'\n", true},
		{"env var complete untouched", "env_var_name_typo", "env:\n  NODE_VERSION: '18'\n", false},
		{"env var garbled", "env_var_name_garbled", "env:\n  NODE_VERSIONX: '18'\n", true},
		{"pythonpath typo", "pythonpath_typo", "        PYTHONPTH: src\n", true},
		{"pythonpath untouched", "pythonpath_typo", "        PYTHONPATH: src\n", false},
		{"requirements typo", "requirements_file_typo", "        run: pip install -r requirement.txt\n", true},
		{"requirements truncated", "requirements_file_typo", "        run: pip install -r requirements.tx\n", true},
		{"requirements untouched", "requirements_file_typo", "        run: pip install -r requirements.txt\n", false},
		{"single equals on ref", "github_context_single_equals", "    if: github.ref = 'refs/heads/main'\n", true},
		{"single equals on matrix", "github_context_single_equals", "    if: matrix.os = 'ubuntu-latest'\n", true},
		{"double equals untouched", "github_context_single_equals", "    if: github.ref == 'refs/heads/main'\n", false},
		{"invalid timeout key", "timeout_key_invalid", "    timeout: 30\n", true},
		{"timeout-minutes untouched", "timeout_key_invalid", "    timeout-minutes: 30\n", false},
		{"underscored working dir", "working_directory_typo", "        working_directory: ./app\n", true},
		{"hyphen short working dir", "working_directory_typo", "        working-dir: ./app\n", true},
		{"working-directory untouched", "working_directory_typo", "        working-directory: ./app\n", false},
		{"write-all grant", "permissions_too_broad", "permissions: write-all\n", true},
		{"scoped grant untouched", "permissions_too_broad", "permissions:\n  contents: read\n", false},
		{"python 3.6", "python_version_deprecated", "          python-version: '3.6'\n", true},
		{"python 2.7", "python_version_deprecated", "          python-version: 2.7\n", true},
		{"python 3.11 untouched", "python_version_deprecated", "          python-version: '3.11'\n", false},
		{"unbraced env var", "env_var_unbraced", "        run: echo $GITHUB_SHA\n", true},
		{"braced env var untouched", "env_var_unbraced", "        run: echo ${GITHUB_SHA}\n", false},
		{"cache action", "cache_action_missing_key", "      - uses: actions/cache@v4\n", true},
		{"upload artifact", "artifact_action_missing_name", "      - uses: actions/upload-artifact@v4\n", true},
		{"pytest run step", "test_timeout_missing", "        run: pytest tests/\n", true},
		{"npm test run step", "test_timeout_missing", "        run: npm test\n", true},
		{"build step untouched", "test_timeout_missing", "        run: npm run build\n", false},
		{"unnamed environment", "environment_name_missing", "    environment:\n", true},
		{"named environment untouched", "environment_name_missing", "    environment: production\n", false},
		{"hardcoded password", "hardcoded_secret", `  password: "hunter2hunter2"` + "\n", true},
		{"secret reference untouched", "hardcoded_secret", "  password: ${{ secrets.DB_PASSWORD }}\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Lookup(tt.pattern)
			require.NotNil(t, p, "unknown pattern %q", tt.pattern)
			assert.Equal(t, tt.match, p.Matcher.MatchString(tt.input))
		})
	}
}

func TestSuggestionFor(t *testing.T) {
	tests := []struct {
		pattern string
		match   string
		want    string
	}{
		{"invalid_runner_label", "runs-on: ubuntu-lat", "Replace 'ubuntu-lat' with 'ubuntu-latest'"},
		{"env_var_name_typo", "NODE_VERSIO", "Replace 'NODE_VERSIO' with 'NODE_VERSION'"},
		{"pythonpath_typo", "PYTHONPTH", "Replace 'PYTHONPTH' with 'PYTHONPATH'"},
		{"requirements_file_typo", "requirement.txt", "Replace 'requirement.txt' with 'requirements.txt'"},
		{"action_version_deprecated", "actions/checkout@v2", "Replace 'actions/checkout@v2' with 'actions/checkout@v4'"},
		{"timeout_key_invalid", "timeout: 30", "Replace 'timeout: 30' with 'timeout-minutes: 30'"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p := Lookup(tt.pattern)
			require.NotNil(t, p)
			assert.Equal(t, tt.want, SuggestionFor(p, tt.match))
		})
	}

	t.Run("static fallback", func(t *testing.T) {
		p := Lookup("permissions_too_broad")
		require.NotNil(t, p)
		assert.Equal(t, p.FixSuggestion, SuggestionFor(p, "permissions: write-all"))
	})

	t.Run("longest table key wins overlaps", func(t *testing.T) {
		// "ubuntu-lates" also contains the shorter "ubuntu-lat" key; the
		// suggestion must name the longer spelling every time so the text
		// matches the edit the generator actually makes.
		p := Lookup("invalid_runner_label")
		require.NotNil(t, p)
		for i := 0; i < 20; i++ {
			assert.Equal(t, "Replace 'ubuntu-lates' with 'ubuntu-latest'",
				SuggestionFor(p, "runs-on: ubuntu-lates"))
		}
	})
}
