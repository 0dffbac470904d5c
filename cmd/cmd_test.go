// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quellcrist/flowmend/internal/config"
	"github.com/quellcrist/flowmend/internal/observability"
)

// resetForTest is the single source of truth for resetting command state.
func resetForTest(t *testing.T) {
	t.Helper()

	viper.Reset()
	cfgFile = ""

	// Keep command tests quiet unless something goes badly wrong.
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
}

// newTestRootCmd builds a pristine root command so flag state cannot leak
// between tests. The body mirrors the rootCmd initialization in root.go.
func newTestRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "flowmend",
		Short:   "flowmend detects and repairs GitHub Actions workflow mistakes.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(); err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			config.Set(cfg)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newPatternsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// executeCommand runs a pristine root command with the given args and
// returns the combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)

	testRootCmd := newTestRootCmd()
	buf := new(bytes.Buffer)
	testRootCmd.SetOut(buf)
	testRootCmd.SetErr(buf)
	testRootCmd.SetArgs(args)
	err := testRootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "flowmend detects and repairs GitHub Actions workflow mistakes.")
}

func TestValidateCmd_RequiresFileArg(t *testing.T) {
	out, err := executeCommand(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "accepts 1 arg(s)")
}

func TestValidateCmd_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "nope.yml"), "--learn=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}

func TestValidateCmd_FixRewritesWorkflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yml")
	broken := `name: CI
on: [push]
jobs:
  build:
    runs-on: ubuntu-lat
    steps:
      - uses: actions/checkout@v4
      - run: make test
`
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	out, err := executeCommand(t, "validate", path, "--fix", "--learn=false")
	require.NoError(t, err)
	assert.Contains(t, out, "invalid_runner_label")

	fixed, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(fixed), "runs-on: ubuntu-latest")

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, broken, string(backup))
}

func TestValidateCmd_ReportToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yml")
	reportPath := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("name: CI\non: [push]\njobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n"), 0o644))

	out, err := executeCommand(t, "validate", path, "--learn=false", "--report", reportPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Converged")
}

func TestValidateCmd_RecordsRunHistory(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("FLOWMEND_LEARNING_DATA_DIR", dataDir)

	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: CI\non: [push]\njobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n"), 0o644))

	_, err := executeCommand(t, "validate", path)
	require.NoError(t, err)

	history, err := os.ReadFile(filepath.Join(dataDir, "performance_history.json"))
	require.NoError(t, err)
	assert.Contains(t, string(history), `"file_path"`)
}

func TestAnalyzeCmd_RequiresExactlyOneSource(t *testing.T) {
	_, err := executeCommand(t, "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --log or --run")

	_, err = executeCommand(t, "analyze", "--log", "x.log", "--run", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --log or --run")
}

func TestAnalyzeCmd_LocalLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log := `2024-05-01T10:00:00Z Run python -m pytest
ModuleNotFoundError: No module named 'requests'
Error: Process completed with exit code 1.
`
	require.NoError(t, os.WriteFile(path, []byte(log), 0o644))

	out, err := executeCommand(t, "analyze", "--log", path)
	require.NoError(t, err)
	assert.Contains(t, out, "missing_dependency")
	assert.Contains(t, out, "ModuleNotFoundError")
}

func TestAnalyzeCmd_JSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("Warning: The set-output command is deprecated\n"), 0o644))

	out, err := executeCommand(t, "analyze", "--log", path, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"deprecated_action"`)
}

func TestPatternsCmd_EmptyStore(t *testing.T) {
	t.Setenv("FLOWMEND_LEARNING_DATA_DIR", t.TempDir())

	out, err := executeCommand(t, "patterns")
	require.NoError(t, err)
	assert.Contains(t, out, "Learned patterns: 0 (0 promoted to rules)")
}
