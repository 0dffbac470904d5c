// File: cmd/analyze.go
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quellcrist/flowmend/internal/config"
	"github.com/quellcrist/flowmend/internal/ghclient"
	"github.com/quellcrist/flowmend/internal/logscan"
	"github.com/quellcrist/flowmend/internal/observability"
	"github.com/quellcrist/flowmend/internal/reporting"
)

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Categorizes failure signatures in a workflow run log",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("report.format", cmd.Flags().Lookup("format"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := config.Get()
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}

			logPath, _ := cmd.Flags().GetString("log")
			runID, _ := cmd.Flags().GetInt64("run")
			if (logPath == "") == (runID == 0) {
				return fmt.Errorf("exactly one of --log or --run is required")
			}

			var source, logText string
			switch {
			case logPath != "":
				raw, err := os.ReadFile(logPath)
				if err != nil {
					return fmt.Errorf("reading %s: %w", logPath, err)
				}
				source, logText = logPath, string(raw)
			default:
				gh, err := ghclient.New(cfg.GitHub, logger)
				if err != nil {
					return err
				}
				logText, err = gh.FetchRunLog(cmd.Context(), runID)
				if err != nil {
					return err
				}
				source = "run " + strconv.FormatInt(runID, 10)
			}

			analyzer := logscan.New(logger)
			findings := analyzer.Analyze(logText)
			logger.Info("log analyzed",
				zap.String("source", source),
				zap.Int("findings", len(findings)))

			reporter, err := reporting.New(cfg.Report.Format)
			if err != nil {
				return err
			}
			out, err := reporter.Analysis(source, findings)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)

			if issue, _ := cmd.Flags().GetBool("issue-body"); issue {
				fmt.Fprint(cmd.OutOrStdout(), "\n---\n\n"+reporting.IssueBody(source, findings))
			}
			return nil
		},
	}

	analyzeCmd.Flags().String("log", "", "Path to a run log file to analyze")
	analyzeCmd.Flags().Int64("run", 0, "Workflow run id to fetch and analyze (requires GitHub configuration)")
	analyzeCmd.Flags().String("format", "markdown", "Report format (markdown or json)")
	analyzeCmd.Flags().Bool("issue-body", false, "Also print an issue body for findings that need a human")

	return analyzeCmd
}
