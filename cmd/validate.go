// File: cmd/validate.go
package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/config"
	"github.com/quellcrist/flowmend/internal/fixer"
	"github.com/quellcrist/flowmend/internal/ghclient"
	"github.com/quellcrist/flowmend/internal/learning"
	"github.com/quellcrist/flowmend/internal/observability"
	"github.com/quellcrist/flowmend/internal/reporting"
	"github.com/quellcrist/flowmend/internal/validator"
)

// newValidateCmd creates and configures the `validate` command.
func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Detects workflow mistakes in a file and optionally rewrites it",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line values override
			// the config file and environment with the right precedence.
			if err := viper.BindPFlag("fixer.apply_fixes", cmd.Flags().Lookup("fix")); err != nil {
				return err
			}
			if err := viper.BindPFlag("fixer.min_confidence", cmd.Flags().Lookup("min-confidence")); err != nil {
				return err
			}
			if err := viper.BindPFlag("fixer.max_passes", cmd.Flags().Lookup("max-passes")); err != nil {
				return err
			}
			if err := viper.BindPFlag("learning.enabled", cmd.Flags().Lookup("learn")); err != nil {
				return err
			}
			if err := viper.BindPFlag("report.format", cmd.Flags().Lookup("format")); err != nil {
				return err
			}
			return viper.BindPFlag("report.output", cmd.Flags().Lookup("report"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := config.Get()
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}

			path := args[0]
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			original := string(raw)

			val := validator.New(logger)
			eng, err := fixer.New(cfg.Fixer, val, logger)
			if err != nil {
				return err
			}

			var store *learning.Store
			if cfg.Learning.Enabled {
				store, err = learning.NewStore(cfg.Learning, logger)
				if err != nil {
					return err
				}
				eng.SetLearnedRules(store.Promote())
				eng.SetRecorder(store)
			}

			rep := eng.Fix(original)

			if cfg.Fixer.ApplyFixes && rep.FinalContent != original {
				if cfg.Fixer.CreateBackups {
					if err := os.WriteFile(path+".bak", raw, 0o644); err != nil {
						return fmt.Errorf("writing backup: %w", err)
					}
					for i := range rep.Attempts {
						rep.Attempts[i].BackupCreated = true
					}
				}
				if err := os.WriteFile(path, []byte(rep.FinalContent), 0o644); err != nil {
					return fmt.Errorf("writing fixed file: %w", err)
				}
				logger.Info("file rewritten",
					zap.String("path", path),
					zap.Int("fixed", rep.FixedErrors))
			}

			reporter, err := reporting.New(cfg.Report.Format)
			if err != nil {
				return err
			}
			out, err := reporter.FixReport(path, rep)
			if err != nil {
				return err
			}
			if cfg.Report.Output != "" {
				if err := os.WriteFile(cfg.Report.Output, []byte(out), 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), out)
			}

			if store != nil {
				if err := store.AppendRun(schemas.RunRecord{
					Timestamp:   rep.GeneratedAt,
					FilePath:    path,
					TotalErrors: rep.TotalErrors,
					FixedErrors: rep.FixedErrors,
					Passes:      rep.Passes,
					Converged:   rep.Converged,
				}); err != nil {
					logger.Warn("failed to append run history", zap.Error(err))
				}
			}

			openPR, _ := cmd.Flags().GetBool("pr")
			if openPR {
				if !cfg.Fixer.ApplyFixes || rep.FixedErrors == 0 {
					logger.Warn("skipping pull request: no applied fixes to deliver")
					return nil
				}
				gh, err := ghclient.New(cfg.GitHub, logger)
				if err != nil {
					return err
				}
				branch := "flowmend/fix-" + uuid.New().String()[:8]
				prURL, err := gh.OpenFixPR(cmd.Context(), ghclient.FixPR{
					Path:    path,
					Content: rep.FinalContent,
					Branch:  branch,
					Title:   fmt.Sprintf("Fix workflow configuration in %s", path),
					Body:    reporting.PRBody(path, rep),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nOpened pull request: %s\n", prURL)
			}
			return nil
		},
	}

	validateCmd.Flags().Bool("fix", false, "Rewrite the file with the applied fixes")
	validateCmd.Flags().String("min-confidence", "high", "Lowest confidence tier to attempt (very_high, high, medium, low, very_low)")
	validateCmd.Flags().Int("max-passes", 5, "Fixed-point iteration ceiling")
	validateCmd.Flags().Bool("learn", true, "Record unresolved errors in the learning store")
	validateCmd.Flags().String("format", "markdown", "Report format (markdown or json)")
	validateCmd.Flags().String("report", "", "Write the report to a file instead of stdout")
	validateCmd.Flags().Bool("pr", false, "Open a pull request with the fixed file (requires --fix and GitHub configuration)")

	return validateCmd
}
