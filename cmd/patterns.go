// File: cmd/patterns.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quellcrist/flowmend/internal/config"
	"github.com/quellcrist/flowmend/internal/learning"
	"github.com/quellcrist/flowmend/internal/observability"
)

// newPatternsCmd creates and configures the `patterns` command, which
// inspects the learning store.
func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Shows learned error patterns and which are promoted to rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			store, err := learning.NewStore(cfg.Learning, observability.GetLogger())
			if err != nil {
				return err
			}

			patterns := store.Patterns()
			rules := store.Promote()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Learned patterns: %d (%d promoted to rules)\n\n", len(patterns), len(rules))
			for _, p := range patterns {
				fmt.Fprintf(out, "  %-4dx  conf %.2f  [%s]  %s\n", p.Frequency, p.Confidence, p.Category, p.ErrorText)
				if p.FixSuggestion != "" {
					fmt.Fprintf(out, "         %s\n", p.FixSuggestion)
				}
			}
			if len(rules) > 0 {
				fmt.Fprintf(out, "\nActive substitution rules:\n")
				for _, r := range rules {
					fmt.Fprintf(out, "  %q -> %q\n", r.Old, r.New)
				}
			}
			return nil
		},
	}
}
