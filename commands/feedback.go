package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/orchestrator"
)

func newFeedbackStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback-stats [PATH]",
		Short: "Summarise a feedback log (default history.feedback_log)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.conf.History.FeedbackLog
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no feedback log configured")
			}
			entries, err := orchestrator.ReadFeedbackLog(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := orchestrator.SummarizeFeedback(entries)
			fmt.Fprintf(out, "entries:      %d\n", st.Total)
			if st.Total == 0 {
				return nil
			}
			fmt.Fprintf(out, "accuracy:     %.0f%%\n", st.Accuracy*100)
			fmt.Fprintf(out, "helpfulness:  %.1f/5\n", st.AvgHelpfulness)

			// predicted -> corrected, for the misses
			misses := make(map[emotion.Label]map[emotion.Label]int)
			for _, e := range entries {
				if e.IsCorrect {
					continue
				}
				if misses[e.Predicted] == nil {
					misses[e.Predicted] = make(map[emotion.Label]int)
				}
				misses[e.Predicted][e.Corrected]++
			}
			if len(misses) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\ncorrections:")
			for _, p := range emotion.Labels {
				for _, c := range emotion.Labels {
					if n := misses[p][c]; n > 0 {
						fmt.Fprintf(out, "  %-9s -> %-9s %d\n", p, c, n)
					}
				}
			}
			return nil
		},
	}
}
