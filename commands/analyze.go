package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/history"
	"github.com/codexlabs/emotion-analyzer/orchestrator"
	"github.com/codexlabs/emotion-analyzer/render"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		lang      string
		prompt    string
		intensity float64
		export    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Classify one or more audio files (wav, mp3, ogg, m4a)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := emotion.ParseLanguage(lang)
			if err != nil {
				return err
			}
			if err := (history.Meta{Intensity: intensity}).Validate(); err != nil {
				return err
			}
			sess, err := orchestrator.NewSession(a.conf, a.classifier(), a.log)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			width := barWidth(out)
			results := sess.AnalyzeFiles(cmd.Context(), args, l, history.Meta{Prompt: prompt, Intensity: intensity})
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Fprint(out, render.Record(r.Record, l, width))
			}

			if recs := sess.Store.List(history.Filter{}); len(recs) > 1 {
				first, last := recs[0].ID, recs[len(recs)-1].ID
				deltas, err := sess.Store.Compare(first, last)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, render.Comparison(first, last, deltas, l))
				fmt.Fprintln(out)
				fmt.Fprint(out, render.Stats(sess.Store.Stats(), l, width))
			}

			if export && sess.Store.Len() > 0 {
				path, err := sess.Export()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "exported to %s\n", path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&lang, "lang", "l", "en", "language for label names")
	f.StringVarP(&prompt, "prompt", "p", "", "guided prompt the recording answers")
	f.Float64Var(&intensity, "intensity", 0, "self-rated intensity in [0, 1]; 0 leaves it unset")
	f.BoolVar(&export, "export", false, "write the session history under history.outputs")
	return cmd
}
