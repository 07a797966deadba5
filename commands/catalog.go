package commands

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/codexlabs/emotion-analyzer/orchestrator"
	"github.com/codexlabs/emotion-analyzer/render"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages labels can be shown in",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), render.Languages())
		},
	}
}

func newPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List guided recording prompts",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, c := range orchestrator.Prompts() {
				fmt.Fprintln(out, c.Name)
				for _, p := range c.Prompts {
					fmt.Fprintf(out, "  - %s\n", p)
				}
			}
		},
	}
}

// ExportSchema describes the file written by analyze --export and POST /api/v1/export.
func ExportSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&orchestrator.PersistBundle{})
	s.Title = "Emotion analyzer session export"
	return s
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of session exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := json.MarshalIndent(ExportSchema(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (API key masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.conf.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
