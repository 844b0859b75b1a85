package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camoslabs/camosai/internal/logging"
)

// NewDebugCmd constructs the `camosai debug` command, which explains a
// failing Camos code snippet.
func NewDebugCmd() *cobra.Command {
	var file string
	var errorMessage string

	cmd := &cobra.Command{
		Use:   "debug [snippet]",
		Short: "Explain a failing Camos code snippet",
		Long: `Send a Camos code snippet and its error message to the model for an
explanation and a suggested fix. No documentation retrieval is involved, so
this works before any ingestion run.

Examples:
  camosai debug 'SET x =' --error "syntax error near EOF"
  camosai debug --file broken.cms --error "unknown identifier 'tabel'"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			var snippet string
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("debug: read snippet file: %w", err)
				}
				snippet = string(data)
			case len(args) == 1:
				snippet = args[0]
			default:
				return fmt.Errorf("debug: provide a snippet argument or --file")
			}

			cfg, prompts, err := loadSettings()
			if err != nil {
				return err
			}

			p, store, err := buildPipeline(ctx, cfg, prompts, log)
			if err != nil {
				return fmt.Errorf("debug: %w", err)
			}
			defer store.Close()

			res := p.DebugCode(ctx, snippet, errorMessage)
			fmt.Println(res.Text)
			if res.Failed {
				return fmt.Errorf("debug: %s", res.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the code snippet from a file")
	cmd.Flags().StringVarP(&errorMessage, "error", "e", "", "The error message the snippet produces")

	return cmd
}
