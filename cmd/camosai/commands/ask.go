package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/camoslabs/camosai/internal/logging"
)

// NewAskCmd constructs the `camosai ask` command, which answers a single
// question using retrieved documentation context and prints the result.
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the Camos language",
		Long: `Ask a natural language question about Camos. The answer is grounded in the
ingested documentation; run 'camosai ingest' first.

Examples:
  camosai ask "how do I declare a variant?"
  camosai ask "what does the TABLE keyword do?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			cfg, prompts, err := loadSettings()
			if err != nil {
				return err
			}

			p, store, err := buildPipeline(ctx, cfg, prompts, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer store.Close()

			res := p.QueryRAG(ctx, strings.Join(args, " "))
			fmt.Println(res.Text)
			if len(res.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range res.Sources {
					fmt.Printf("  - %s\n", s)
				}
			}
			if res.Failed {
				return fmt.Errorf("ask: %s", res.Reason)
			}
			return nil
		},
	}
}
