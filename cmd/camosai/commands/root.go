// Package commands defines all Cobra CLI commands for the camosai binary.
package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/camoslabs/camosai/internal/audit"
	"github.com/camoslabs/camosai/internal/logging"
)

// configPath holds the --config flag value.
var configPath string

// promptsPath holds the --prompts flag value.
var promptsPath string

// Default file locations, overridable per flag or environment.
const (
	defaultConfigPath  = "config/model_config.yaml"
	defaultPromptsPath = "config/prompt_templates.yaml"
)

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "camosai",
		Short: "Camos AI — a documentation assistant for the Camos language",
		Long: `Camos AI is a local-first assistant for developers working with the Camos
configuration language.

It ingests Camos PDF manuals (text, embedded images via OCR, and tables),
indexes them in a vector store, and answers questions with retrieved
documentation context through a local Ollama model. It also hosts a small
community board of FAQs and pending questions.

Settings live in a YAML file (default: config/model_config.yaml); prompt
templates in a second one (default: config/prompt_templates.yaml).
See 'camosai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A .env next to the binary supplies UNIDOC_LICENSE_KEY and
			// similar; absence is fine.
			_ = godotenv.Load()

			if configPath == defaultConfigPath {
				if v := os.Getenv("CAMOSAI_CONFIG"); v != "" {
					configPath = v
				}
			}
			if promptsPath == defaultPromptsPath {
				if v := os.Getenv("CAMOSAI_PROMPTS"); v != "" {
					promptsPath = v
				}
			}

			log := logging.New()
			audit.LogCommandStart(log, cmd.Name(), configPath, promptsPath)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the YAML settings file")
	root.PersistentFlags().StringVar(&promptsPath, "prompts", defaultPromptsPath, "Path to the YAML prompt templates file")

	root.AddCommand(
		NewAskCmd(),
		NewDebugCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
