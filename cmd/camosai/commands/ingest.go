package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/camoslabs/camosai/internal/logging"
)

// NewIngestCmd constructs the `camosai ingest` command, which runs the
// documentation ingestion pipeline and rebuilds the vector store.
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Ingest Camos PDF manuals into the vector store",
		Long: `Extract, chunk, embed, and index the Camos PDF manuals found in the
configured pdf_data_dir.

Each run fully replaces the previous index contents. Page text, OCR'd
embedded images, and detected tables are all indexed; individual broken
documents are skipped with a warning.

Relevant settings (model_config.yaml):
  pdf_data_dir          Directory scanned for .pdf files (non-recursive)
  chunk_size            Maximum characters per chunk
  chunk_overlap         Characters shared between consecutive chunks
  ocr_language          Tesseract language code; empty disables OCR
  extra_content_order   after_document or per_page
  vector_backend        local or qdrant

Examples:
  camosai ingest
  camosai ingest --config /etc/camosai/model_config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			cfg, prompts, err := loadSettings()
			if err != nil {
				return err
			}

			p, store, err := buildPipeline(ctx, cfg, prompts, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			ing, err := buildIngestor(cfg, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			log.Info("ingestion starting",
				slog.String("dir", cfg.PDFDataDir),
				slog.String("backend", cfg.VectorBackend),
			)

			chunks, err := runIngestion(ctx, cfg, ing, p, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("Indexed %d chunks from %s\n", chunks, cfg.PDFDataDir)
			return nil
		},
	}
}
