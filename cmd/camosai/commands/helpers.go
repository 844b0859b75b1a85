package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/camoslabs/camosai/internal/config"
	"github.com/camoslabs/camosai/internal/index"
	"github.com/camoslabs/camosai/internal/ingest"
	"github.com/camoslabs/camosai/internal/pipeline"
	"github.com/camoslabs/camosai/internal/rag"
)

// loadSettings reads the settings and prompt template files resolved by the
// root command's flags.
func loadSettings() (*config.Config, *config.Prompts, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	prompts, err := config.LoadPrompts(promptsPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, prompts, nil
}

// buildVectorStore opens the configured vector store backend. For the local
// backend a missing index directory is not an error — the store starts empty
// and the first ingestion run populates it.
func buildVectorStore(cfg *config.Config) (rag.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		return rag.NewQdrantStore(&rag.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			Collection: cfg.Qdrant.Collection,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     cfg.Qdrant.TLS,
		})
	default:
		store, err := index.Open(cfg.VectorStorePath, cfg.EmbeddingModelName)
		if errors.Is(err, index.ErrNotFound) {
			return index.New(cfg.VectorStorePath, cfg.EmbeddingModelName), nil
		}
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		return store, nil
	}
}

// buildPipeline assembles the embedder, vector store, LLM, and prompt
// templates into a ready-to-use pipeline. The returned store is owned by the
// pipeline's caller and must be closed.
func buildPipeline(ctx context.Context, cfg *config.Config, prompts *config.Prompts, log *slog.Logger) (*pipeline.Pipeline, rag.VectorStore, error) {
	store, err := buildVectorStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder := rag.NewOllamaEmbedder(&rag.OllamaConfig{
		Host:    cfg.OllamaBaseURL,
		Model:   cfg.EmbeddingModelName,
		Options: cfg.EmbeddingModelKwargs,
	})

	llm, err := pipeline.NewOllamaLLM(cfg.OllamaBaseURL, cfg.OllamaModelName, cfg.OllamaTemperature)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	p, err := pipeline.New(ctx, pipeline.Options{
		Embedder:      embedder,
		Store:         store,
		LLM:           llm,
		RAGTemplate:   prompts.RAGTemplate,
		DebugTemplate: prompts.DebugTemplate,
		TopK:          cfg.RetrievalTopK,
		Logger:        log,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return p, store, nil
}

// buildIngestor assembles the PDF ingestor from the settings. OCR is enabled
// only when ocr_language is set; the UniPDF license is registered from the
// environment.
func buildIngestor(cfg *config.Config, log *slog.Logger) (*ingest.Ingestor, error) {
	ingest.SetupLicense(log)

	var ocr ingest.OCR
	if cfg.OCRLanguage != "" {
		ocr = ingest.NewTesseractOCR(cfg.OCRLanguage)
	}

	return ingest.New(ingest.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Order:        cfg.ExtraContentOrder,
		OCR:          ocr,
		Logger:       log,
	})
}

// runIngestion executes a full ingestion run: extract and chunk the corpus,
// then rebuild the vector store. Returns the number of chunks indexed.
func runIngestion(ctx context.Context, cfg *config.Config, ing *ingest.Ingestor, p *pipeline.Pipeline, log *slog.Logger) (int, error) {
	chunks, err := ing.IngestDir(ctx, cfg.PDFDataDir)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks extracted from %s — is the directory empty?", cfg.PDFDataDir)
	}

	log.Info("chunks extracted", slog.Int("count", len(chunks)))
	if err := p.Rebuild(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
