// Package config loads the application settings and prompt templates from
// YAML files. Unlike most of our tooling, both files are required: a missing
// or unparsable settings file is a startup-fatal error, because every
// component downstream (ingestor, vector store, pipeline, FAQ store) is
// driven by it.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied to optional keys before validation.
const (
	defaultPDFDataDir      = "data/raw_pdfs"
	defaultVectorStorePath = "data/vector_store"
	defaultFAQDBPath       = "data/assistant.db"
	defaultChunkSize       = 500
	defaultChunkOverlap    = 50
	defaultEmbeddingModel  = "nomic-embed-text"
	defaultOllamaBaseURL   = "http://localhost:11434"
	defaultOllamaModel     = "mistral"
	defaultTemperature     = 0.2
	defaultRetrievalTopK   = 5
)

// Extra-content ordering modes for the ingestor. The original pipeline
// appended OCR and table records after the whole document's body text;
// per-page interleaving is available because retrieval quality under either
// ordering has not been settled.
const (
	// OrderAfterDocument appends OCR/table records after all body text pages.
	OrderAfterDocument = "after_document"
	// OrderPerPage interleaves OCR/table records with their originating page.
	OrderPerPage = "per_page"
)

// Vector store backends.
const (
	// BackendLocal is the on-disk index directory at vector_store_path.
	BackendLocal = "local"
	// BackendQdrant is a remote Qdrant collection.
	BackendQdrant = "qdrant"
)

// Config is the top-level settings structure, loaded once at process start
// and read-only thereafter.
type Config struct {
	// PDFDataDir is the directory scanned (non-recursively) for source PDFs.
	PDFDataDir string `yaml:"pdf_data_dir"`

	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Must be smaller than ChunkSize.
	ChunkOverlap int `yaml:"chunk_overlap"`

	// EmbeddingModelName is the embedding model served by Ollama.
	EmbeddingModelName string `yaml:"embedding_model_name"`

	// EmbeddingModelKwargs holds model options passed through to the
	// embedding endpoint as-is (e.g. num_ctx, device hints).
	EmbeddingModelKwargs map[string]any `yaml:"embedding_model_kwargs"`

	// VectorStorePath is the on-disk index directory (local backend).
	VectorStorePath string `yaml:"vector_store_path"`

	// OllamaBaseURL is the Ollama server endpoint for both the chat model
	// and the embedding model.
	OllamaBaseURL string `yaml:"ollama_base_url"`

	// OllamaModelName is the chat model used to answer questions.
	OllamaModelName string `yaml:"ollama_model_name"`

	// OllamaTemperature controls response randomness (0.0-1.0).
	OllamaTemperature float64 `yaml:"ollama_temperature"`

	// FAQDBPath is the SQLite database holding the FAQ and pending-question
	// stores. Use ":memory:" for an ephemeral board.
	FAQDBPath string `yaml:"faq_db_path"`

	// RetrievalTopK is the number of chunks retrieved per question.
	RetrievalTopK int `yaml:"retrieval_top_k"`

	// ExtraContentOrder selects where OCR/table records are placed relative
	// to body text before chunking: after_document (default) or per_page.
	ExtraContentOrder string `yaml:"extra_content_order"`

	// OCRLanguage is the Tesseract language code used for image OCR.
	// Empty disables the OCR stage.
	OCRLanguage string `yaml:"ocr_language"`

	// VectorBackend selects the vector store: local (default) or qdrant.
	VectorBackend string `yaml:"vector_backend"`

	// Qdrant holds the remote vector store settings (qdrant backend only).
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Server holds the HTTP server settings.
	Server ServerConfig `yaml:"server"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the collection name holding the documentation chunks.
	Collection string `yaml:"collection"`
	// TLS enables TLS for the gRPC connection.
	TLS bool `yaml:"tls"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address (default: 127.0.0.1).
	Host string `yaml:"host"`
	// Port is the TCP port (default: 8080).
	Port int `yaml:"port"`
	// RateLimit is the sustained request rate per client IP (req/s).
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the maximum instantaneous burst per client IP.
	RateBurst int `yaml:"rate_burst"`
}

// Load reads and validates the settings file at path. A missing file,
// unparsable content, or an invalid value combination is an error — the
// caller is expected to treat it as fatal.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// applyDefaults fills unset optional keys with their defaults.
func (c *Config) applyDefaults() {
	if c.PDFDataDir == "" {
		c.PDFDataDir = defaultPDFDataDir
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = defaultChunkOverlap
	}
	if c.EmbeddingModelName == "" {
		c.EmbeddingModelName = defaultEmbeddingModel
	}
	if c.VectorStorePath == "" {
		c.VectorStorePath = defaultVectorStorePath
	}
	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = defaultOllamaBaseURL
	}
	if c.OllamaModelName == "" {
		c.OllamaModelName = defaultOllamaModel
	}
	if c.OllamaTemperature == 0 {
		c.OllamaTemperature = defaultTemperature
	}
	if c.FAQDBPath == "" {
		c.FAQDBPath = defaultFAQDBPath
	}
	if c.RetrievalTopK == 0 {
		c.RetrievalTopK = defaultRetrievalTopK
	}
	if c.ExtraContentOrder == "" {
		c.ExtraContentOrder = OrderAfterDocument
	}
	if c.VectorBackend == "" {
		c.VectorBackend = BackendLocal
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "camos-docs"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// validate rejects value combinations that would break the pipeline.
func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must satisfy 0 <= overlap < chunk_size, got %d (size %d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.OllamaTemperature < 0 {
		return fmt.Errorf("ollama_temperature must not be negative, got %g", c.OllamaTemperature)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("retrieval_top_k must be positive, got %d", c.RetrievalTopK)
	}
	switch c.ExtraContentOrder {
	case OrderAfterDocument, OrderPerPage:
	default:
		return fmt.Errorf("extra_content_order must be %q or %q, got %q", OrderAfterDocument, OrderPerPage, c.ExtraContentOrder)
	}
	switch c.VectorBackend {
	case BackendLocal, BackendQdrant:
	default:
		return fmt.Errorf("vector_backend must be %q or %q, got %q", BackendLocal, BackendQdrant, c.VectorBackend)
	}
	return nil
}

// Prompts holds the named prompt templates. Templates use Go text/template
// placeholders: the RAG template takes .context and .question, the debug
// template takes .code_snippet and .error_message.
type Prompts struct {
	// RAGTemplate is filled with retrieved context and the user's question.
	RAGTemplate string `yaml:"rag_template"`

	// DebugTemplate is filled with a code snippet and an error message.
	DebugTemplate string `yaml:"debug_template"`
}

// LoadPrompts reads the prompt templates file at path. Both templates are
// required; a missing file or a missing template is an error.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read prompts %s: %w", path, err)
	}

	p := &Prompts{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("config: failed to parse prompts %s: %w", path, err)
	}

	if strings.TrimSpace(p.RAGTemplate) == "" {
		return nil, fmt.Errorf("config: prompts %s: rag_template is required", path)
	}
	if strings.TrimSpace(p.DebugTemplate) == "" {
		return nil, fmt.Errorf("config: prompts %s: debug_template is required", path)
	}

	return p, nil
}
