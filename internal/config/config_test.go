package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing settings file")
	}
}

func TestLoadUnparsable(t *testing.T) {
	path := writeFile(t, "chunk_size: [not an int")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparsable yaml")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "{}")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("chunking defaults: size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.EmbeddingModelName != "nomic-embed-text" {
		t.Errorf("embedding model default: %q", cfg.EmbeddingModelName)
	}
	if cfg.OllamaBaseURL != "http://localhost:11434" || cfg.OllamaModelName != "mistral" {
		t.Errorf("ollama defaults: %q %q", cfg.OllamaBaseURL, cfg.OllamaModelName)
	}
	if cfg.OllamaTemperature != 0.2 {
		t.Errorf("temperature default: %g", cfg.OllamaTemperature)
	}
	if cfg.RetrievalTopK != 5 {
		t.Errorf("top-k default: %d", cfg.RetrievalTopK)
	}
	if cfg.ExtraContentOrder != OrderAfterDocument {
		t.Errorf("order default: %q", cfg.ExtraContentOrder)
	}
	if cfg.VectorBackend != BackendLocal {
		t.Errorf("backend default: %q", cfg.VectorBackend)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeFile(t, `
pdf_data_dir: /srv/camos/pdfs
chunk_size: 800
chunk_overlap: 100
ollama_model_name: llama3
vector_backend: qdrant
qdrant:
  host: qdrant.internal
  collection: camos
extra_content_order: per_page
ocr_language: deu
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PDFDataDir != "/srv/camos/pdfs" || cfg.ChunkSize != 800 || cfg.ChunkOverlap != 100 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.VectorBackend != BackendQdrant || cfg.Qdrant.Host != "qdrant.internal" {
		t.Errorf("qdrant overrides not applied: %+v", cfg.Qdrant)
	}
	if cfg.Qdrant.Port != 6334 {
		t.Errorf("qdrant port default not applied: %d", cfg.Qdrant.Port)
	}
	if cfg.ExtraContentOrder != OrderPerPage || cfg.OCRLanguage != "deu" {
		t.Errorf("ingest overrides not applied: %q %q", cfg.ExtraContentOrder, cfg.OCRLanguage)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative chunk size", "chunk_size: -5"},
		{"overlap >= size", "chunk_size: 100\nchunk_overlap: 100"},
		{"negative overlap", "chunk_size: 100\nchunk_overlap: -1"},
		{"negative temperature", "ollama_temperature: -0.5"},
		{"zero top-k", "retrieval_top_k: -1"},
		{"bad order", "extra_content_order: sideways"},
		{"bad backend", "vector_backend: faiss"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadPrompts(t *testing.T) {
	path := writeFile(t, `
rag_template: |
  Context: {{.context}}
  Question: {{.question}}
debug_template: |
  Code: {{.code_snippet}}
  Error: {{.error_message}}
`)
	p, err := LoadPrompts(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.RAGTemplate == "" || p.DebugTemplate == "" {
		t.Fatalf("templates not loaded: %+v", p)
	}
}

func TestLoadPromptsMissingTemplate(t *testing.T) {
	path := writeFile(t, "rag_template: only one\n")
	if _, err := LoadPrompts(path); err == nil {
		t.Fatal("expected error when debug_template is missing")
	}

	if _, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing prompts file")
	}
}
