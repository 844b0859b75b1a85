package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/camoslabs/camosai/internal/ingest"
	"github.com/camoslabs/camosai/internal/rag"
)

// fakeEmbedder returns a fixed-dimension vector per text and can be set to
// fail.
type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// memStore is an in-memory rag.VectorStore.
type memStore struct {
	docs       []rag.Document
	searchFail bool
}

func (m *memStore) Rebuild(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errors.New("length mismatch")
	}
	m.docs = docs
	return nil
}

func (m *memStore) Search(_ context.Context, _ []float32, topK int) ([]rag.Document, error) {
	if m.searchFail {
		return nil, errors.New("search backend down")
	}
	if topK > len(m.docs) {
		topK = len(m.docs)
	}
	return m.docs[:topK], nil
}

func (m *memStore) Count(context.Context) (int, error) { return len(m.docs), nil }
func (m *memStore) Close() error                       { return nil }

// fakeLLM echoes the prompt so tests can assert on template rendering.
type fakeLLM struct {
	fail bool
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	if f.fail {
		return "", errors.New("model unavailable")
	}
	return "ANSWER:" + prompt, nil
}

const (
	testRAGTemplate   = "Context:\n{{.context}}\n\nQuestion: {{.question}}"
	testDebugTemplate = "Code:\n{{.code_snippet}}\n\nError: {{.error_message}}"
)

func newTestPipeline(t *testing.T, store *memStore, llm LLM) *Pipeline {
	t.Helper()
	p, err := New(context.Background(), Options{
		Embedder:      &fakeEmbedder{},
		Store:         store,
		LLM:           llm,
		RAGTemplate:   testRAGTemplate,
		DebugTemplate: testDebugTemplate,
		TopK:          3,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestQueryRAGNotReady(t *testing.T) {
	p := newTestPipeline(t, &memStore{}, &fakeLLM{})

	res := p.QueryRAG(context.Background(), "what is a variant?")
	if !res.Failed {
		t.Fatal("expected failed result before ingestion")
	}
	if res.Text != "RAG system not ready. Please ensure data has been ingested." {
		t.Fatalf("unexpected not-ready message: %q", res.Text)
	}
	if len(res.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", res.Sources)
	}
}

func TestNewRestoresExistingStore(t *testing.T) {
	store := &memStore{docs: []rag.Document{{ID: "1", Content: "prior"}}}
	p := newTestPipeline(t, store, &fakeLLM{})
	if !p.Ready() {
		t.Fatal("pipeline should be ready when the store already holds documents")
	}
}

func TestRebuildThenQuery(t *testing.T) {
	store := &memStore{}
	p := newTestPipeline(t, store, &fakeLLM{})

	chunks := []ingest.Chunk{
		{Text: "Variants hold typed values.", Source: "types.pdf", Page: 3, Kind: ingest.KindBodyText},
		{Text: "Use SET to assign.", Source: "types.pdf", Page: 3, Kind: ingest.KindBodyText},
	}
	if err := p.Rebuild(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	if !p.Ready() {
		t.Fatal("pipeline should be ready after rebuild")
	}

	res := p.QueryRAG(context.Background(), "how do I assign a variant?")
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Reason)
	}
	if !strings.Contains(res.Text, "Variants hold typed values.") {
		t.Errorf("retrieved context not rendered into prompt: %q", res.Text)
	}
	if !strings.Contains(res.Text, "how do I assign a variant?") {
		t.Errorf("question not rendered into prompt: %q", res.Text)
	}
	if len(res.Sources) != 1 || res.Sources[0] != "types.pdf (page 3)" {
		t.Errorf("sources = %v, want deduplicated [types.pdf (page 3)]", res.Sources)
	}
}

func TestRebuildRejectsEmpty(t *testing.T) {
	store := &memStore{docs: []rag.Document{{ID: "1", Content: "keep me"}}}
	p := newTestPipeline(t, store, &fakeLLM{})

	if err := p.Rebuild(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty rebuild")
	}
	if len(store.docs) != 1 {
		t.Fatal("empty rebuild must not touch the store")
	}
}

func TestRebuildClearsStale(t *testing.T) {
	store := &memStore{}
	p := newTestPipeline(t, store, &fakeLLM{})

	p.MarkStale()
	if !p.Stale() {
		t.Fatal("expected stale after MarkStale")
	}

	chunks := []ingest.Chunk{{Text: "x", Source: "a.pdf", Page: 1, Kind: ingest.KindBodyText}}
	if err := p.Rebuild(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	if p.Stale() {
		t.Fatal("rebuild should clear staleness")
	}
}

func TestQueryRAGGenerationFailure(t *testing.T) {
	store := &memStore{docs: []rag.Document{{ID: "1", Content: "ctx", Source: "a.pdf", Page: 1}}}
	p := newTestPipeline(t, store, &fakeLLM{fail: true})

	res := p.QueryRAG(context.Background(), "anything")
	if !res.Failed {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(res.Reason, "generation failed") {
		t.Errorf("reason = %q", res.Reason)
	}
	if !strings.HasPrefix(res.Text, "Sorry, I encountered an error") {
		t.Errorf("failure text should stay user-presentable, got %q", res.Text)
	}
}

func TestQueryRAGRetrievalFailure(t *testing.T) {
	store := &memStore{docs: []rag.Document{{ID: "1", Content: "ctx"}}, searchFail: true}
	p := newTestPipeline(t, store, &fakeLLM{})

	res := p.QueryRAG(context.Background(), "anything")
	if !res.Failed || !strings.Contains(res.Reason, "retrieval failed") {
		t.Fatalf("expected retrieval failure, got %+v", res)
	}
}

func TestDebugCode(t *testing.T) {
	p := newTestPipeline(t, &memStore{}, &fakeLLM{})

	res := p.DebugCode(context.Background(), "SET x = ", "syntax error near EOF")
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Reason)
	}
	if !strings.Contains(res.Text, "SET x = ") || !strings.Contains(res.Text, "syntax error near EOF") {
		t.Errorf("debug prompt not rendered: %q", res.Text)
	}
	if len(res.Sources) != 0 {
		t.Errorf("debug answers carry no sources, got %v", res.Sources)
	}
}

func TestDebugCodeWorksWithoutIngestion(t *testing.T) {
	p := newTestPipeline(t, &memStore{}, &fakeLLM{})
	if p.Ready() {
		t.Fatal("precondition: pipeline not ready")
	}
	res := p.DebugCode(context.Background(), "code", "err")
	if res.Failed {
		t.Fatal("debug path must not require an ingested corpus")
	}
}

func TestChunkIDDeterministic(t *testing.T) {
	c := ingest.Chunk{Text: "x", Source: "a.pdf", Page: 2, Kind: ingest.KindBodyText}
	if chunkID(c, 0) != chunkID(c, 0) {
		t.Fatal("same chunk must map to the same ID")
	}
	if chunkID(c, 0) == chunkID(c, 1) {
		t.Fatal("different ordinals must map to different IDs")
	}
}
