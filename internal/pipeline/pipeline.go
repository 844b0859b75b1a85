// Package pipeline wires retrieval and generation into the two operations the
// assistant exposes: answering a Camos question with retrieved documentation
// context, and explaining a code snippet's error without retrieval.
//
// The pipeline never panics on an LLM or retrieval failure and never returns
// a bare error to the chat surface. Every query produces a Result: on failure
// Result.Failed is set, Result.Reason carries the diagnostic for logs, and
// Result.Text still holds a user-presentable message.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/prompts"

	"github.com/camoslabs/camosai/internal/ingest"
	"github.com/camoslabs/camosai/internal/rag"
)

// NotReadyMessage is returned when a question arrives before any ingestion
// run has populated the vector store.
const NotReadyMessage = "RAG system not ready. Please ensure data has been ingested."

// chunkNamespace is the UUID namespace for deterministic chunk IDs, so
// re-ingesting identical content yields identical point IDs.
var chunkNamespace = uuid.MustParse("8f3c1c58-9a43-4f7e-9d2e-5b2b0b6d7a11")

// Result is the outcome of one pipeline operation.
type Result struct {
	// Text is the answer shown to the user. Always set, even on failure.
	Text string
	// Sources lists the provenance of the retrieved context, deduplicated,
	// as "file.pdf (page N)". Empty for debug queries and failures.
	Sources []string
	// Failed reports whether the operation hit an internal error.
	Failed bool
	// Reason is the diagnostic for a failed operation, for logs — never
	// shown to the user verbatim.
	Reason string
}

// Options configures a Pipeline.
type Options struct {
	// Embedder embeds chunks at rebuild time and queries at answer time.
	Embedder rag.Embedder
	// Store is the vector store backing retrieval.
	Store rag.VectorStore
	// LLM generates answers.
	LLM LLM
	// RAGTemplate is the question-answering prompt with .context and
	// .question placeholders.
	RAGTemplate string
	// DebugTemplate is the code-debugging prompt with .code_snippet and
	// .error_message placeholders.
	DebugTemplate string
	// TopK is the number of chunks retrieved per question.
	TopK int
	// Logger receives operation logs. Defaults to slog.Default.
	Logger *slog.Logger
}

// Pipeline answers questions over the ingested documentation.
type Pipeline struct {
	embedder  rag.Embedder
	store     rag.VectorStore
	retriever rag.Retriever
	llm       LLM
	ragTmpl   prompts.PromptTemplate
	debugTmpl prompts.PromptTemplate
	topK      int
	log       *slog.Logger

	mu    sync.RWMutex
	ready bool
	stale bool
}

// New constructs a Pipeline and probes the store: if a previous ingestion run
// left documents behind, the pipeline starts ready.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("pipeline: embedder must not be nil")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline: store must not be nil")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("pipeline: llm must not be nil")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ragTmpl := prompts.PromptTemplate{
		Template:       opts.RAGTemplate,
		InputVariables: []string{"context", "question"},
		TemplateFormat: prompts.TemplateFormatGoTemplate,
	}
	debugTmpl := prompts.PromptTemplate{
		Template:       opts.DebugTemplate,
		InputVariables: []string{"code_snippet", "error_message"},
		TemplateFormat: prompts.TemplateFormatGoTemplate,
	}

	retriever, err := rag.NewRetriever(opts.Embedder, opts.Store, opts.TopK)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder:  opts.Embedder,
		store:     opts.Store,
		retriever: retriever,
		llm:       opts.LLM,
		ragTmpl:   ragTmpl,
		debugTmpl: debugTmpl,
		topK:      opts.TopK,
		log:       opts.Logger,
	}

	if count, err := opts.Store.Count(ctx); err == nil && count > 0 {
		p.ready = true
		p.log.Info("pipeline: restored existing vector store", slog.Int("documents", count))
	}

	return p, nil
}

// Ready reports whether the vector store holds documents.
func (p *Pipeline) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Stale reports whether the source corpus changed since the last rebuild.
func (p *Pipeline) Stale() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stale
}

// MarkStale flags the index as out of date with the source corpus. Queries
// still work against the old snapshot until the next Rebuild.
func (p *Pipeline) MarkStale() {
	p.mu.Lock()
	p.stale = true
	p.mu.Unlock()
}

// Rebuild embeds the chunks and replaces the vector store contents with them.
// An empty chunk slice is rejected without touching the store, so a bad
// ingestion run cannot wipe a working index.
func (p *Pipeline) Rebuild(ctx context.Context, chunks []ingest.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("pipeline: refusing to rebuild from zero chunks")
	}

	docs := make([]rag.Document, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = rag.Document{
			ID:      chunkID(c, i),
			Content: c.Text,
			Source:  c.Source,
			Page:    c.Page,
			Kind:    string(c.Kind),
			Index:   c.Index,
		}
		texts[i] = c.Text
	}

	p.log.Info("pipeline: embedding chunks", slog.Int("count", len(texts)))
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("pipeline: embedding chunks: %w", err)
	}

	if err := p.store.Rebuild(ctx, docs, embeddings); err != nil {
		return fmt.Errorf("pipeline: rebuilding vector store: %w", err)
	}

	p.mu.Lock()
	p.ready = true
	p.stale = false
	p.mu.Unlock()

	p.log.Info("pipeline: vector store rebuilt", slog.Int("documents", len(docs)))
	return nil
}

// QueryRAG answers a Camos question using retrieved documentation context.
func (p *Pipeline) QueryRAG(ctx context.Context, question string) Result {
	if !p.Ready() {
		return Result{
			Text:   NotReadyMessage,
			Failed: true,
			Reason: "vector store is empty",
		}
	}

	docs, err := p.retriever.Retrieve(ctx, question, p.topK)
	if err != nil {
		return p.failure("retrieval failed", err)
	}

	prompt, err := p.ragTmpl.Format(map[string]any{
		"context":  joinContext(docs),
		"question": question,
	})
	if err != nil {
		return p.failure("rendering prompt failed", err)
	}

	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return p.failure("generation failed", err)
	}

	return Result{
		Text:    answer,
		Sources: sourcesOf(docs),
	}
}

// DebugCode explains a failing code snippet. No retrieval is involved — the
// model works from the snippet and the error message alone.
func (p *Pipeline) DebugCode(ctx context.Context, codeSnippet, errorMessage string) Result {
	prompt, err := p.debugTmpl.Format(map[string]any{
		"code_snippet":  codeSnippet,
		"error_message": errorMessage,
	})
	if err != nil {
		return p.failure("rendering debug prompt failed", err)
	}

	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return p.failure("generation failed", err)
	}

	return Result{Text: answer}
}

// failure logs the error and wraps it in a user-presentable Result.
func (p *Pipeline) failure(stage string, err error) Result {
	p.log.Error("pipeline: "+stage, slog.Any("error", err))
	return Result{
		Text:   fmt.Sprintf("Sorry, I encountered an error while processing your request: %v", err),
		Failed: true,
		Reason: fmt.Sprintf("%s: %v", stage, err),
	}
}

// joinContext concatenates retrieved chunk texts into one prompt context
// block.
func joinContext(docs []rag.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// sourcesOf lists each retrieved document's provenance once, in retrieval
// order.
func sourcesOf(docs []rag.Document) []string {
	seen := make(map[string]bool, len(docs))
	var sources []string
	for _, d := range docs {
		s := fmt.Sprintf("%s (page %d)", d.Source, d.Page)
		if seen[s] {
			continue
		}
		seen[s] = true
		sources = append(sources, s)
	}
	return sources
}

// chunkID derives a stable UUID for a chunk from its provenance and position.
func chunkID(c ingest.Chunk, ordinal int) string {
	key := fmt.Sprintf("%s|%d|%s|%d|%d", c.Source, c.Page, c.Kind, c.Index, ordinal)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}
