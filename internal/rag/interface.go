// Package rag defines the interfaces for retrieval-augmented generation
// components: embedding, vector storage, and document retrieval. Concrete
// implementations (the on-disk index, Qdrant) satisfy these interfaces so the
// pipeline layer never depends on a specific backend.
package rag

import (
	"context"
)

// Chunk kinds carried through the vector store. They mirror the extraction
// stage that produced the text.
const (
	// KindBodyText marks primary per-page text.
	KindBodyText = "body_text"
	// KindImageOCR marks text recovered from embedded images.
	KindImageOCR = "image_ocr"
	// KindTableData marks tables serialized as markdown blocks.
	KindTableData = "table_data"
)

// Document is a unit of stored or retrieved knowledge: one chunk of a source
// PDF together with its provenance.
type Document struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the chunk text.
	Content string

	// Source is the originating document's file name.
	Source string

	// Page is the 1-based page number the chunk came from.
	Page int

	// Kind identifies the extraction stage (body_text, image_ocr, table_data).
	Kind string

	// Index is the 1-based position of the originating record within its
	// kind (e.g. the second OCR'd image of a document). Zero for body text.
	Index int

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists document embeddings and answers similarity queries.
// The store's lifecycle is snapshot-based: each ingestion run fully replaces
// the previous contents via Rebuild — there is no incremental update path.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Rebuild replaces the entire store contents with the given documents
	// and their pre-computed embeddings. The embeddings slice must be
	// parallel to docs — embeddings[i] is the vector for docs[i].
	Rebuild(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k documents most similar to the query embedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Count reports the number of documents currently stored.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Retriever is the high-level operation the pipeline uses to fetch relevant
// context for a question. It combines embedding and vector search.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the query.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
