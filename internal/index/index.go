// Package index implements the default vector store: an on-disk index
// directory holding gob-serialized chunks and embeddings plus a small JSON
// manifest. The whole index lives in memory once opened; similarity search
// is an exact cosine scan, which is plenty for a documentation corpus of a
// few thousand chunks.
//
// The directory is a full snapshot: Rebuild replaces it atomically (write to
// a temp directory, then rename). Loading trusts the on-disk artifacts —
// they are produced locally by this binary, so no integrity verification is
// performed.
package index

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/camoslabs/camosai/internal/rag"
)

// File names inside the index directory.
const (
	manifestFile = "manifest.json"
	vectorsFile  = "index.gob"
)

// ErrNotFound reports that no index exists at the given directory. Callers
// treat this as "ingestion has not run yet", not as a failure.
var ErrNotFound = errors.New("index: not found")

// ErrNoDocuments reports that a rebuild was attempted with zero documents.
// Nothing is written in that case.
var ErrNoDocuments = errors.New("index: no documents to store")

// Store is an on-disk vector index implementing [rag.VectorStore].
type Store struct {
	// dir is the index directory this store is bound to.
	dir string
	// model is the embedding model the vectors were produced with.
	model string

	// mu guards the in-memory snapshot below.
	mu      sync.RWMutex
	docs    []rag.Document
	vectors [][]float32
	dim     int
	builtAt time.Time
}

// manifest describes the persisted index for humans and for compatibility
// checks on load.
type manifest struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Documents int       `json:"documents"`
	BuiltAt   time.Time `json:"built_at"`
}

// payload is the gob-serialized index body.
type payload struct {
	Docs    []rag.Document
	Vectors [][]float32
}

// New returns an empty Store bound to dir. The directory is not touched
// until the first Rebuild.
func New(dir, model string) *Store {
	return &Store{dir: dir, model: model}
}

// Open loads an existing index from dir. A missing or empty directory
// returns ErrNotFound so the caller can prompt for ingestion. An index
// built with a different embedding model is an error — its vectors are not
// comparable to ones produced now.
func Open(dir, model string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("index: read dir %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	mData, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("index: read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(mData, &m); err != nil {
		return nil, fmt.Errorf("index: parse manifest: %w", err)
	}
	if m.Model != model {
		return nil, fmt.Errorf("index: built with model %q, configured model is %q — re-ingest required", m.Model, model)
	}

	f, err := os.Open(filepath.Join(dir, vectorsFile))
	if err != nil {
		return nil, fmt.Errorf("index: open vectors: %w", err)
	}
	defer f.Close()

	var p payload
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("index: decode vectors: %w", err)
	}
	if len(p.Docs) != len(p.Vectors) {
		return nil, fmt.Errorf("index: corrupt index: %d documents but %d vectors", len(p.Docs), len(p.Vectors))
	}

	s := New(dir, model)
	s.docs = p.Docs
	s.vectors = p.Vectors
	s.dim = m.Dimension
	s.builtAt = m.BuiltAt
	return s, nil
}

// Rebuild replaces the in-memory snapshot and the on-disk directory with the
// given documents and embeddings. Zero documents returns ErrNoDocuments and
// writes nothing. The directory swap is atomic at the rename level.
func (s *Store) Rebuild(ctx context.Context, docs []rag.Document, embeddings [][]float32) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}
	if len(docs) != len(embeddings) {
		return fmt.Errorf("index: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("index: rebuild aborted: %w", err)
	}

	dim := len(embeddings[0])
	for i, v := range embeddings {
		if len(v) != dim {
			return fmt.Errorf("index: embedding %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	builtAt := time.Now().UTC()
	if err := persist(s.dir, s.model, docs, embeddings, dim, builtAt); err != nil {
		return err
	}

	s.mu.Lock()
	s.docs = docs
	s.vectors = embeddings
	s.dim = dim
	s.builtAt = builtAt
	s.mu.Unlock()

	return nil
}

// persist writes the index artifacts to a temp sibling directory and swaps
// it into place, so a crash mid-write never leaves a half-built index.
func persist(dir, model string, docs []rag.Document, vectors [][]float32, dim int, builtAt time.Time) error {
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("index: clear temp dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("index: create temp dir: %w", err)
	}

	mData, err := json.MarshalIndent(manifest{
		Model:     model,
		Dimension: dim,
		Documents: len(docs),
		BuiltAt:   builtAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), mData, 0o644); err != nil {
		return fmt.Errorf("index: write manifest: %w", err)
	}

	f, err := os.Create(filepath.Join(tmp, vectorsFile))
	if err != nil {
		return fmt.Errorf("index: create vectors file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(payload{Docs: docs, Vectors: vectors}); err != nil {
		f.Close()
		return fmt.Errorf("index: encode vectors: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("index: close vectors file: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("index: remove previous index: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("index: swap index into place: %w", err)
	}
	return nil
}

// Search returns the top-k documents by cosine similarity to the query
// embedding. Scores are attached to the returned documents.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("index: search aborted: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil, nil
	}
	if len(queryEmbedding) != s.dim {
		return nil, fmt.Errorf("index: query dimension %d does not match index dimension %d", len(queryEmbedding), s.dim)
	}

	type scored struct {
		i     int
		score float32
	}
	results := make([]scored, 0, len(s.docs))
	for i := range s.docs {
		results = append(results, scored{i: i, score: cosineSimilarity(queryEmbedding, s.vectors[i])})
	}
	sort.Slice(results, func(a, b int) bool { return results[a].score > results[b].score })

	if topK > len(results) {
		topK = len(results)
	}
	docs := make([]rag.Document, 0, topK)
	for _, r := range results[:topK] {
		doc := s.docs[r.i]
		doc.Score = r.score
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count reports the number of documents in the index.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// BuiltAt returns when the loaded snapshot was built. Zero for an empty store.
func (s *Store) BuiltAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builtAt
}

// Dir returns the index directory this store is bound to.
func (s *Store) Dir() string { return s.dir }

// Close releases nothing — the store holds no file handles between
// operations — but satisfies [rag.VectorStore].
func (s *Store) Close() error { return nil }

// cosineSimilarity computes the cosine similarity between two vectors of
// equal length. Returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
