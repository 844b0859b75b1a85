// Package ingest implements the documentation ingestion pipeline: it walks a
// directory of Camos PDF manuals, extracts the text layer of every page plus
// secondary content (OCR over embedded images, tables detected in the text
// layer), and splits everything into overlapping fixed-size chunks tagged
// with their provenance.
//
// Failure policy: a broken document, a failing OCR call, or a bad image only
// costs that document or that extraction stage — the rest of the batch
// continues. An empty source directory is not an error; it simply yields no
// chunks.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies the extraction stage a chunk's text came from.
type Kind string

const (
	// KindBodyText is primary per-page text.
	KindBodyText Kind = "body_text"
	// KindImageOCR is text recovered from an embedded image.
	KindImageOCR Kind = "image_ocr"
	// KindTableData is a table serialized as a markdown block.
	KindTableData Kind = "table_data"
)

// Extra-content ordering modes. OrderAfterDocument reproduces the historical
// behavior (all body text first, then OCR records, then tables); OrderPerPage
// keeps secondary records next to their originating page.
const (
	OrderAfterDocument = "after_document"
	OrderPerPage       = "per_page"
)

// Chunk is one bounded-length span of extracted text together with its
// origin. Chunks are immutable once produced; the embedding step is their
// only consumer.
type Chunk struct {
	// Text is the chunk content.
	Text string
	// Source is the originating document's file name (not its full path).
	Source string
	// Page is the 1-based page the text came from.
	Page int
	// Kind is the extraction stage that produced the text.
	Kind Kind
	// Index is the 1-based position of the originating record within its
	// kind for OCR and table records. Zero for body text.
	Index int
}

// Options configures an Ingestor.
type Options struct {
	// ChunkSize is the maximum chunk length in characters. Required, > 0.
	ChunkSize int
	// ChunkOverlap is the overlap between consecutive chunks. Must be
	// non-negative and smaller than ChunkSize.
	ChunkOverlap int
	// Order selects where OCR/table records land relative to body text:
	// OrderAfterDocument (default) or OrderPerPage.
	Order string
	// Extractor extracts per-page content. Defaults to PDFExtractor.
	Extractor Extractor
	// OCR recognizes text in embedded images. Nil disables the OCR stage.
	OCR OCR
	// Logger receives per-document progress and skip warnings.
	// Defaults to slog.Default.
	Logger *slog.Logger
}

// Ingestor turns a directory of PDFs into an ordered sequence of chunks.
type Ingestor struct {
	chunkSize    int
	chunkOverlap int
	order        string
	extractor    Extractor
	ocr          OCR
	log          *slog.Logger
}

// New constructs an Ingestor, validating the chunking parameters.
func New(opts Options) (*Ingestor, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("ingest: chunk size must be positive, got %d", opts.ChunkSize)
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		return nil, fmt.Errorf("ingest: chunk overlap must satisfy 0 <= overlap < size, got %d (size %d)", opts.ChunkOverlap, opts.ChunkSize)
	}
	if opts.Order == "" {
		opts.Order = OrderAfterDocument
	}
	if opts.Order != OrderAfterDocument && opts.Order != OrderPerPage {
		return nil, fmt.Errorf("ingest: unknown order %q", opts.Order)
	}
	if opts.Extractor == nil {
		opts.Extractor = PDFExtractor{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Ingestor{
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		order:        opts.Order,
		extractor:    opts.Extractor,
		ocr:          opts.OCR,
		log:          opts.Logger,
	}, nil
}

// record is an intermediate extraction result before chunking. Chunks
// inherit its metadata.
type record struct {
	text  string
	page  int
	kind  Kind
	index int
}

// IngestDir processes every PDF directly inside dir (no recursion) and
// returns the resulting chunks in document order. Per-document failures are
// logged and skipped; an empty directory yields an empty slice.
func (ing *Ingestor) IngestDir(ctx context.Context, dir string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: read source dir %s: %w", dir, err)
	}

	var chunks []Chunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingest: aborted: %w", err)
		}

		path := filepath.Join(dir, entry.Name())
		docChunks, err := ing.ingestDocument(ctx, path)
		if err != nil {
			ing.log.Warn("ingest: skipping document",
				slog.String("document", entry.Name()),
				slog.Any("error", err),
			)
			continue
		}

		ing.log.Info("ingest: processed document",
			slog.String("document", entry.Name()),
			slog.Int("chunks", len(docChunks)),
		)
		chunks = append(chunks, docChunks...)
	}

	return chunks, nil
}

// ingestDocument extracts one document and chunks its records.
func (ing *Ingestor) ingestDocument(ctx context.Context, path string) ([]Chunk, error) {
	pages, err := ing.extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	records := ing.collectRecords(ctx, source, pages)

	var chunks []Chunk
	for _, rec := range records {
		for _, window := range splitText(rec.text, ing.chunkSize, ing.chunkOverlap) {
			chunks = append(chunks, Chunk{
				Text:   window,
				Source: source,
				Page:   rec.page,
				Kind:   rec.kind,
				Index:  rec.index,
			})
		}
	}
	return chunks, nil
}

// collectRecords runs the three extraction stages over the pages and orders
// their records according to the configured mode.
func (ing *Ingestor) collectRecords(ctx context.Context, source string, pages []Page) []record {
	body := make([]record, 0, len(pages))
	ocrByPage := make(map[int][]record)
	tablesByPage := make(map[int][]record)

	ocrIdx := 0
	tableIdx := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) != "" {
			body = append(body, record{text: page.Text, page: page.Number, kind: KindBodyText})
		}

		if ing.ocr != nil {
			for _, img := range page.Images {
				if err := ctx.Err(); err != nil {
					return body
				}
				text, err := ing.ocr.ImageText(img)
				if err != nil {
					ing.log.Warn("ingest: ocr failed, skipping image",
						slog.String("document", source),
						slog.Int("page", page.Number),
						slog.Any("error", err),
					)
					continue
				}
				if strings.TrimSpace(text) == "" {
					continue
				}
				ocrIdx++
				ocrByPage[page.Number] = append(ocrByPage[page.Number], record{
					text:  fmt.Sprintf("Image content from page %d:\n%s", page.Number, text),
					page:  page.Number,
					kind:  KindImageOCR,
					index: ocrIdx,
				})
			}
		}

		for _, md := range detectTables(page.Text) {
			tableIdx++
			tablesByPage[page.Number] = append(tablesByPage[page.Number], record{
				text:  fmt.Sprintf("Table %d from page %d:\n\n%s", tableIdx, page.Number, md),
				page:  page.Number,
				kind:  KindTableData,
				index: tableIdx,
			})
		}
	}

	if ing.order == OrderPerPage {
		var records []record
		for _, page := range pages {
			for _, rec := range body {
				if rec.page == page.Number {
					records = append(records, rec)
				}
			}
			records = append(records, ocrByPage[page.Number]...)
			records = append(records, tablesByPage[page.Number]...)
		}
		return records
	}

	// after_document: all body text first, then OCR records, then tables,
	// each in extraction order.
	records := body
	for _, page := range pages {
		records = append(records, ocrByPage[page.Number]...)
	}
	for _, page := range pages {
		records = append(records, tablesByPage[page.Number]...)
	}
	return records
}
