package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeExtractor serves canned pages keyed by file name and can fail on
// selected documents.
type fakeExtractor struct {
	pages map[string][]Page
	fail  map[string]bool
}

func (f fakeExtractor) Extract(path string) ([]Page, error) {
	name := filepath.Base(path)
	if f.fail[name] {
		return nil, errors.New("corrupt document")
	}
	return f.pages[name], nil
}

// fakeOCR returns a fixed string per image, or an error if the image payload
// equals "bad".
type fakeOCR struct{}

func (fakeOCR) ImageText(image []byte) (string, error) {
	if string(image) == "bad" {
		return "", errors.New("recognition failed")
	}
	return "ocr:" + string(image), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDummyPDF(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"zero size", Options{ChunkSize: 0}},
		{"negative overlap", Options{ChunkSize: 100, ChunkOverlap: -1}},
		{"overlap equals size", Options{ChunkSize: 100, ChunkOverlap: 100}},
		{"bad order", Options{ChunkSize: 100, Order: "sideways"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIngestDirEmpty(t *testing.T) {
	ing, err := New(Options{ChunkSize: 100, ChunkOverlap: 10, Extractor: fakeExtractor{}, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := ing.IngestDir(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("empty dir should not error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestIngestDirMissing(t *testing.T) {
	ing, err := New(Options{ChunkSize: 100, Extractor: fakeExtractor{}, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ing.IngestDir(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestIngestDirBodyText(t *testing.T) {
	dir := t.TempDir()
	writeDummyPDF(t, dir, "manual.pdf")
	writeDummyPDF(t, dir, "notes.txt") // wrong extension, skipped

	ex := fakeExtractor{pages: map[string][]Page{
		"manual.pdf": {
			{Number: 1, Text: "page one text"},
			{Number: 2, Text: "page two text"},
		},
	}}

	ing, err := New(Options{ChunkSize: 100, ChunkOverlap: 10, Extractor: ex, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := ing.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Source != "manual.pdf" {
			t.Errorf("chunk %d source = %q", i, c.Source)
		}
		if c.Kind != KindBodyText {
			t.Errorf("chunk %d kind = %q", i, c.Kind)
		}
		if c.Page != i+1 {
			t.Errorf("chunk %d page = %d, want %d", i, c.Page, i+1)
		}
	}
}

func TestIngestDirSkipsBrokenDocument(t *testing.T) {
	dir := t.TempDir()
	writeDummyPDF(t, dir, "bad.pdf")
	writeDummyPDF(t, dir, "good.pdf")

	ex := fakeExtractor{
		pages: map[string][]Page{
			"good.pdf": {{Number: 1, Text: "fine"}},
		},
		fail: map[string]bool{"bad.pdf": true},
	}

	ing, err := New(Options{ChunkSize: 100, Extractor: ex, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := ing.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("broken document should be skipped, not fatal: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Source != "good.pdf" {
		t.Fatalf("expected only the good document's chunk, got %+v", chunks)
	}
}

func TestIngestDirOCRAndTables(t *testing.T) {
	dir := t.TempDir()
	writeDummyPDF(t, dir, "doc.pdf")

	table := "a  b\nc  d\ne  f"
	ex := fakeExtractor{pages: map[string][]Page{
		"doc.pdf": {
			{Number: 1, Text: "body one\n" + table, Images: [][]byte{[]byte("img1"), []byte("bad")}},
			{Number: 2, Text: "body two", Images: [][]byte{[]byte("img2")}},
		},
	}}

	ing, err := New(Options{ChunkSize: 500, ChunkOverlap: 50, Extractor: ex, OCR: fakeOCR{}, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := ing.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	// after_document ordering: body pages first, then OCR, then tables.
	var kinds []Kind
	for _, c := range chunks {
		kinds = append(kinds, c.Kind)
	}
	want := []Kind{KindBodyText, KindBodyText, KindImageOCR, KindImageOCR, KindTableData}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}

	ocr1 := chunks[2]
	if !strings.HasPrefix(ocr1.Text, "Image content from page 1:\n") {
		t.Errorf("ocr chunk missing prefix: %q", ocr1.Text)
	}
	if !strings.Contains(ocr1.Text, "ocr:img1") {
		t.Errorf("ocr chunk missing recognized text: %q", ocr1.Text)
	}
	if ocr1.Index != 1 {
		t.Errorf("first ocr record index = %d, want 1", ocr1.Index)
	}

	tbl := chunks[4]
	if !strings.HasPrefix(tbl.Text, "Table 1 from page 1:\n\n") {
		t.Errorf("table chunk missing prefix: %q", tbl.Text)
	}
	if !strings.Contains(tbl.Text, "| a | b |") {
		t.Errorf("table chunk missing markdown: %q", tbl.Text)
	}
	if tbl.Page != 1 {
		t.Errorf("table chunk page = %d, want 1", tbl.Page)
	}
}

func TestIngestDirPerPageOrder(t *testing.T) {
	dir := t.TempDir()
	writeDummyPDF(t, dir, "doc.pdf")

	table := "a  b\nc  d\ne  f"
	ex := fakeExtractor{pages: map[string][]Page{
		"doc.pdf": {
			{Number: 1, Text: "body one", Images: [][]byte{[]byte("img1")}},
			{Number: 2, Text: "body two\n" + table},
		},
	}}

	ing, err := New(Options{
		ChunkSize: 500, ChunkOverlap: 50, Order: OrderPerPage,
		Extractor: ex, OCR: fakeOCR{}, Logger: discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := ing.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, c := range chunks {
		got = append(got, fmt.Sprintf("p%d/%s", c.Page, c.Kind))
	}
	want := []string{"p1/body_text", "p1/image_ocr", "p2/body_text", "p2/table_data"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("per-page order = %v, want %v", got, want)
	}
}

func TestIngestDirLongRecordChunked(t *testing.T) {
	dir := t.TempDir()
	writeDummyPDF(t, dir, "doc.pdf")

	long := strings.Repeat("camos ", 100) // 600 chars
	ex := fakeExtractor{pages: map[string][]Page{
		"doc.pdf": {{Number: 1, Text: long}},
	}}

	ing, err := New(Options{ChunkSize: 200, ChunkOverlap: 20, Extractor: ex, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := ing.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected the long page to split into several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c.Text)) > 200 {
			t.Errorf("chunk %d exceeds size limit", i)
		}
		if c.Page != 1 || c.Kind != KindBodyText {
			t.Errorf("chunk %d lost metadata: %+v", i, c)
		}
	}
}
