package ingest

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// Page holds the extracted content of one logical document page.
type Page struct {
	// Number is the 1-based page number.
	Number int
	// Text is the primary text layer of the page.
	Text string
	// Images are the page's embedded images, PNG-encoded and ready for OCR.
	Images [][]byte
}

// Extractor extracts per-page content from a source document. The UniPDF
// implementation is the production one; tests inject fakes so no real PDFs
// are needed.
type Extractor interface {
	// Extract returns the pages of the document at path, in order.
	Extract(path string) ([]Page, error)
}

// SetupLicense registers the UniPDF license key from UNIDOC_LICENSE_KEY.
// Without a key UniPDF watermarks extraction output, so the key is effectively
// required for real corpora; the binary still starts without one.
func SetupLicense(log *slog.Logger) {
	key := os.Getenv("UNIDOC_LICENSE_KEY")
	if key == "" {
		log.Debug("ingest: UNIDOC_LICENSE_KEY not set, UniPDF runs unlicensed")
		return
	}
	if err := license.SetMeteredKey(key); err != nil {
		log.Warn("ingest: failed to set UniPDF license key", slog.Any("error", err))
	}
}

// PDFExtractor implements Extractor with UniPDF.
type PDFExtractor struct{}

// Extract opens the PDF at path and returns its pages with text and
// PNG-encoded embedded images. A failure on the text layer aborts the whole
// document (the caller skips it); a failure on an individual image only
// drops that image.
func (PDFExtractor) Extract(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	reader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: read pdf %s: %w", path, err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("ingest: page count of %s: %w", path, err)
	}

	pages := make([]Page, 0, numPages)
	for n := 1; n <= numPages; n++ {
		page, err := reader.GetPage(n)
		if err != nil {
			return nil, fmt.Errorf("ingest: get page %d of %s: %w", n, path, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("ingest: extractor for page %d of %s: %w", n, path, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("ingest: text of page %d of %s: %w", n, path, err)
		}

		p := Page{Number: n, Text: text}

		// Embedded images are best-effort: a broken image stream should not
		// cost us the page text.
		if images, err := ex.ExtractPageImages(nil); err == nil {
			for _, mark := range images.Images {
				encoded, err := encodePNG(mark.Image)
				if err != nil {
					continue
				}
				p.Images = append(p.Images, encoded)
			}
		}

		pages = append(pages, p)
	}

	return pages, nil
}

// encodePNG converts a UniPDF image to PNG bytes for the OCR engine.
func encodePNG(img *model.Image) ([]byte, error) {
	goImg, err := img.ToGoImage()
	if err != nil {
		return nil, fmt.Errorf("ingest: convert image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, goImg); err != nil {
		return nil, fmt.Errorf("ingest: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
