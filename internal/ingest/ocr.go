package ingest

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// OCR recovers text from an encoded image. The Tesseract implementation is
// the production one; tests inject fakes.
type OCR interface {
	// ImageText returns the text recognized in the given encoded image.
	ImageText(image []byte) (string, error)
}

// TesseractOCR implements OCR with the gosseract Tesseract binding.
// A fresh client is created per call — gosseract clients are not safe for
// reuse across goroutines and recognition dominates the cost anyway.
type TesseractOCR struct {
	// lang is the Tesseract language code (e.g. "eng", "deu").
	lang string
}

// NewTesseractOCR constructs a TesseractOCR for the given language code.
func NewTesseractOCR(lang string) *TesseractOCR {
	return &TesseractOCR{lang: lang}
}

// ImageText runs Tesseract recognition over the image bytes.
func (t *TesseractOCR) ImageText(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.lang != "" {
		if err := client.SetLanguage(t.lang); err != nil {
			return "", fmt.Errorf("ingest: set ocr language %q: %w", t.lang, err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("ingest: load image for ocr: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ingest: ocr recognition: %w", err)
	}
	return text, nil
}
