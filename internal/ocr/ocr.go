// Package ocr extracts raw text from PDF and image files behind a small
// capability interface so the ingest pipeline can run with or without an
// external OCR provider.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/wedealize/sourcing-engine/internal/config"
)

// Extractor extracts text content from a document or image file.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
