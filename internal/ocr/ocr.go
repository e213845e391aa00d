// Package ocr extracts raw text from uploaded incident documents. PDFs go
// through a configurable extractor; plain-text files are read as-is.
package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/innoventors/incident-cli/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
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

// ReadDocument returns the text of an uploaded document. PDFs are run
// through the extractor; every other extension is treated as plain text.
func ReadDocument(ctx context.Context, ext Extractor, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := ext.ExtractText(ctx, path)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", eris.Errorf("ocr: no text extracted from %s", path)
		}
		return text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read %s", path)
	}
	return string(data), nil
}
