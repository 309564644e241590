// Package textextract turns uploaded resume files into plain text.
package textextract

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// Extractor sniffs the file's real type and extracts its text. Accepted
// inputs are PDF and plain text; anything else is an invalid argument
// regardless of the filename extension.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) ExtractPath(_ domain.Context, fileName, path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("op=extract_text file=%s: %w", fileName, err)
	}

	switch {
	case mt.Is("application/pdf"):
		return extractPDF(fileName, path)
	case mt.Is("text/plain"):
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("op=extract_text file=%s: %w", fileName, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return "", fmt.Errorf("op=extract_text file=%s: empty file: %w", fileName, domain.ErrInvalidArgument)
		}
		return text, nil
	default:
		return "", fmt.Errorf("op=extract_text file=%s mime=%s: %w", fileName, mt.String(), domain.ErrInvalidArgument)
	}
}

func extractPDF(fileName, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("op=extract_text file=%s: %w", fileName, err)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A damaged page should not sink the whole document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("op=extract_text file=%s: no extractable text: %w", fileName, domain.ErrInvalidArgument)
	}
	return text, nil
}
