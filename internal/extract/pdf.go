// Package extract pulls plain text out of uploaded document bytes.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor converts raw document bytes into plain text.
type Extractor interface {
	Extract(content []byte, filename string) (string, error)
}

// PDFExtractor extracts text from PDF bytes, falling back to a plain-text
// decode when the bytes are not a parseable PDF (e.g. a text file that was
// uploaded with a .pdf extension).
type PDFExtractor struct{}

var _ Extractor = PDFExtractor{}

// NewPDFExtractor returns the default extractor.
func NewPDFExtractor() PDFExtractor {
	return PDFExtractor{}
}

// Extract returns the trimmed plain text of content. It fails only when
// both PDF parsing and the plain-text fallback fail. Empty or
// whitespace-only input decodes to empty text, which is a valid result:
// the file produces zero chunks downstream.
func (PDFExtractor) Extract(content []byte, filename string) (string, error) {
	text, err := pdfText(content)
	if err == nil {
		return strings.TrimSpace(text), nil
	}

	slog.Warn("pdf parse failed, trying plain text fallback", "file", filename, "error", err)

	fallback := strings.TrimSpace(strings.ToValidUTF8(string(content), "�"))
	if fallback != "" && strings.Trim(fallback, "� \t\r\n") == "" {
		// Nothing but replacement characters: binary garbage, not text.
		return "", fmt.Errorf("extract text from %s: %w", filename, err)
	}
	return fallback, nil
}

// pdfText parses content as a PDF and concatenates the text of all pages.
// The pdf library panics on some malformed inputs, so parsing is fenced.
func pdfText(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return sb.String(), nil
}
