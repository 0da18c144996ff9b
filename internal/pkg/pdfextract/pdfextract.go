// Package pdfextract turns uploaded documents into plain text.
package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupported = errors.New("unsupported document type")

// Extractor reads PDF files with ledongthuc/pdf and passes plain text files
// through unchanged.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract returns the text of the document in r. contentType and filename are
// used to pick the reader; the PDF magic bytes win over both.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, contentType, filename string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read document failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case bytes.HasPrefix(b, []byte("%PDF")):
		return ExtractText(b)
	case strings.HasPrefix(contentType, "text/"), strings.HasSuffix(strings.ToLower(filename), ".txt"):
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: text is not valid utf-8", ErrUnsupported)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}
}

// ExtractText extracts plain text from a PDF. It returns an empty string and
// nil error if the PDF has no extractable text. The parser panics on some
// malformed files; those panics are returned as errors.
func ExtractText(b []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	if len(b) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}
