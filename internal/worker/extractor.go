// AngelaMos | 2026
// extractor.go

package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Extractor turns a PDF into paragraphs in reading order.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]string, error)
}

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads every page's plain text. A page that carries images gets an
// ImageMarker after its first paragraph, or alone when it has no text.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (paragraphs []string, err error) {
	// the parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			paragraphs = nil
			err = fmt.Errorf("failed to extract text from PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from PDF: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from PDF page %d: %w", i, err)
		}

		pageParagraphs := Paragraphs(text)
		images := hasImages(page)

		switch {
		case len(pageParagraphs) > 0 && images:
			paragraphs = append(paragraphs, pageParagraphs[0], ImageMarker)
			paragraphs = append(paragraphs, pageParagraphs[1:]...)
		case len(pageParagraphs) > 0:
			paragraphs = append(paragraphs, pageParagraphs...)
		case images:
			paragraphs = append(paragraphs, ImageMarker)
		}
	}

	return paragraphs, nil
}

func hasImages(page pdf.Page) bool {
	xobjects := page.Resources().Key("XObject")
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			return true
		}
	}
	return false
}
