package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

// PDFFile extracts the plain text of a PDF into one item.
type PDFFile struct {
	Path     string
	MaxPages int // 0 = all pages
	Cleaner  Cleaner
}

// Kind implements Loader.
func (p *PDFFile) Kind() string { return KindPDF }

// Origin implements Loader.
func (p *PDFFile) Origin() string { return p.Path }

// Load reads the first MaxPages pages. Pages whose text cannot be decoded are skipped.
func (p *PDFFile) Load(ctx context.Context) ([]item.CorpusItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	text, err := extractPDFText(p.Path, p.MaxPages)
	if err != nil {
		return nil, err
	}
	return single(KindPDF, p.Path, titleFromPath(p.Path), p.Cleaner.Clean(text))
}

func extractPDFText(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
