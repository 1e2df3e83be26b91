package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF signals that the uploaded data does not look like a PDF at all.
var ErrNotPDF = errors.New("not a pdf document")

// ErrNoPDFText signals a PDF without extractable text, typically a scanned
// document. OCR is out of scope; callers should surface this to the client.
var ErrNoPDFText = errors.New("pdf contains no extractable text")

// PDFResult holds the outcome of a PDF text extraction.
type PDFResult struct {
	Text      string
	PageCount int
}

// IsPDF checks the %PDF- magic bytes.
func IsPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// ExtractPDF pulls the plain text out of an in-memory PDF. Pages that fail to
// decode (e.g. image-only pages) are skipped rather than failing the whole
// document.
func ExtractPDF(data []byte) (res *PDFResult, err error) {
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}

	// The pdf library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pageCount := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, ErrNoPDFText
	}
	return &PDFResult{Text: text, PageCount: pageCount}, nil
}
