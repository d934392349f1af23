package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/dshills/docstore-mcp/pkg/types"
)

// document is a page-addressable source opened for extraction
type document interface {
	NumPage() int
	PageText(n int) (string, error)
	Close() error
}

// opener opens the document at path
type opener func(path string) (document, error)

// Extractor converts PDF files into normalized, page-delimited plain text
type Extractor struct {
	log  zerolog.Logger
	open opener
}

// New creates an Extractor backed by the pure Go PDF reader
func New(log zerolog.Logger) *Extractor {
	return &Extractor{
		log:  log.With().Str("component", "extractor").Logger(),
		open: openPDF,
	}
}

// ExtractFile extracts and cleans the text of every page of the PDF at path.
// Pages that fail are logged and skipped; failing to open the file is an error
// wrapping types.ErrExtraction.
func (e *Extractor) ExtractFile(path string) (*types.ExtractResult, error) {
	doc, err := e.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrExtraction, path, err)
	}
	defer func() { _ = doc.Close() }()

	result := &types.ExtractResult{
		TotalPages: doc.NumPage(),
	}

	var b strings.Builder
	for n := 1; n <= result.TotalPages; n++ {
		raw, err := doc.PageText(n)
		if err != nil {
			e.log.Warn().Err(err).Str("file", path).Int("page", n).Msg("Skipping page that failed to extract")
			result.PageErrors = append(result.PageErrors, types.PageError{Page: n, Error: err.Error()})
			continue
		}

		text := CleanText(raw)
		if text == "" {
			continue
		}

		fmt.Fprintf(&b, "\n\n--- Page %d ---\n\n%s", n, text)
		result.PagesExtracted++
	}

	result.Text = strings.TrimSpace(b.String())

	e.log.Debug().
		Str("file", path).
		Int("total_pages", result.TotalPages).
		Int("pages_extracted", result.PagesExtracted).
		Int("chars", len(result.Text)).
		Msg("Extracted document text")

	return result, nil
}

// pdfDocument adapts a ledongthuc/pdf reader to the document interface
type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func openPDF(path string) (doc document, err error) {
	// The reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) NumPage() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: content stream: %v", n, r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
