package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docstore-mcp/pkg/types"
)

// fakeDocument serves canned page text; a nil entry in errs means success
type fakeDocument struct {
	pages  []string
	errs   map[int]error
	closed bool
}

func (f *fakeDocument) NumPage() int { return len(f.pages) }

func (f *fakeDocument) PageText(n int) (string, error) {
	if err := f.errs[n]; err != nil {
		return "", err
	}
	return f.pages[n-1], nil
}

func (f *fakeDocument) Close() error {
	f.closed = true
	return nil
}

func newTestExtractor(doc *fakeDocument, openErr error) *Extractor {
	e := New(zerolog.Nop())
	e.open = func(path string) (document, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}
	return e
}

func TestExtractFile_PageMarkers(t *testing.T) {
	doc := &fakeDocument{pages: []string{
		"Introduction to the service.",
		"Second page body.",
	}}
	e := newTestExtractor(doc, nil)

	result, err := e.ExtractFile("/docs/guide.pdf")
	require.NoError(t, err)

	assert.Equal(t,
		"--- Page 1 ---\n\nIntroduction to the service.\n\n--- Page 2 ---\n\nSecond page body.",
		result.Text)
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, 2, result.PagesExtracted)
	assert.Empty(t, result.PageErrors)
	assert.True(t, doc.closed)
}

func TestExtractFile_SkipsFailedAndEmptyPages(t *testing.T) {
	doc := &fakeDocument{
		pages: []string{"First page.", "unreachable", "   \n 12 \n", "Fourth page."},
		errs:  map[int]error{2: errors.New("bad content stream")},
	}
	e := newTestExtractor(doc, nil)

	result, err := e.ExtractFile("/docs/report.pdf")
	require.NoError(t, err)

	assert.Equal(t, "--- Page 1 ---\n\nFirst page.\n\n--- Page 4 ---\n\nFourth page.", result.Text)
	assert.Equal(t, 4, result.TotalPages)
	assert.Equal(t, 2, result.PagesExtracted)
	require.Len(t, result.PageErrors, 1)
	assert.Equal(t, 2, result.PageErrors[0].Page)
	assert.Contains(t, result.PageErrors[0].Error, "bad content stream")
}

func TestExtractFile_OpenFailureWrapsExtractionError(t *testing.T) {
	e := newTestExtractor(nil, errors.New("not a PDF file"))

	_, err := e.ExtractFile("/docs/broken.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExtraction)
	assert.Contains(t, err.Error(), "/docs/broken.pdf")
}

func TestExtractFile_RealReaderRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is plainly not a pdf document"), 0644))

	e := New(zerolog.Nop())
	_, err := e.ExtractFile(path)
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestExtractFile_RealReaderMissingFile(t *testing.T) {
	e := New(zerolog.Nop())
	_, err := e.ExtractFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, types.ErrExtraction)
}

func TestExtractFile_NoPages(t *testing.T) {
	e := newTestExtractor(&fakeDocument{}, nil)

	result, err := e.ExtractFile("/docs/empty.pdf")
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.Equal(t, 0, result.PagesExtracted)
}
