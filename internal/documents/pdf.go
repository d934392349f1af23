package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dshills/docstore-mcp/pkg/types"
)

const (
	DefaultPDFCategory  = "technical"
	DefaultPDFDocType   = "documentation"
	DefaultPDFChunkSize = 1200
	DefaultPDFOverlap   = 200

	// DefaultMaxDownloadSize caps a PDF fetched by IngestPDFFromURL
	DefaultMaxDownloadSize = 200 << 20
)

// ErrDownloadTooLarge is returned when a download exceeds the size limit
var ErrDownloadTooLarge = errors.New("download exceeds size limit")

// PDFRequest describes a PDF to ingest. Source is a local path for
// IngestPDFFile and an http(s) URL for IngestPDFFromURL. An empty Title
// is derived from the file name.
type PDFRequest struct {
	Source     string
	Title      string
	Category   string
	DocType    string
	Tags       []string
	Metadata   types.Metadata
	Collection string
	ChunkSize  int
	Overlap    int
	Replace    bool
}

func (r PDFRequest) withDefaults() PDFRequest {
	r.Category = orDefault(r.Category, DefaultPDFCategory)
	r.DocType = orDefault(r.DocType, DefaultPDFDocType)
	r.ChunkSize, r.Overlap = chunking(r.ChunkSize, r.Overlap, DefaultPDFChunkSize, DefaultPDFOverlap)
	if r.Overlap == 0 {
		r.Overlap = NoOverlap
	}
	return r
}

// TitleFromFileName turns "well-architected_framework.pdf" into
// "Well Architected Framework"
func TitleFromFileName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return cases.Title(language.English).String(stem)
}

func sizeMB(n int64) float64 {
	return math.Round(float64(n)/1024/1024*10) / 10
}

// IngestPDFFile extracts the text of a local PDF and ingests it with source type "pdf"
func (m *Manager) IngestPDFFile(ctx context.Context, req PDFRequest) IngestResult {
	req = req.withDefaults()

	info, err := os.Stat(req.Source)
	if err != nil || info.IsDir() {
		return ingestFailure("PDF file not found: %s", req.Source)
	}
	if !strings.EqualFold(filepath.Ext(req.Source), ".pdf") {
		return ingestFailure("File is not a PDF: %s", req.Source)
	}

	abs, err := filepath.Abs(req.Source)
	if err != nil {
		abs = req.Source
	}
	if req.Title == "" {
		req.Title = TitleFromFileName(filepath.Base(abs))
	}

	extra := types.Metadata{
		"source_file":     abs,
		"file_size_bytes": info.Size(),
		"file_size_mb":    sizeMB(info.Size()),
	}
	res := m.ingestPDF(ctx, abs, "pdf", req, extra)
	if res.Success {
		res.SourceFile = abs
	}
	return res
}

// IngestPDFFromURL downloads a PDF into a temporary file, ingests it with
// source type "web", and removes the file
func (m *Manager) IngestPDFFromURL(ctx context.Context, req PDFRequest) IngestResult {
	req = req.withDefaults()

	u, err := url.Parse(req.Source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ingestFailure("Invalid PDF URL: %s", req.Source)
	}
	if req.Title == "" {
		req.Title = TitleFromFileName(path.Base(u.Path))
	}

	m.log.Info().Str("url", req.Source).Str("title", req.Title).Msg("downloading PDF")

	tmp, n, err := m.download(ctx, req.Source)
	if err != nil {
		return ingestFailure("Failed to download PDF from %s: %v", req.Source, err)
	}
	defer func() { _ = os.Remove(tmp) }()

	extra := types.Metadata{
		"source_url":          req.Source,
		"download_size_bytes": n,
		"download_size_mb":    sizeMB(n),
	}
	res := m.ingestPDF(ctx, tmp, "web", req, extra)
	if res.Success {
		res.SourceURL = req.Source
		res.DownloadSizeBytes = n
		res.DownloadSizeMB = sizeMB(n)
	}
	return res
}

func (m *Manager) download(ctx context.Context, rawURL string) (string, int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength > m.maxPDF {
		return "", 0, fmt.Errorf("%w: %d bytes", ErrDownloadTooLarge, resp.ContentLength)
	}

	f, err := os.CreateTemp("", "docstore-*.pdf")
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, m.maxPDF+1))
	if err == nil && n > m.maxPDF {
		err = fmt.Errorf("%w: more than %d bytes", ErrDownloadTooLarge, m.maxPDF)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, err
	}
	return f.Name(), n, nil
}

func (m *Manager) ingestPDF(ctx context.Context, file, sourceType string, req PDFRequest, extra types.Metadata) IngestResult {
	if m.extractor == nil {
		return ingestFailure("PDF processing failed: no extractor configured")
	}

	extracted, err := m.extractor.ExtractFile(file)
	if err != nil {
		return ingestFailure("PDF processing failed: %v", err)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return ingestFailure("No text content extracted from PDF")
	}

	m.log.Info().
		Str("title", req.Title).
		Int("chars", len(extracted.Text)).
		Int("pages", extracted.TotalPages).
		Msg("extracted PDF text")

	extra["total_pages"] = extracted.TotalPages
	extra["pages_extracted"] = extracted.PagesExtracted
	extra.Merge(req.Metadata)

	res := m.Ingest(ctx, IngestRequest{
		Content:    extracted.Text,
		Title:      req.Title,
		SourceType: sourceType,
		Category:   req.Category,
		DocType:    req.DocType,
		Tags:       req.Tags,
		Metadata:   extra,
		Collection: req.Collection,
		ChunkSize:  req.ChunkSize,
		Overlap:    req.Overlap,
		Replace:    req.Replace,
	})
	if res.Success {
		res.TotalPages = extracted.TotalPages
		res.PagesExtracted = extracted.PagesExtracted
	}
	return res
}

// Preset is a ready-made classification and chunking profile
type Preset struct {
	Category  string   `json:"category"`
	DocType   string   `json:"doc_type"`
	Tags      []string `json:"tags"`
	ChunkSize int      `json:"chunk_size"`
	Overlap   int      `json:"overlap_size"`
}

// Presets are the profiles accepted by IngestPreset
var Presets = map[string]Preset{
	"aws_docs":         {"technical", "documentation", []string{"aws", "cloud", "documentation"}, 1500, 300},
	"technical_manual": {"technical", "manual", []string{"manual", "technical", "reference"}, 1200, 200},
	"research_paper":   {"research", "paper", []string{"research", "academic", "study"}, 1000, 150},
	"business_policy":  {"business", "policy", []string{"policy", "business", "governance"}, 800, 100},
	"tutorial":         {"educational", "tutorial", []string{"tutorial", "learning", "guide"}, 1000, 200},
	"legal_document":   {"legal", "contract", []string{"legal", "contract", "compliance"}, 800, 100},
}

// PresetNames returns the preset names in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetRequest ingests Source, a URL or a local path, with a named preset.
// Tags are appended to the preset's own.
type PresetRequest struct {
	Preset     string
	Source     string
	Title      string
	Tags       []string
	Collection string
}

// IngestPreset ingests a PDF from a URL or path using a preset profile
func (m *Manager) IngestPreset(ctx context.Context, req PresetRequest) IngestResult {
	p, ok := Presets[req.Preset]
	if !ok {
		return ingestFailure("Unknown preset '%s'. Available: %s", req.Preset, strings.Join(PresetNames(), ", "))
	}

	tags := append(append([]string{}, p.Tags...), req.Tags...)
	pdfReq := PDFRequest{
		Source:     req.Source,
		Title:      req.Title,
		Category:   p.Category,
		DocType:    p.DocType,
		Tags:       tags,
		Metadata:   types.Metadata{"preset_used": req.Preset},
		Collection: req.Collection,
		ChunkSize:  p.ChunkSize,
		Overlap:    p.Overlap,
	}

	var res IngestResult
	if strings.HasPrefix(req.Source, "http://") || strings.HasPrefix(req.Source, "https://") {
		res = m.IngestPDFFromURL(ctx, pdfReq)
	} else {
		res = m.IngestPDFFile(ctx, pdfReq)
	}
	if res.Success {
		res.Preset = req.Preset
	}
	return res
}
