// Package docproc implements spec.md §4.6: downloading a tender's
// linked documents, sniffing their MIME type, extracting text (native
// PDF text layer via go-fitz, which also renders pages for the OCR
// fallback behind a pluggable OCREngine; pdfcpu only reads the page
// count), and -- only when an LLM key is configured --
// mining the text for a structured product/line-item table via
// internal/llm.ProductExtractor. Every step records its own outcome on
// the Document row rather than failing the whole run: a document
// failure (spec.md §7) marks that document's extraction_status and
// leaves the tender intact.
package docproc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var log = logging.For("docproc")

// OCREngine renders a page's image content into text. No concrete
// implementation ships in this pipeline -- matching spec.md §9's
// treatment of the LLM side-service as pluggable -- since OCR engines
// are themselves typically a separate process or remote service; a
// nil OCREngine simply means pages with no PDF text layer are left
// unextracted and the document is marked extraction_failed.
type OCREngine interface {
	RecognizeText(ctx context.Context, pageImage []byte) (string, error)
}

// Options configures a Processor.
type Options struct {
	FileStoreRoot   string
	MaxDocumentBytes int64
	FetchTimeout    time.Duration
	OCR             OCREngine // optional
}

// HTTPDoer is the minimal surface Processor needs from an HTTP client,
// letting callers inject fetchsession's retry/cookie-aware transport
// or a plain *http.Client for e-pazar's unauthenticated documents.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Processor downloads and extracts one document at a time; callers
// fan it out over a bounded worker pool (spec.md §5's "configurable
// worker count, default 2").
type Processor struct {
	opts   Options
	client HTTPDoer
	extractor productExtractor
}

// productExtractor is the subset of internal/llm.ProductExtractor
// Processor calls; declared here so docproc has no import-time
// dependency on genkit when line-item extraction is disabled.
type productExtractor interface {
	Extract(ctx context.Context, documentText string, documentID, tenderID int64) ([]domain.ProductItem, error)
}

// NewProcessor builds a Processor. extractor may be nil -- the
// zero-API-key degradation path spec.md §9 requires.
func NewProcessor(opts Options, client HTTPDoer, extractor productExtractor) *Processor {
	return &Processor{opts: opts, client: client, extractor: extractor}
}

// Download fetches doc.SourceURL to FileStoreRoot/<tenderKey>/<sha256
// prefix>.<ext>, enforcing MaxDocumentBytes, and fills in
// doc.LocalPath, doc.MIME, and doc.FileSizeBytes. It does not mutate
// doc.ExtractionStatus; ProcessText does.
func (p *Processor) Download(ctx context.Context, doc *domain.Document, tenderKey string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.SourceURL, nil)
	if err != nil {
		return apperr.New(apperr.CategoryDocument, "docproc", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.New(apperr.CategoryTransientNetwork, "docproc", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperr.New(apperr.CategoryDocument, "docproc",
			fmt.Errorf("document fetch returned status %d", resp.StatusCode))
	}

	limited := io.LimitReader(resp.Body, p.opts.MaxDocumentBytes)
	var buf bytes.Buffer
	written, err := io.Copy(&buf, limited)
	if err != nil {
		return apperr.New(apperr.CategoryTransientNetwork, "docproc", err)
	}

	mime := http.DetectContentType(buf.Bytes())
	if mime == "application/octet-stream" {
		mime = mimeFromExtension(doc.SourceURL)
	}

	dir := filepath.Join(p.opts.FileStoreRoot, tenderKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.New(apperr.CategoryDocument, "docproc", err)
	}

	hash := sha256.Sum256([]byte(doc.SourceURL))
	name := hex.EncodeToString(hash[:8]) + extensionFor(mime, doc.SourceURL)
	localPath := filepath.Join(dir, name)

	if err := os.WriteFile(localPath, buf.Bytes(), 0o644); err != nil {
		return apperr.New(apperr.CategoryDocument, "docproc", err)
	}

	doc.LocalPath = localPath
	doc.MIME = mime
	doc.FileSizeBytes = written
	return nil
}

func mimeFromExtension(url string) string {
	switch filepath.Ext(url) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

func extensionFor(mime, url string) string {
	if ext := filepath.Ext(url); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch mime {
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
