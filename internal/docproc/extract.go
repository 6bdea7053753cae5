package docproc

import (
	"bytes"
	"context"
	"image/png"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

// ProcessText extracts doc's text content and, when an extractor is
// configured, its product line items, mutating doc in place
// (ExtractionStatus, ExtractedText, Specifications, PageCount). It
// never returns an error for a single document's extraction trouble --
// the extraction_failed status communicates that to the caller, who
// persists it via store.DocumentRepo and moves to the next document.
func (p *Processor) ProcessText(ctx context.Context, doc *domain.Document, tenderID int64) []domain.ProductItem {
	pageCount, verr := api.PageCountFile(doc.LocalPath)
	if verr != nil {
		doc.ExtractionStatus = domain.ExtractionFailed
		log.WithFields(logging.Fields{"document_id": doc.ID, "error": verr}).
			Warn("not a readable PDF, marking extraction_failed")
		return nil
	}
	doc.PageCount = pageCount

	text, err := nativeText(doc.LocalPath)
	if err != nil || strings.TrimSpace(text) == "" {
		if p.opts.OCR == nil {
			doc.ExtractionStatus = domain.ExtractionFailed
			log.WithFields(logging.Fields{"document_id": doc.ID, "error": err}).
				Warn("no PDF text layer and no OCR engine configured, marking extraction_failed")
			return nil
		}
		ocrText, ocrErr := p.renderAndRecognize(ctx, doc.LocalPath)
		if ocrErr != nil || strings.TrimSpace(ocrText) == "" {
			doc.ExtractionStatus = domain.ExtractionFailed
			return nil
		}
		text = ocrText
	}

	doc.ExtractedText = text
	doc.Specifications = mineSpecifications(text)
	doc.ExtractionStatus = domain.ExtractionSuccess

	if p.extractor == nil {
		return nil
	}
	items, err := p.extractor.Extract(ctx, text, doc.ID, tenderID)
	if err != nil {
		log.WithFields(logging.Fields{"document_id": doc.ID, "error": err}).
			Debug("product line-item extraction failed, document text still recorded")
		return nil
	}
	return items
}

// nativeText reads a PDF's embedded text layer page by page via
// go-fitz (mupdf). Returns an empty string, not an error, when the PDF
// opens fine but carries no text (a scanned document) -- ProcessText's
// OCR fallback is what distinguishes that from a genuine read failure.
func nativeText(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", apperr.New(apperr.CategoryDocument, "docproc", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		txt, err := doc.Text(i)
		if err != nil {
			continue
		}
		sb.WriteString(txt)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// renderAndRecognize rasterizes each page via go-fitz and hands the
// PNG-encoded image bytes to the configured OCREngine, concatenating
// recognized text page by page.
func (p *Processor) renderAndRecognize(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", apperr.New(apperr.CategoryDocument, "docproc", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		img, err := doc.Image(i)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}
		txt, err := p.opts.OCR.RecognizeText(ctx, buf.Bytes())
		if err != nil {
			continue
		}
		sb.WriteString(txt)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

var (
	cpvRe      = regexp.MustCompile(`\b\d{8}-\d\b`)
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe    = regexp.MustCompile(`\b0\d{1,2}[\s/\-]?\d{3,4}[\s/\-]?\d{3,4}\b`)
	deadlineRe = regexp.MustCompile(`(?i)(рок|краен рок|deadline)[^\n.]{0,80}`)
)

// mineSpecifications extracts the structured hints spec.md §4.6 asks
// for from raw document text: CPV codes, contact emails/phones, and
// deadline phrases, via plain regexp rather than another LLM call
// since these patterns are regular and cheap to match deterministically.
func mineSpecifications(text string) domain.Specifications {
	return domain.Specifications{
		CPVCodes:        dedupe(cpvRe.FindAllString(text, -1)),
		Emails:          dedupe(emailRe.FindAllString(text, -1)),
		Phones:          dedupe(phoneRe.FindAllString(text, -1)),
		DeadlinePhrases: dedupe(deadlineRe.FindAllString(text, -1)),
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
