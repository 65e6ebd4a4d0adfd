// Package extractor turns one document into its pages of text.
//
// Processing a document is: hash the bytes, ask the dedup handle whether the
// hash is already indexed, extract per-page text, run OCR on pages with too
// little text, then drop pages that are still empty. The result is always a
// types.Outcome; the extractor never returns an error for a single document.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

// Options controls the OCR fallback
type Options struct {
	DensityThreshold int // pages with fewer trimmed characters go to OCR
	OCREnabled       bool
	OCRDPI           int
	OCRLanguage      string
}

// DefaultOptions returns the tuned defaults for scanned Portuguese documents
func DefaultOptions() Options {
	return Options{
		DensityThreshold: 50,
		OCREnabled:       true,
		OCRDPI:           300,
		OCRLanguage:      "por",
	}
}

// Extractor processes documents. It holds no per-document state and is safe
// for concurrent use.
type Extractor struct {
	engine     TextEngine
	renderer   Renderer
	recognizer Recognizer
	opts       Options
	logger     *slog.Logger
}

// New creates an Extractor. renderer and recognizer may be nil when OCR is disabled.
func New(engine TextEngine, renderer Renderer, recognizer Recognizer, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil || recognizer == nil {
		opts.OCREnabled = false
	}
	return &Extractor{
		engine:     engine,
		renderer:   renderer,
		recognizer: recognizer,
		opts:       opts,
		logger:     logger,
	}
}

// NewDefault wires poppler for PDFs, docconv for office and text formats and
// tesseract for OCR
func NewDefault(opts Options, logger *slog.Logger) *Extractor {
	poppler := NewPopplerEngine()
	engine := NewMultiEngine(nil).
		Register(poppler, ".pdf").
		Register(NewDocconvEngine(), DocconvExtensions...)
	return New(engine, poppler, NewTesseractRecognizer(), opts, logger)
}

// Process runs the full per-document pipeline with the caller's dedup handle
func (e *Extractor) Process(ctx context.Context, doc types.SourceDocument, dedup storage.DedupHandle) types.Outcome {
	hash, err := HashFile(doc.Path)
	if err != nil {
		return types.Failed(doc, fmt.Errorf("hash: %w", err))
	}
	doc.Hash = hash

	done, err := dedup.Exists(ctx, hash)
	if err != nil {
		return types.Failed(doc, fmt.Errorf("dedup lookup: %w", err))
	}
	if done {
		return types.Skipped(doc, types.SkipAlreadyIndexed)
	}

	pages, ocrCount, err := e.ExtractPages(ctx, doc)
	if err != nil {
		return types.Failed(doc, err)
	}
	if len(pages) == 0 {
		o := types.Skipped(doc, types.SkipNoContent)
		o.PagesOCR = ocrCount
		return o
	}
	return types.Indexed(doc, pages, ocrCount)
}

// ExtractPages returns the non-empty pages of doc and how many pages were
// sent through OCR. Page numbers are physical, so they can have gaps.
func (e *Extractor) ExtractPages(ctx context.Context, doc types.SourceDocument) ([]types.Page, int, error) {
	raw, err := e.engine.ExtractPages(ctx, doc.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("extract: %w", err)
	}

	ocrCount := 0
	pages := make([]types.Page, 0, len(raw))
	for i, text := range raw {
		number := i + 1
		text = strings.TrimSpace(text)

		if e.needsOCR(text) {
			if recognized, ok := e.ocrPage(ctx, doc, number); ok {
				text = recognized
				ocrCount++
			}
		}

		if text == "" {
			continue
		}
		pages = append(pages, types.Page{Text: text, Number: number})
	}
	return pages, ocrCount, nil
}

func (e *Extractor) needsOCR(text string) bool {
	return e.opts.OCREnabled && utf8.RuneCountInString(text) < e.opts.DensityThreshold
}

// ocrPage renders and recognizes one page. On failure it logs and reports
// false so the caller keeps the direct text. The image is dropped on return.
func (e *Extractor) ocrPage(ctx context.Context, doc types.SourceDocument, number int) (string, bool) {
	if m, ok := e.engine.(*MultiEngine); ok && !m.Renderable(doc.Path) {
		return "", false
	}

	img, err := e.renderer.RenderPage(ctx, doc.Path, number, e.opts.OCRDPI)
	if err != nil {
		e.logger.Warn("ocr render failed",
			slog.String("document", doc.Name),
			slog.Int("page", number),
			slog.String("error", err.Error()))
		return "", false
	}

	text, err := e.recognizer.Recognize(ctx, img, e.opts.OCRLanguage)
	if err != nil {
		e.logger.Warn("ocr failed",
			slog.String("document", doc.Name),
			slog.Int("page", number),
			slog.String("error", err.Error()))
		return "", false
	}
	return strings.TrimSpace(text), true
}
