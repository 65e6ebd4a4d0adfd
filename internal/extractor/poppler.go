package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PopplerEngine extracts PDF text with pdftotext and renders pages with pdftoppm
type PopplerEngine struct {
	runner CommandRunner
}

var (
	_ TextEngine = (*PopplerEngine)(nil)
	_ Renderer   = (*PopplerEngine)(nil)
)

// NewPopplerEngine creates an engine using the real binaries
func NewPopplerEngine() *PopplerEngine {
	return &PopplerEngine{runner: ExecRunner{}}
}

// NewPopplerEngineWithRunner creates an engine with a custom command runner (for testing)
func NewPopplerEngineWithRunner(runner CommandRunner) *PopplerEngine {
	return &PopplerEngine{runner: runner}
}

// ExtractPages runs pdftotext once for the whole file. pdftotext ends every
// page with a form feed, so the text is split on \f.
func (e *PopplerEngine) ExtractPages(ctx context.Context, path string) ([]string, error) {
	out, err := e.runner.Run(ctx, nil, ToolPdfToText, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	return splitPages(string(out)), nil
}

func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, "\f")
	// Text after the last form feed is not a page
	if last := pages[len(pages)-1]; strings.TrimSpace(last) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// RenderPage renders one page to PNG in a private temp dir and returns the bytes.
// The file is removed before returning.
func (e *PopplerEngine) RenderPage(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "docindex-render-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	_, err = e.runner.Run(ctx, nil, ToolPdfToPPM,
		"-r", strconv.Itoa(dpi),
		"-f", n, "-l", n,
		"-png", "-singlefile",
		path, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w", page, err)
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page %d: %w", page, err)
	}
	return img, nil
}
