package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when no engine handles a file extension
var ErrUnsupportedFormat = errors.New("unsupported document format")

// TextEngine extracts the directly readable text of every physical page, in order.
// Element i of the result is page i+1; pages without text are empty strings.
type TextEngine interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Renderer rasterizes a single page of a document
type Renderer interface {
	RenderPage(ctx context.Context, path string, page, dpi int) ([]byte, error)
}

// Recognizer turns a page image into text
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// MultiEngine routes each file to an engine by lower-cased extension
type MultiEngine struct {
	engines  map[string]TextEngine
	fallback TextEngine
}

// NewMultiEngine creates a router. fallback handles unknown extensions and may be nil.
func NewMultiEngine(fallback TextEngine) *MultiEngine {
	return &MultiEngine{engines: make(map[string]TextEngine), fallback: fallback}
}

// Register routes the given extensions to engine
func (m *MultiEngine) Register(engine TextEngine, exts ...string) *MultiEngine {
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.engines[ext] = engine
	}
	return m
}

func (m *MultiEngine) ExtractPages(ctx context.Context, path string) ([]string, error) {
	engine, ok := m.engines[strings.ToLower(filepath.Ext(path))]
	if !ok {
		engine = m.fallback
	}
	if engine == nil {
		return nil, ErrUnsupportedFormat
	}
	return engine.ExtractPages(ctx, path)
}

// Renderable reports whether path is routed to an engine that also renders pages
func (m *MultiEngine) Renderable(path string) bool {
	engine, ok := m.engines[strings.ToLower(filepath.Ext(path))]
	if !ok {
		engine = m.fallback
	}
	_, ok = engine.(Renderer)
	return ok
}
