package extractor

import (
	"context"
	"fmt"

	"code.sajari.com/docconv"
)

// DocconvEngine extracts text from non-paginated formats (.docx, .odt, .rtf,
// .html, .txt ...). The whole document becomes page 1.
type DocconvEngine struct {
	convert func(path string) (string, error)
}

var _ TextEngine = (*DocconvEngine)(nil)

// DocconvExtensions lists the formats routed to DocconvEngine by default
var DocconvExtensions = []string{".docx", ".doc", ".odt", ".rtf", ".txt", ".html", ".htm", ".xml", ".pages"}

func NewDocconvEngine() *DocconvEngine {
	return &DocconvEngine{convert: func(path string) (string, error) {
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", err
		}
		return res.Body, nil
	}}
}

func (e *DocconvEngine) ExtractPages(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := e.convert(path)
	if err != nil {
		return nil, fmt.Errorf("docconv failed: %w", err)
	}
	return []string{body}, nil
}
