package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// TesseractRecognizer runs tesseract over an image piped through stdin
type TesseractRecognizer struct {
	runner CommandRunner
}

var _ Recognizer = (*TesseractRecognizer)(nil)

// NewTesseractRecognizer limits tesseract to one thread; parallelism comes from the worker pool
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{runner: ExecRunner{Env: []string{"OMP_THREAD_LIMIT=1"}}}
}

// NewTesseractRecognizerWithRunner creates a recognizer with a custom command runner (for testing)
func NewTesseractRecognizerWithRunner(runner CommandRunner) *TesseractRecognizer {
	return &TesseractRecognizer{runner: runner}
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if lang == "" {
		lang = "eng"
	}
	out, err := r.runner.Run(ctx, bytes.NewReader(image), ToolTesseract, "stdin", "stdout", "-l", lang)
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
