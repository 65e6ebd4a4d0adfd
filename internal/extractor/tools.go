package extractor

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolNotFound is returned when a required external binary is not in PATH
var ErrToolNotFound = errors.New("required tool not found in PATH")

// Tool names
const (
	ToolPdfToText = "pdftotext"
	ToolPdfToPPM  = "pdftoppm"
	ToolTesseract = "tesseract"
)

// lookPath is replaced in tests
var lookPath = exec.LookPath

// CheckTools verifies that the binaries needed for extraction are installed.
// The OCR binaries are only required when ocr is true.
func CheckTools(ocr bool) error {
	required := []string{ToolPdfToText}
	if ocr {
		required = append(required, ToolPdfToPPM, ToolTesseract)
	}

	var missing []string
	for _, tool := range required {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrToolNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// InstallInstructions returns platform-specific installation instructions
func InstallInstructions() string {
	return `pdftotext and pdftoppm are part of poppler; tesseract provides OCR.

Install them with:
  macOS:         brew install poppler tesseract tesseract-lang
  Ubuntu/Debian: apt install poppler-utils tesseract-ocr tesseract-ocr-por
  Fedora:        dnf install poppler-utils tesseract tesseract-langpack-por
  Arch:          pacman -S poppler tesseract tesseract-data-por`
}
