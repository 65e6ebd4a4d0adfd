package extractor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runCall struct {
	name  string
	args  []string
	stdin []byte
}

// mockRunner is a test double for CommandRunner
type mockRunner struct {
	output []byte
	err    error
	calls  []runCall

	// onRun lets a test create files a real tool would write
	onRun func(name string, args []string) error
}

func (m *mockRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	call := runCall{name: name, args: args}
	if stdin != nil {
		call.stdin, _ = io.ReadAll(stdin)
	}
	m.calls = append(m.calls, call)
	if m.onRun != nil {
		if err := m.onRun(name, args); err != nil {
			return nil, err
		}
	}
	return m.output, m.err
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"one page", "hello\f", []string{"hello"}},
		{"three pages", "one\ftwo\fthree\f", []string{"one", "two", "three"}},
		{"blank middle page", "one\f\fthree\f", []string{"one", "", "three"}},
		{"scanned only", "\f\f", []string{"", ""}},
		{"no trailing feed", "one\ftwo", []string{"one", "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitPages(tt.in))
		})
	}
}

func TestPoppler_ExtractPages(t *testing.T) {
	runner := &mockRunner{output: []byte("Página 1\fPágina 2\f")}
	engine := NewPopplerEngineWithRunner(runner)

	pages, err := engine.ExtractPages(context.Background(), "/docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"Página 1", "Página 2"}, pages)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, ToolPdfToText, runner.calls[0].name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "/docs/a.pdf", "-"}, runner.calls[0].args)
}

func TestPoppler_ExtractPagesError(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	engine := NewPopplerEngineWithRunner(runner)

	_, err := engine.ExtractPages(context.Background(), "/docs/a.pdf")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPoppler_RenderPage(t *testing.T) {
	var outputPrefix string
	runner := &mockRunner{onRun: func(name string, args []string) error {
		outputPrefix = args[len(args)-1]
		return os.WriteFile(outputPrefix+".png", []byte("\x89PNG fake"), 0o600)
	}}
	engine := NewPopplerEngineWithRunner(runner)

	img, err := engine.RenderPage(context.Background(), "/docs/a.pdf", 7, 300)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG fake"), img)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, ToolPdfToPPM, runner.calls[0].name)
	assert.Equal(t, []string{"-r", "300", "-f", "7", "-l", "7", "-png", "-singlefile", "/docs/a.pdf", outputPrefix},
		runner.calls[0].args)

	// The temporary image is gone after rendering
	_, err = os.Stat(filepath.Dir(outputPrefix))
	assert.True(t, os.IsNotExist(err))
}

func TestPoppler_RenderPageNoOutput(t *testing.T) {
	engine := NewPopplerEngineWithRunner(&mockRunner{})

	_, err := engine.RenderPage(context.Background(), "/docs/a.pdf", 1, 300)
	assert.Error(t, err)
}

func TestTesseract_Recognize(t *testing.T) {
	runner := &mockRunner{output: []byte("  texto reconhecido \n\f")}
	r := NewTesseractRecognizerWithRunner(runner)

	text, err := r.Recognize(context.Background(), []byte("png bytes"), "por")
	require.NoError(t, err)
	assert.Equal(t, "texto reconhecido", text)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, ToolTesseract, runner.calls[0].name)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "por"}, runner.calls[0].args)
	assert.Equal(t, []byte("png bytes"), runner.calls[0].stdin)
}

func TestTesseract_Error(t *testing.T) {
	r := NewTesseractRecognizerWithRunner(&mockRunner{err: errors.New("Failed loading language 'por'")})

	_, err := r.Recognize(context.Background(), []byte("x"), "por")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract failed")
}

func TestTesseract_DefaultThreadLimit(t *testing.T) {
	r := NewTesseractRecognizer()
	runner, ok := r.runner.(ExecRunner)
	require.True(t, ok)
	assert.Contains(t, runner.Env, "OMP_THREAD_LIMIT=1")
}

func TestDocconvEngine(t *testing.T) {
	e := &DocconvEngine{convert: func(path string) (string, error) {
		return "whole document body", nil
	}}
	pages, err := e.ExtractPages(context.Background(), "/docs/a.docx")
	require.NoError(t, err)
	assert.Equal(t, []string{"whole document body"}, pages)

	e = &DocconvEngine{convert: func(path string) (string, error) {
		return "", errors.New("unsupported")
	}}
	_, err = e.ExtractPages(context.Background(), "/docs/a.docx")
	assert.Error(t, err)
}

func TestMultiEngine_Routes(t *testing.T) {
	pdf := NewPopplerEngineWithRunner(&mockRunner{output: []byte("pdf text\f")})
	office := &DocconvEngine{convert: func(path string) (string, error) { return "office text", nil }}

	m := NewMultiEngine(nil).
		Register(pdf, "PDF").
		Register(office, ".docx", ".odt")

	pages, err := m.ExtractPages(context.Background(), "/a/b.Pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf text"}, pages)

	pages, err = m.ExtractPages(context.Background(), "/a/b.docx")
	require.NoError(t, err)
	assert.Equal(t, []string{"office text"}, pages)

	_, err = m.ExtractPages(context.Background(), "/a/b.xyz")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.True(t, m.Renderable("/a/b.pdf"))
	assert.False(t, m.Renderable("/a/b.docx"))
	assert.False(t, m.Renderable("/a/b.xyz"))
}

func TestCheckTools(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	installed := map[string]bool{ToolPdfToText: true}
	lookPath = func(file string) (string, error) {
		if installed[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}

	assert.NoError(t, CheckTools(false))

	err := CheckTools(true)
	require.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "pdftoppm")
	assert.Contains(t, err.Error(), "tesseract")
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
	assert.True(t, strings.Contains(instructions, "tesseract-ocr-por"))
}

func TestExecRunner(t *testing.T) {
	if _, err := lookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := ExecRunner{Env: []string{"DOCINDEX_TEST_VAR=ok"}}

	out, err := r.Run(context.Background(), strings.NewReader("piped"), "sh", "-c", `cat; printf " $DOCINDEX_TEST_VAR"`)
	require.NoError(t, err)
	assert.Equal(t, "piped ok", string(out))

	_, err = r.Run(context.Background(), nil, "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
