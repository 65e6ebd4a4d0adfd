package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_SplitsLines(t *testing.T) {
	c := &Capture{}

	_, _ = c.Write([]byte("first\nsec"))
	_, _ = c.Write([]byte("ond\nthird"))

	assert.Equal(t, []string{"first", "second"}, c.Lines())

	_, _ = c.Write([]byte("\n"))
	assert.Equal(t, []string{"first", "second", "third"}, c.Lines())
}

func TestNew_WritesAllSinks(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "index.log")

	logger, err := New(Options{Level: "info", File: path, Stderr: &stderr})
	require.NoError(t, err)

	logger.Info("indexed", slog.String("path", "/juridico/a.pdf"))
	logger.Debug("hidden")
	require.NoError(t, logger.Close())

	lines := logger.Capture.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "path=/juridico/a.pdf")
	assert.Contains(t, stderr.String(), "msg=indexed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=indexed")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_NoFile(t *testing.T) {
	logger, err := New(Options{Stderr: io.Discard})
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
