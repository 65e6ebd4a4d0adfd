package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with args and returns stdout
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single Execute
	configFile, envFile, logLevel = "", "", ""
	searchLimit, searchJSON, statusJSON = 10, false, false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// setupEnv points every store at a fresh SQLite database and returns the document root
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(root, 0o755))

	t.Setenv("DOCINDEX_ROOTS", root)
	t.Setenv("DOCINDEX_EXTENSIONS", ".txt")
	t.Setenv("DOCINDEX_OCR_ENABLED", "false")
	t.Setenv("DOCINDEX_WORKERS", "2")
	t.Setenv("DOCINDEX_DEDUP_BACKEND", "sqlite")
	t.Setenv("DOCINDEX_INDEX_BACKEND", "sqlite")
	t.Setenv("DOCINDEX_DB_PATH", filepath.Join(dir, "docindex.db"))
	t.Setenv("DOCINDEX_LOG_FILE", filepath.Join(dir, "index.log"))
	t.Setenv("DOCINDEX_RESEND_API_KEY", "")
	t.Setenv("DOCINDEX_MINIO_ENDPOINT", "")
	return root
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "env-file", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "c", rootCmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestRunCmd_IndexesAndRerunSkips(t *testing.T) {
	root := setupEnv(t)
	writeFile(t, root, "contrato.txt", "Contrato de locação do imóvel comercial, cláusula de rescisão antecipada.")
	writeFile(t, root, "parecer.txt", "Parecer jurídico sobre a validade da notificação extrajudicial.")
	writeFile(t, root, "ignored.pdf", "not a candidate")

	out, err := runCommand(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "finished in")
	assert.Contains(t, out, root+": 2 documents")
	assert.Contains(t, out, "New documents:   2")
	assert.Contains(t, out, "Failed:          0")

	out, err = runCommand(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "New documents:   0")
	assert.Contains(t, out, "Already indexed: 2")

	logData, err := os.ReadFile(os.Getenv("DOCINDEX_LOG_FILE"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "run finished")
}

func TestRunCmd_UnreachableIndexFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("DOCINDEX_INDEX_BACKEND", "opensearch")
	t.Setenv("DOCINDEX_OPENSEARCH_URL", "http://127.0.0.1:1")
	t.Setenv("DOCINDEX_CONNECT_ATTEMPTS", "1")
	t.Setenv("DOCINDEX_CONNECT_BASE_DELAY", "1ms")

	out, err := runCommand(t, "run")
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, out, "failed after")
	assert.Contains(t, out, "search index unavailable")
}

func TestRunCmd_RequiresRoots(t *testing.T) {
	setupEnv(t)
	t.Setenv("DOCINDEX_ROOTS", "")

	_, err := runCommand(t, "run")
	assert.Error(t, err)
}

func TestSearchCmd_FindsIndexedPage(t *testing.T) {
	root := setupEnv(t)
	writeFile(t, root, "contrato.txt", "Contrato de locação com cláusula de rescisão antecipada.")
	writeFile(t, root, "ata.txt", "Ata da assembleia geral ordinária dos acionistas.")

	_, err := runCommand(t, "run")
	require.NoError(t, err)

	out, err := runCommand(t, "search", "rescisão")
	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] contrato.txt, page 1")
	assert.NotContains(t, out, "ata.txt")

	out, err = runCommand(t, "search", "--json", "-n", "1", "assembleia")
	require.NoError(t, err)
	assert.Contains(t, out, `"DocumentName": "ata.txt"`)

	out, err = runCommand(t, "search", "inexistente")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestPageCmd_PrintsFullPage(t *testing.T) {
	root := setupEnv(t)
	body := "Termo aditivo ao contrato de prestação de serviços, vigência de doze meses."
	writeFile(t, root, "aditivo.txt", body)

	_, err := runCommand(t, "run")
	require.NoError(t, err)

	out, err := runCommand(t, "search", "--json", "aditivo")
	require.NoError(t, err)
	var results []struct{ EntryID string }
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)

	out, err = runCommand(t, "page", results[0].EntryID)
	require.NoError(t, err)
	assert.Contains(t, out, "aditivo.txt, page 1")
	assert.Contains(t, out, body)

	_, err = runCommand(t, "page", "missing_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the index")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	setupEnv(t)
	_, err := runCommand(t, "search")
	assert.Error(t, err)
}

func TestSearchCmd_UnsupportedBackend(t *testing.T) {
	setupEnv(t)
	t.Setenv("DOCINDEX_ROOTS", "")
	t.Setenv("DOCINDEX_INDEX_BACKEND", "opensearch")
	t.Setenv("DOCINDEX_OPENSEARCH_URL", "http://127.0.0.1:1")

	_, err := runCommand(t, "search", "x")
	assert.ErrorIs(t, err, ErrSearchUnsupported)
}

func TestStatusCmd(t *testing.T) {
	root := setupEnv(t)

	out, err := runCommand(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:     0")
	assert.Contains(t, out, "No runs recorded.")

	writeFile(t, root, "a.txt", "Procuração com poderes para o foro em geral.")
	_, err = runCommand(t, "run")
	require.NoError(t, err)

	out, err = runCommand(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:     1")
	assert.Contains(t, out, "Last run:")
	assert.Contains(t, out, "New documents: 1")

	out, err = runCommand(t, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"new_documents": 1`)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	out, err := runCommand(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, out, "docindex version test-version-1.0.0")
	assert.Contains(t, out, "sqlite driver:")
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()

	version = "dev"
	SetVersion("")
	assert.Equal(t, "dev", version)
}
