package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50, cfg.Extract.DensityThreshold)
	assert.Equal(t, 300, cfg.Extract.OCRDPI)
	assert.Equal(t, "por", cfg.Extract.OCRLanguage)
	assert.Equal(t, 100, cfg.Extract.BatchSize)
	assert.Equal(t, 5, cfg.Index.ConnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Index.ConnectBaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Index.ConnectMaxDelay)
	assert.Equal(t, 10, cfg.Report.MaxInlineErrors)
	assert.GreaterOrEqual(t, cfg.Extract.Workers, 1)

	// No roots configured yet
	assert.ErrorIs(t, cfg.Validate(), ErrNoRoots)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "docindex.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[scan]
roots = ["/juridico", "/people"]
extensions = ["PDF", "docx"]

[extract]
workers = 2
batch_size = 50

[path_map]
"/juridico" = "//10.130.1.99/DeptosMatriz/Juridico"
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("DOCINDEX_BATCH_SIZE=25\n"), 0o600))
	// godotenv writes into the process environment
	t.Cleanup(func() { _ = os.Unsetenv("DOCINDEX_BATCH_SIZE") })

	t.Setenv("DOCINDEX_WORKERS", "6")

	cfg, err := Load(tomlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"/juridico", "/people"}, cfg.Scan.Roots)
	assert.Equal(t, []string{".pdf", ".docx"}, cfg.Scan.Extensions)
	assert.Equal(t, 6, cfg.Extract.Workers, "process env wins over TOML")
	assert.Equal(t, 25, cfg.Extract.BatchSize, ".env wins over TOML")
	assert.Equal(t, "//10.130.1.99/DeptosMatriz/Juridico", cfg.PathMap["/juridico"])
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	t.Setenv("DOCINDEX_ROOTS", "/docs")

	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadStores_NoRootsRequired(t *testing.T) {
	t.Setenv("DOCINDEX_ROOTS", "")
	t.Setenv("DOCINDEX_INDEX_BACKEND", "opensearch")
	t.Setenv("DOCINDEX_OPENSEARCH_URL", "https://search.internal:9200")

	cfg, err := LoadStores("", filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err, "explicit env file must exist")
	assert.Nil(t, cfg)

	envPath := filepath.Join(t.TempDir(), "empty.env")
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))

	cfg, err = LoadStores("", envPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Scan.Roots)
	assert.Equal(t, BackendOpenSearch, cfg.Index.Backend)

	_, err = Load("", envPath)
	assert.ErrorIs(t, err, ErrNoRoots)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "")
	assert.Error(t, err)
}

func TestValidate_Backends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with root", func(c *Config) {}, false},
		{"unknown dedup backend", func(c *Config) { c.Dedup.Backend = "mongo" }, true},
		{"postgres without dsn", func(c *Config) { c.Dedup.Backend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Dedup.Backend = BackendPostgres
			c.Dedup.PostgresDSN = "postgres://localhost/docindex"
		}, false},
		{"valkey", func(c *Config) { c.Dedup.Backend = BackendValkey }, false},
		{"opensearch without url", func(c *Config) { c.Index.Backend = BackendOpenSearch }, true},
		{"opensearch with url", func(c *Config) {
			c.Index.Backend = BackendOpenSearch
			c.Index.OpenSearchURL = "https://localhost:9200"
		}, false},
		{"zero workers", func(c *Config) { c.Extract.Workers = 0 }, true},
		{"zero batch", func(c *Config) { c.Extract.BatchSize = 0 }, true},
		{"low dpi", func(c *Config) { c.Extract.OCRDPI = 10 }, true},
		{"low dpi without ocr", func(c *Config) {
			c.Extract.OCRDPI = 10
			c.Extract.OCREnabled = false
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Scan.Roots = []string{"/docs"}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParsePathMap(t *testing.T) {
	m, err := ParsePathMap("/juridico=//srv/Juridico; /people=//srv/Pessoal ;")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"/juridico": "//srv/Juridico",
		"/people":   "//srv/Pessoal",
	}, m)

	_, err = ParsePathMap("/juridico")
	assert.Error(t, err)

	_, err = ParsePathMap("=//srv")
	assert.Error(t, err)
}

func TestEnvList(t *testing.T) {
	t.Setenv("DOCINDEX_EMAIL_TO", "a@example.com, b@example.com,")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, getEnvList("EMAIL_TO", nil))
	assert.Equal(t, []string{"x"}, getEnvList("UNSET_LIST", []string{"x"}))
}
