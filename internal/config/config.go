package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Backend names
const (
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendValkey     = "valkey"
	BackendOpenSearch = "opensearch"
)

var (
	ErrNoRoots        = errors.New("at least one document root is required")
	ErrInvalidBackend = errors.New("unknown backend")
)

type Config struct {
	Scan    ScanConfig    `toml:"scan"`
	Extract ExtractConfig `toml:"extract"`
	Dedup   DedupConfig   `toml:"dedup"`
	Index   IndexConfig   `toml:"index"`
	Log     LogConfig     `toml:"log"`
	Report  ReportConfig  `toml:"report"`

	// PathMap maps local mount prefixes to the share roots readers use
	PathMap map[string]string `toml:"path_map"`
}

type ScanConfig struct {
	Roots      []string `toml:"roots"`
	Extensions []string `toml:"extensions"`
}

type ExtractConfig struct {
	Workers          int    `toml:"workers"`
	BatchSize        int    `toml:"batch_size"`
	DensityThreshold int    `toml:"density_threshold"`
	OCREnabled       bool   `toml:"ocr_enabled"`
	OCRDPI           int    `toml:"ocr_dpi"`
	OCRLanguage      string `toml:"ocr_language"`
}

type DedupConfig struct {
	Backend   string `toml:"backend"`
	CacheSize int    `toml:"cache_size"`

	SQLitePath string `toml:"sqlite_path"`

	PostgresDSN      string `toml:"postgres_dsn"`
	PostgresMaxConns int32  `toml:"postgres_max_conns"`

	ValkeyAddr     string `toml:"valkey_addr"`
	ValkeyPassword string `toml:"valkey_password"`
	ValkeyDB       int    `toml:"valkey_db"`
	ValkeyKey      string `toml:"valkey_key"`
}

type IndexConfig struct {
	Backend string `toml:"backend"`

	SQLitePath string `toml:"sqlite_path"`

	OpenSearchURL      string `toml:"opensearch_url"`
	OpenSearchUser     string `toml:"opensearch_user"`
	OpenSearchPassword string `toml:"opensearch_password"`
	OpenSearchIndex    string `toml:"opensearch_index"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`

	ConnectAttempts  int           `toml:"connect_attempts"`
	ConnectBaseDelay time.Duration `toml:"connect_base_delay"`
	ConnectMaxDelay  time.Duration `toml:"connect_max_delay"`
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type ReportConfig struct {
	MaxInlineErrors int `toml:"max_inline_errors"`

	ResendAPIKey string   `toml:"resend_api_key"`
	EmailFrom    string   `toml:"email_from"`
	EmailTo      []string `toml:"email_to"`
	EmailCc      []string `toml:"email_cc"`

	ArchiveEndpoint  string `toml:"archive_endpoint"`
	ArchiveAccessKey string `toml:"archive_access_key"`
	ArchiveSecretKey string `toml:"archive_secret_key"`
	ArchiveBucket    string `toml:"archive_bucket"`
	ArchiveUseSSL    bool   `toml:"archive_use_ssl"`
}

// Default returns the configuration used when nothing overrides a field
func Default() *Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return &Config{
		Scan: ScanConfig{
			Extensions: []string{".pdf"},
		},
		Extract: ExtractConfig{
			Workers:          workers,
			BatchSize:        100,
			DensityThreshold: 50,
			OCREnabled:       true,
			OCRDPI:           300,
			OCRLanguage:      "por",
		},
		Dedup: DedupConfig{
			Backend:          BackendSQLite,
			CacheSize:        10000,
			SQLitePath:       "docindex.db",
			PostgresMaxConns: 8,
			ValkeyAddr:       "localhost:6379",
			ValkeyKey:        "docindex:hashes",
		},
		Index: IndexConfig{
			Backend:          BackendSQLite,
			SQLitePath:       "docindex.db",
			OpenSearchIndex:  "documents",
			ConnectAttempts:  5,
			ConnectBaseDelay: 2 * time.Second,
			ConnectMaxDelay:  10 * time.Second,
		},
		Log: LogConfig{
			File:  "index.log",
			Level: "info",
		},
		Report: ReportConfig{
			MaxInlineErrors: 10,
		},
		PathMap: map[string]string{},
	}
}

// Load builds the configuration: defaults, then the optional TOML file,
// then the optional .env file, then the process environment.
func Load(configFile, envFile string) (*Config, error) {
	cfg, err := load(configFile, envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStores is Load for commands that only read the stores; document
// roots and extraction settings are not required.
func LoadStores(configFile, envFile string) (*Config, error) {
	cfg, err := load(configFile, envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStores(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := cfg.loadTOML(configFile); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadTOML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv reads envFile (or ./.env when empty). A missing default file is not an error.
// Variables already present in the environment win.
func loadDotEnv(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return nil
}

func (c *Config) normalize() {
	for i, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Scan.Extensions[i] = ext
	}
	for i, root := range c.Scan.Roots {
		c.Scan.Roots[i] = filepath.Clean(strings.TrimSpace(root))
	}
	c.Dedup.Backend = strings.ToLower(c.Dedup.Backend)
	c.Index.Backend = strings.ToLower(c.Index.Backend)
	if c.PathMap == nil {
		c.PathMap = map[string]string{}
	}
}

// Validate checks required fields for the selected backends
func (c *Config) Validate() error {
	if len(c.Scan.Roots) == 0 {
		return ErrNoRoots
	}
	if len(c.Scan.Extensions) == 0 {
		return errors.New("at least one document extension is required")
	}
	if c.Extract.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Extract.Workers)
	}
	if c.Extract.BatchSize < 1 {
		return fmt.Errorf("batch size must be >= 1, got %d", c.Extract.BatchSize)
	}
	if c.Extract.DensityThreshold < 0 {
		return fmt.Errorf("density threshold must be >= 0, got %d", c.Extract.DensityThreshold)
	}
	if c.Extract.OCREnabled && c.Extract.OCRDPI < 72 {
		return fmt.Errorf("ocr dpi must be >= 72, got %d", c.Extract.OCRDPI)
	}
	return c.ValidateStores()
}

// ValidateStores checks the dedup and index backend settings
func (c *Config) ValidateStores() error {
	switch c.Dedup.Backend {
	case BackendSQLite:
		if c.Dedup.SQLitePath == "" {
			return errors.New("dedup sqlite path is required")
		}
	case BackendPostgres:
		if c.Dedup.PostgresDSN == "" {
			return errors.New("dedup postgres dsn is required")
		}
	case BackendValkey:
		if c.Dedup.ValkeyAddr == "" || c.Dedup.ValkeyKey == "" {
			return errors.New("dedup valkey address and key are required")
		}
	default:
		return fmt.Errorf("%w: dedup backend %q", ErrInvalidBackend, c.Dedup.Backend)
	}

	switch c.Index.Backend {
	case BackendSQLite:
		if c.Index.SQLitePath == "" {
			return errors.New("index sqlite path is required")
		}
	case BackendOpenSearch:
		if c.Index.OpenSearchURL == "" || c.Index.OpenSearchIndex == "" {
			return errors.New("opensearch url and index are required")
		}
	default:
		return fmt.Errorf("%w: index backend %q", ErrInvalidBackend, c.Index.Backend)
	}

	if c.Index.ConnectAttempts < 1 {
		return fmt.Errorf("connect attempts must be >= 1, got %d", c.Index.ConnectAttempts)
	}
	return nil
}
