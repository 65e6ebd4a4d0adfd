package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "DOCINDEX_"

// applyEnv overlays DOCINDEX_* variables onto the current values
func (c *Config) applyEnv() {
	c.Scan.Roots = getEnvList("ROOTS", c.Scan.Roots)
	c.Scan.Extensions = getEnvList("EXTENSIONS", c.Scan.Extensions)

	c.Extract.Workers = getEnvInt("WORKERS", c.Extract.Workers)
	c.Extract.BatchSize = getEnvInt("BATCH_SIZE", c.Extract.BatchSize)
	c.Extract.DensityThreshold = getEnvInt("DENSITY_THRESHOLD", c.Extract.DensityThreshold)
	c.Extract.OCREnabled = getEnvBool("OCR_ENABLED", c.Extract.OCREnabled)
	c.Extract.OCRDPI = getEnvInt("OCR_DPI", c.Extract.OCRDPI)
	c.Extract.OCRLanguage = getEnv("OCR_LANGUAGE", c.Extract.OCRLanguage)

	c.Dedup.Backend = getEnv("DEDUP_BACKEND", c.Dedup.Backend)
	c.Dedup.CacheSize = getEnvInt("DEDUP_CACHE_SIZE", c.Dedup.CacheSize)
	c.Dedup.SQLitePath = getEnv("DB_PATH", c.Dedup.SQLitePath)
	c.Dedup.PostgresDSN = getEnv("POSTGRES_DSN", c.Dedup.PostgresDSN)
	c.Dedup.PostgresMaxConns = int32(getEnvInt("POSTGRES_MAX_CONNS", int(c.Dedup.PostgresMaxConns)))
	c.Dedup.ValkeyAddr = getEnv("VALKEY_ADDR", c.Dedup.ValkeyAddr)
	c.Dedup.ValkeyPassword = getEnv("VALKEY_PASSWORD", c.Dedup.ValkeyPassword)
	c.Dedup.ValkeyDB = getEnvInt("VALKEY_DB", c.Dedup.ValkeyDB)
	c.Dedup.ValkeyKey = getEnv("VALKEY_KEY", c.Dedup.ValkeyKey)

	c.Index.Backend = getEnv("INDEX_BACKEND", c.Index.Backend)
	c.Index.SQLitePath = getEnv("DB_PATH", c.Index.SQLitePath)
	c.Index.OpenSearchURL = getEnv("OPENSEARCH_URL", c.Index.OpenSearchURL)
	c.Index.OpenSearchUser = getEnv("OPENSEARCH_USER", c.Index.OpenSearchUser)
	c.Index.OpenSearchPassword = getEnv("OPENSEARCH_PASSWORD", c.Index.OpenSearchPassword)
	c.Index.OpenSearchIndex = getEnv("OPENSEARCH_INDEX", c.Index.OpenSearchIndex)
	c.Index.InsecureSkipVerify = getEnvBool("OPENSEARCH_INSECURE", c.Index.InsecureSkipVerify)
	c.Index.ConnectAttempts = getEnvInt("CONNECT_ATTEMPTS", c.Index.ConnectAttempts)
	c.Index.ConnectBaseDelay = getEnvDuration("CONNECT_BASE_DELAY", c.Index.ConnectBaseDelay)
	c.Index.ConnectMaxDelay = getEnvDuration("CONNECT_MAX_DELAY", c.Index.ConnectMaxDelay)

	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Report.MaxInlineErrors = getEnvInt("MAX_INLINE_ERRORS", c.Report.MaxInlineErrors)
	c.Report.ResendAPIKey = getEnv("RESEND_API_KEY", c.Report.ResendAPIKey)
	c.Report.EmailFrom = getEnv("EMAIL_FROM", c.Report.EmailFrom)
	c.Report.EmailTo = getEnvList("EMAIL_TO", c.Report.EmailTo)
	c.Report.EmailCc = getEnvList("EMAIL_CC", c.Report.EmailCc)
	c.Report.ArchiveEndpoint = getEnv("MINIO_ENDPOINT", c.Report.ArchiveEndpoint)
	c.Report.ArchiveAccessKey = getEnv("MINIO_ACCESS_KEY", c.Report.ArchiveAccessKey)
	c.Report.ArchiveSecretKey = getEnv("MINIO_SECRET_KEY", c.Report.ArchiveSecretKey)
	c.Report.ArchiveBucket = getEnv("MINIO_BUCKET", c.Report.ArchiveBucket)
	c.Report.ArchiveUseSSL = getEnvBool("MINIO_USE_SSL", c.Report.ArchiveUseSSL)

	if v := os.Getenv(envPrefix + "PATH_MAP"); v != "" {
		if m, err := ParsePathMap(v); err == nil {
			c.PathMap = m
		}
	}
}

// ParsePathMap parses "local=remote;local2=remote2" into a prefix map
func ParsePathMap(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		local, remote, ok := strings.Cut(pair, "=")
		local, remote = strings.TrimSpace(local), strings.TrimSpace(remote)
		if !ok || local == "" || remote == "" {
			return nil, fmt.Errorf("invalid path map entry %q", pair)
		}
		m[local] = remote
	}
	return m, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
