// Package opensearch implements the page index on an OpenSearch cluster
// using the bulk API.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

// ErrBulkItems is returned when the bulk request succeeded but some items were rejected
var ErrBulkItems = errors.New("bulk items rejected")

// Config selects the cluster and the target index
type Config struct {
	Addresses          []string
	Username           string
	Password           string
	Index              string
	InsecureSkipVerify bool
}

// PageIndex writes page entries into one OpenSearch index
type PageIndex struct {
	client *opensearchapi.Client
	index  string
}

var _ storage.PageIndex = (*PageIndex)(nil)
var _ storage.Initializer = (*PageIndex)(nil)

// New creates the client. It does not contact the cluster; call Ping.
func New(cfg Config) (*PageIndex, error) {
	if cfg.Index == "" {
		return nil, errors.New("opensearch index name is required")
	}

	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for self-signed clusters
		}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{Client: osCfg})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return &PageIndex{client: client, index: cfg.Index}, nil
}

// Ping requests cluster info
func (p *PageIndex) Ping(ctx context.Context) error {
	if _, err := p.client.Info(ctx, nil); err != nil {
		return fmt.Errorf("opensearch info: %w", err)
	}
	return nil
}

// EnsureIndex creates the index with the page mapping unless it already exists
func (p *PageIndex) EnsureIndex(ctx context.Context) error {
	_, err := p.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: p.index,
		Body:  strings.NewReader(pageMapping),
	})
	if err != nil && !strings.Contains(err.Error(), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %w", p.index, err)
	}
	return nil
}

const pageMapping = `{
  "mappings": {
    "properties": {
      "hash":          {"type": "keyword"},
      "document_name": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "content":       {"type": "text"},
      "page_number":   {"type": "integer"},
      "original_path": {"type": "keyword"},
      "timestamp":     {"type": "date"}
    }
  }
}`

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// encodeBulk builds the NDJSON body: one index action per entry, keyed by entry id
func encodeBulk(index string, entries []types.IndexEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(bulkAction{Index: bulkMeta{Index: index, ID: e.ID}}); err != nil {
			return nil, err
		}
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// BulkUpsert sends all entries in one bulk request
func (p *PageIndex) BulkUpsert(ctx context.Context, entries []types.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	body, err := encodeBulk(p.index, entries)
	if err != nil {
		return fmt.Errorf("encode bulk body: %w", err)
	}

	resp, err := p.client.Bulk(ctx, opensearchapi.BulkReq{Body: bytes.NewReader(body)})
	if err != nil {
		return fmt.Errorf("opensearch bulk: %w", err)
	}
	if !resp.Errors {
		return nil
	}

	var failed []string
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Status < 200 || result.Status > 299 {
				failed = append(failed, fmt.Sprintf("%s (%d)", result.ID, result.Status))
			}
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d: %s", ErrBulkItems, len(failed), len(entries), strings.Join(failed, ", "))
}

// Close is a no-op; the HTTP transport has no persistent state to release
func (p *PageIndex) Close() error {
	return nil
}
