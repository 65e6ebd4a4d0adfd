package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Page is the extracted text of one physical page of a document
type Page struct {
	Text   string
	Number int // 1-based physical page number
}

// Validate checks that the page carries text and a positive page number
func (p Page) Validate() error {
	if p.Number < 1 {
		return ErrInvalidPageNumber
	}
	if strings.TrimSpace(p.Text) == "" {
		return ErrEmptyContent
	}
	return nil
}

// SourceDocument identifies a candidate file for the duration of a run.
// Only its Hash outlives the run.
type SourceDocument struct {
	Path         string // Absolute local path, not stable across runs
	Name         string // Base name of Path
	OriginalPath string // Path as seen by readers of the index (host-normalized)
	Hash         string // Hex SHA-256 of the raw bytes
}

// NewSourceDocument builds a SourceDocument for an absolute path
func NewSourceDocument(path string) SourceDocument {
	return SourceDocument{
		Path: path,
		Name: filepath.Base(path),
	}
}

// DedupRecord is the persisted proof that a document's content was fully indexed
type DedupRecord struct {
	Hash         string
	RegisteredAt time.Time
}

// IndexEntry is one page of one document as written to the search index
type IndexEntry struct {
	ID           string    `json:"-"`
	Hash         string    `json:"hash"`
	DocumentName string    `json:"document_name"`
	Content      string    `json:"content"`
	PageNumber   int       `json:"page_number"`
	OriginalPath string    `json:"original_path"`
	Timestamp    time.Time `json:"timestamp"`
}

// EntryID returns the deterministic index id for a (document, page) pair.
// Submitting the same id twice overwrites the earlier entry.
func EntryID(hash string, pageNumber int) string {
	return fmt.Sprintf("%s_%d", hash, pageNumber)
}

// NewIndexEntries converts the pages of a document into index entries, preserving page order
func NewIndexEntries(doc SourceDocument, pages []Page, ts time.Time) ([]IndexEntry, error) {
	if doc.Hash == "" {
		return nil, ErrEmptyHash
	}

	entries := make([]IndexEntry, 0, len(pages))
	for _, p := range pages {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", p.Number, doc.Name, err)
		}
		entries = append(entries, IndexEntry{
			ID:           EntryID(doc.Hash, p.Number),
			Hash:         doc.Hash,
			DocumentName: doc.Name,
			Content:      p.Text,
			PageNumber:   p.Number,
			OriginalPath: doc.OriginalPath,
			Timestamp:    ts,
		})
	}
	return entries, nil
}
