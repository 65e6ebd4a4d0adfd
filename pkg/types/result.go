package types

// SearchResult represents a single page matched by a query against the index
type SearchResult struct {
	// Identification
	EntryID string
	Rank    int // Position in result set (1-based)

	// Scoring
	Score float64 // BM25, lower is better

	// Metadata
	DocumentName string
	OriginalPath string
	PageNumber   int
	Snippet      string
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.EntryID == "" {
		return ErrInvalidEntryID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.PageNumber < 1 {
		return ErrInvalidPageNumber
	}

	return nil
}
