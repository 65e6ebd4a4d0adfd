package types

import "errors"

// Domain errors for type validation
var (
	// Document errors
	ErrEmptyHash         = errors.New("content hash cannot be empty")
	ErrInvalidPageNumber = errors.New("page number must be >= 1")
	ErrEmptyContent      = errors.New("content cannot be empty")

	// Search result errors
	ErrInvalidEntryID = errors.New("invalid entry ID")
	ErrInvalidRank    = errors.New("rank must be >= 1")
)
