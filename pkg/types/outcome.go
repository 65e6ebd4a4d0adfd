package types

// OutcomeKind is the terminal state of one document in a run
type OutcomeKind int

const (
	OutcomeIndexed OutcomeKind = iota // pages extracted, ready for the index
	OutcomeSkipped                    // soft outcome, not an error
	OutcomeFailed                     // per-document error, run continues
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIndexed:
		return "indexed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SkipReason explains a Skipped outcome
type SkipReason string

const (
	SkipAlreadyIndexed SkipReason = "already indexed"
	SkipNoContent      SkipReason = "no content"
	SkipDuplicateInRun SkipReason = "duplicate in run"
)

// Outcome is the result of processing one document.
// Exactly one of Pages (Indexed), Reason (Skipped) or Err (Failed) is meaningful.
type Outcome struct {
	Kind     OutcomeKind
	Document SourceDocument
	Pages    []Page
	Reason   SkipReason
	Err      error

	// PagesOCR counts pages routed through optical recognition
	PagesOCR int
}

// Indexed returns an outcome carrying the extracted pages of doc
func Indexed(doc SourceDocument, pages []Page, pagesOCR int) Outcome {
	return Outcome{Kind: OutcomeIndexed, Document: doc, Pages: pages, PagesOCR: pagesOCR}
}

// Skipped returns a soft outcome for doc
func Skipped(doc SourceDocument, reason SkipReason) Outcome {
	return Outcome{Kind: OutcomeSkipped, Document: doc, Reason: reason}
}

// Failed returns an error outcome for doc
func Failed(doc SourceDocument, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Document: doc, Err: err}
}
