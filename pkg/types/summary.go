package types

import (
	"fmt"
	"time"
)

// FolderCount is the number of candidate documents found under one root
type FolderCount struct {
	Root       string `json:"root"`
	Count      int    `json:"count"`
	Accessible bool   `json:"accessible"`
}

// DocumentError records a per-document failure
type DocumentError struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e DocumentError) String() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// RunSummary describes one pipeline run. It is built incrementally by the
// orchestrator and finalized exactly once, also when the run aborts.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`

	Folders    []FolderCount `json:"folders"`
	Candidates int           `json:"candidates"`

	NewDocuments   int `json:"new_documents"`
	PagesIndexed   int `json:"pages_indexed"`
	PagesOCR       int `json:"pages_ocr"`
	AlreadyIndexed int `json:"already_indexed"`
	NoContent      int `json:"no_content"`
	Duplicates     int `json:"duplicates"`
	Failed         int `json:"failed"`

	Errors []DocumentError `json:"errors,omitempty"`

	// Fatal is set when the run aborted; the counters above are partial
	Fatal string `json:"fatal,omitempty"`

	LogLines []string `json:"-"`

	finalized bool
}

// NewRunSummary starts a summary for a run
func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		StartedAt: startedAt,
		Folders:   make([]FolderCount, 0),
		Errors:    make([]DocumentError, 0),
	}
}

// AddError appends a per-document error
func (s *RunSummary) AddError(name, path string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, DocumentError{Name: name, Path: path, Message: err.Error()})
}

// Record folds one document outcome into the counters.
// Indexed outcomes only count pages here; NewDocuments is incremented by the
// caller once the document is accepted into the flush buffer.
func (s *RunSummary) Record(o Outcome) {
	switch o.Kind {
	case OutcomeIndexed:
		s.PagesIndexed += len(o.Pages)
		s.PagesOCR += o.PagesOCR
	case OutcomeSkipped:
		switch o.Reason {
		case SkipAlreadyIndexed:
			s.AlreadyIndexed++
		case SkipNoContent:
			s.NoContent++
			s.PagesOCR += o.PagesOCR
		case SkipDuplicateInRun:
			s.Duplicates++
		}
	case OutcomeFailed:
		s.AddError(o.Document.Name, o.Document.Path, o.Err)
	}
}

// Finalize stamps the end time. Later calls are no-ops.
func (s *RunSummary) Finalize(at time.Time) {
	if s.finalized {
		return
	}
	s.finalized = true
	s.FinishedAt = at
	s.Elapsed = at.Sub(s.StartedAt)
}

// Finalized reports whether Finalize has been called
func (s *RunSummary) Finalized() bool {
	return s.finalized
}

// Succeeded reports whether the run completed without a fatal error
func (s *RunSummary) Succeeded() bool {
	return s.Fatal == ""
}

// ErrorMessages returns all per-document errors as "name: message"
func (s *RunSummary) ErrorMessages() []string {
	msgs := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		msgs = append(msgs, e.String())
	}
	return msgs
}

// InlineErrors returns at most max error messages and how many were left out
func (s *RunSummary) InlineErrors(max int) ([]string, int) {
	msgs := s.ErrorMessages()
	if max < 0 || len(msgs) <= max {
		return msgs, 0
	}
	return msgs[:max], len(msgs) - max
}
