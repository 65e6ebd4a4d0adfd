package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryID_Deterministic(t *testing.T) {
	assert.Equal(t, "abc_1", EntryID("abc", 1))
	assert.Equal(t, EntryID("abc", 7), EntryID("abc", 7))
	assert.NotEqual(t, EntryID("abc", 1), EntryID("abc", 2))
}

func TestNewIndexEntries(t *testing.T) {
	doc := SourceDocument{
		Path:         "/juridico/a/contrato.pdf",
		Name:         "contrato.pdf",
		OriginalPath: "//server/share/a/contrato.pdf",
		Hash:         "deadbeef",
	}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries, err := NewIndexEntries(doc, []Page{
		{Text: "first page", Number: 1},
		{Text: "third page", Number: 3},
	}, ts)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "deadbeef_1", entries[0].ID)
	assert.Equal(t, "deadbeef_3", entries[1].ID)
	assert.Equal(t, 3, entries[1].PageNumber)
	assert.Equal(t, "contrato.pdf", entries[0].DocumentName)
	assert.Equal(t, "//server/share/a/contrato.pdf", entries[0].OriginalPath)
	assert.Equal(t, ts, entries[0].Timestamp)
}

func TestNewIndexEntries_Invalid(t *testing.T) {
	_, err := NewIndexEntries(SourceDocument{Name: "x.pdf"}, []Page{{Text: "t", Number: 1}}, time.Now())
	assert.ErrorIs(t, err, ErrEmptyHash)

	_, err = NewIndexEntries(SourceDocument{Name: "x.pdf", Hash: "h"}, []Page{{Text: "t", Number: 0}}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPageNumber)

	_, err = NewIndexEntries(SourceDocument{Name: "x.pdf", Hash: "h"}, []Page{{Text: "  ", Number: 1}}, time.Now())
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestRunSummary_Record(t *testing.T) {
	s := NewRunSummary("run-1", time.Now())
	doc := NewSourceDocument("/docs/a.pdf")

	s.Record(Indexed(doc, []Page{{Text: "a", Number: 1}, {Text: "b", Number: 2}}, 1))
	s.Record(Skipped(doc, SkipAlreadyIndexed))
	s.Record(Skipped(doc, SkipNoContent))
	s.Record(Skipped(doc, SkipDuplicateInRun))
	s.Record(Failed(doc, errors.New("corrupt xref table")))

	assert.Equal(t, 2, s.PagesIndexed)
	assert.Equal(t, 1, s.PagesOCR)
	assert.Equal(t, 1, s.AlreadyIndexed)
	assert.Equal(t, 1, s.NoContent)
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []string{"a.pdf: corrupt xref table"}, s.ErrorMessages())
}

func TestRunSummary_FinalizeOnce(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewRunSummary("run-1", start)

	s.Finalize(start.Add(2 * time.Minute))
	s.Finalize(start.Add(5 * time.Minute))

	assert.True(t, s.Finalized())
	assert.Equal(t, 2*time.Minute, s.Elapsed)
}

func TestRunSummary_InlineErrors(t *testing.T) {
	s := NewRunSummary("run-1", time.Now())
	for i := 0; i < 12; i++ {
		s.AddError("f.pdf", "/f.pdf", errors.New("boom"))
	}

	inline, rest := s.InlineErrors(10)
	assert.Len(t, inline, 10)
	assert.Equal(t, 2, rest)

	inline, rest = s.InlineErrors(20)
	assert.Len(t, inline, 12)
	assert.Zero(t, rest)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "indexed", OutcomeIndexed.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
