// Package types provides shared type definitions for the docindex pipeline.
//
// This package defines the domain types passed between the scanner, the
// extractor, the flush buffer and the orchestrator.
//
// # Core Types
//
// Page is the text of one physical page after extraction (and OCR fallback):
//
//	page := types.Page{Text: "CLÁUSULA PRIMEIRA ...", Number: 3}
//
// IndexEntry is what reaches the search index, one per page. Its ID is
// derived from the content hash and the page number, so writing the same
// page twice overwrites instead of duplicating:
//
//	id := types.EntryID(hash, 3) // "<hash>_3"
//
// # Outcomes
//
// Every document ends a run in exactly one of three states:
//
//	types.Indexed(doc, pages, ocrPages)        // pages ready for the index
//	types.Skipped(doc, types.SkipNoContent)    // soft outcome
//	types.Failed(doc, err)                     // per-document error
//
// The orchestrator switches on Outcome.Kind instead of unwinding errors.
//
// # Run Summary
//
// RunSummary accumulates counters, per-folder totals and per-document errors.
// It is finalized once, also when the run aborts, and handed to the report
// package for rendering and delivery.
package types
