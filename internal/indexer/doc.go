// Package indexer coordinates one batch run of the document indexing pipeline.
//
// The indexer connects to the search index, scans the configured roots,
// extracts documents in parallel and writes their pages to the index in
// bounded batches, registering each content hash only after all of its pages
// were written.
//
// # Basic Usage
//
//	idx := indexer.New(indexer.ConfigFrom(cfg), extractor, dedupIndex, pageIndex,
//	    indexer.WithLogger(logger.Logger),
//	    indexer.WithCapture(logger.Capture),
//	    indexer.WithPathMapper(pathmap.New(cfg.PathMap)),
//	)
//
//	summary, err := idx.Run(ctx)
//	// summary is always finalized, err is set only when the run aborted
//
// # Pipeline
//
//  1. Connect: ping the search index with exponential backoff
//     (5 attempts, 2s doubling up to 10s). Exhaustion returns ErrIndexUnavailable.
//  2. Scan: walk every root; unreachable roots are reported with a zero count.
//  3. Extract: a bounded worker pool runs one task per file. Each task
//     acquires its own dedup handle and releases it when done.
//  4. Merge: results are folded into the summary and the flush buffer by a
//     single goroutine, in completion order.
//  5. Flush: the buffer writes entries, then registers hashes. A final flush
//     runs at the end.
//
// # Outcomes
//
// Every file ends the run in exactly one bucket of the summary:
//
//	new document      pages written, hash registered
//	already indexed   hash found in the dedup store, nothing extracted
//	no content        every page empty after OCR; hash not registered
//	duplicate in run  same bytes as a file merged earlier in this run
//	failed            read, extraction or panic; listed with the file name
//
// Two workers can pick up byte-identical files at the same time. Both
// extract, but only the first result merged contributes entries.
//
// # Error Handling
//
// Per-document errors never stop the run. Run-fatal errors are:
//
//   - ErrIndexUnavailable: the index did not answer within the retry policy
//   - bulk.ErrFlushFailed: a bulk write or hash registration failed
//   - ErrInterrupted: the caller cancelled ctx; buffered pages are still flushed
//
// On a fatal error the summary carries partial counters and Fatal is set.
//
// # Concurrency
//
// Only one run should use a store at a time. IndexLock provides a
// non-blocking guard for long-lived processes such as the MCP server:
//
//	if !lock.TryAcquire() {
//	    return errAlreadyRunning
//	}
//	defer lock.Release()
package indexer
