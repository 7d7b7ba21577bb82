// Package pipeline runs the detect-read pipeline: one detection pass over the
// whole image, then OCR on every padded candidate region.
//
// # Modes
//
// Sequential processes regions one at a time on a single pooled engine.
// Concurrent runs one task per region on a bounded errgroup, each task
// borrowing its own engine from an ocr.Pool, so no engine is ever used by
// two goroutines at once. The image (and its preprocessed copy) is shared
// read-only by all tasks.
//
// Both modes collect words into per-region slots and flatten them in region
// order, so for a fixed input they return the same results. Callers must
// still treat result order as unspecified and use SortByPosition when they
// need a stable order.
//
// # Failure Semantics
//
// Run never fails on degenerate input. A detector error is logged and
// treated as zero detections; a region whose recognition fails is logged,
// counted, and skipped. The only error Run returns is the context's, when
// the caller cancels or the deadline passes before every region finishes.
package pipeline
