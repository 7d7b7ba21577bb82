// Package ocr provides the word recognizer used by the detect-read pipeline.
//
// The pipeline talks to recognizers through the Engine interface. The concrete
// engine in this package wraps Tesseract (via gosseract/v2) and recognizes
// words inside a single region of interest of an already-decoded image.
//
// # Prerequisites
//
// Tesseract must be installed on the system and the module built with CGO:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// Without CGO the package still builds, but NewTesseract always fails with
// ErrEngineInit.
//
// # Concurrency
//
// A Tesseract engine wraps one TessBaseAPI handle and must not be used by
// more than one goroutine at a time. Pool hands out one engine per in-flight
// task, which is how the pipeline runs regions concurrently without locks.
//
// # Errors
//
// Construction errors (unknown language, missing tessdata) are reported by
// NewTesseract and wrap ErrEngineInit. Recognition of an empty region is not
// an error; it yields no words.
package ocr
