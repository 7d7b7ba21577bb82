// Package detection proposes the image regions that are worth sending to OCR.
//
// A Detector runs once over a whole image and returns Candidates: boxes with a
// confidence score. Candidates are proposals only; the pipeline expands each
// box by a tolerance margin and lets the OCR engine decide what text, if any,
// it contains.
//
// # Detectors
//
//   - EdgeDetector: a model-free heuristic that slides fixed-size windows over
//     a gradient edge map and scores windows whose edge density and horizontal
//     structure look like printed text. It needs no weights file.
//   - LayoutDetector: Tesseract's own page layout analysis, reporting block,
//     paragraph, line, or word boxes. Requires a cgo build with libtesseract.
//
// Both apply the same post-processing: drop candidates below MinConfidence,
// then non-max suppression (Suppress) at NMSThreshold.
//
// # Coordinate System
//
// Candidate boxes are relative to img.Bounds().Min, so an image whose bounds
// do not start at (0, 0) still yields boxes in [0, W) × [0, H).
//
// # Confidence Scores
//
// Scores are in [0.0, 1.0]. For EdgeDetector the score is the product of a
// horizontal-structure ratio and a density closeness term peaking at 20% edge
// pixels. For LayoutDetector it is Tesseract's confidence divided by 100.
package detection
