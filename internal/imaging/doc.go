// Package imaging loads images and prepares them for text spotting.
//
// It covers the image side of the pipeline: decoding files with an optional
// fixed resize, caching decoded images by path, binarizing an image once
// before OCR, cropping regions, and drawing diagnostic overlays.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based and relative to the
// image's bounds origin:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Boxes are geometry.Box values: (X, Y) inclusive, X+Width and Y+Height exclusive
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Every other function allocates its
// output and never modifies its input, so a decoded image can be shared
// read-only between goroutines.
//
// # Preprocessing
//
// Preprocess converts to grayscale, optionally applies a Gaussian blur,
// binarizes at the Otsu level of the luminance histogram, and optionally
// inverts so that text ends up dark on light. The result is what the OCR
// engine sees; detection still runs on the original.
package imaging
