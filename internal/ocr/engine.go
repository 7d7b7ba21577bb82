package ocr

import (
	"errors"
	"image"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// ErrEngineInit is wrapped by every construction-time engine failure.
var ErrEngineInit = errors.New("ocr engine initialization failed")

// Word is a single recognized word with its location and OCR confidence.
type Word struct {
	// Text is the recognized text content, trimmed of surrounding whitespace.
	Text string `json:"text"`

	// Box is the word's bounding box in the coordinates of the full image,
	// not of the region it was recognized in.
	Box geometry.Box `json:"box"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// Engine recognizes words inside a region of an image.
//
// Implementations are not required to be safe for concurrent use.
type Engine interface {
	// Recognize returns the words found inside roi whose confidence is at or
	// above minConfidence. roi is given in img coordinates relative to
	// img.Bounds().Min; returned boxes use the same coordinate space.
	Recognize(img image.Image, roi geometry.Box, minConfidence float64) ([]Word, error)

	// Close releases the engine's native resources.
	Close() error
}

// Factory constructs a new, independent engine instance.
type Factory func() (Engine, error)

// PageReader is implemented by engines that can also transcribe a whole
// image as plain text, keeping line breaks.
type PageReader interface {
	Text(img image.Image) (string, error)
}

// Versioner is implemented by engines that report the version of their
// recognition backend.
type Versioner interface {
	Version() string
}
