package detection

import (
	"errors"
	"image"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// ErrDetectorInit is returned when a detector cannot be constructed.
var ErrDetectorInit = errors.New("detector initialization failed")

// Candidate is a region proposed by a Detector.
type Candidate struct {
	Box        geometry.Box `json:"box"`
	Confidence float64      `json:"confidence"`
}

// Detector proposes candidate text regions for a whole image.
//
// Implementations must be deterministic for a fixed configuration and must not
// modify img.
type Detector interface {
	Detect(img image.Image) ([]Candidate, error)
}
