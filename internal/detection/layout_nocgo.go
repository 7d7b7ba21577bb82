//go:build !cgo

package detection

import (
	"fmt"
	"image"
)

// LayoutDetector is unavailable without cgo.
type LayoutDetector struct{}

var _ Detector = (*LayoutDetector)(nil)

func NewLayoutDetector(cfg LayoutConfig) (*LayoutDetector, error) {
	return nil, fmt.Errorf("%w: tesseract layout analysis requires a cgo build", ErrDetectorInit)
}

func (d *LayoutDetector) Detect(image.Image) ([]Candidate, error) {
	return nil, fmt.Errorf("%w: tesseract layout analysis requires a cgo build", ErrDetectorInit)
}

func (d *LayoutDetector) Close() error { return nil }
