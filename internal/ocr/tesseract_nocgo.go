//go:build !cgo

package ocr

import (
	"fmt"
	"image"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// TesseractConfig selects the language model and recognition mode.
type TesseractConfig struct {
	Language       string
	TessdataPrefix string
	PageSegMode    int
}

// Tesseract is unavailable without CGO; NewTesseract always fails.
type Tesseract struct{}

var (
	_ Engine     = (*Tesseract)(nil)
	_ PageReader = (*Tesseract)(nil)
	_ Versioner  = (*Tesseract)(nil)
)

// NewTesseract reports that Tesseract requires a CGO build.
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	return nil, fmt.Errorf("%w: tesseract requires a cgo build", ErrEngineInit)
}

// TesseractFactory returns a Factory producing engines with the same config.
func TesseractFactory(cfg TesseractConfig) Factory {
	return func() (Engine, error) {
		return NewTesseract(cfg)
	}
}

func (t *Tesseract) Recognize(image.Image, geometry.Box, float64) ([]Word, error) {
	return nil, fmt.Errorf("%w: tesseract requires a cgo build", ErrEngineInit)
}

func (t *Tesseract) Text(image.Image) (string, error) {
	return "", fmt.Errorf("%w: tesseract requires a cgo build", ErrEngineInit)
}

func (t *Tesseract) Version() string { return "" }

func (t *Tesseract) Close() error { return nil }
