//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// TesseractConfig selects the language model and recognition mode.
type TesseractConfig struct {
	// Language is a Tesseract language code such as "eng" or "eng+deu".
	Language string

	// TessdataPrefix overrides the tessdata directory. Empty uses the
	// library default (TESSDATA_PREFIX or the compiled-in path).
	TessdataPrefix string

	// PageSegMode is a Tesseract page segmentation mode. Zero keeps the
	// library default.
	PageSegMode int
}

// Tesseract is an Engine backed by a single gosseract client.
type Tesseract struct {
	client *gosseract.Client
	cfg    TesseractConfig
}

var (
	_ Engine     = (*Tesseract)(nil)
	_ PageReader = (*Tesseract)(nil)
	_ Versioner  = (*Tesseract)(nil)
)

// NewTesseract creates a Tesseract engine and forces the native API to
// initialize, so an unknown language or missing tessdata is reported here
// rather than on the first recognition.
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: set tessdata path: %v", ErrEngineInit, err)
		}
	}
	if err := client.SetLanguage(strings.Split(cfg.Language, "+")...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: set language %q: %v", ErrEngineInit, cfg.Language, err)
	}
	if cfg.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: set page segmentation mode: %v", ErrEngineInit, err)
		}
	}

	// gosseract initializes lazily; a tiny blank page makes it happen now.
	if err := client.SetImageFromBytes(blankPage); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	if _, err := client.Text(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: language %q: %v", ErrEngineInit, cfg.Language, err)
	}

	return &Tesseract{client: client, cfg: cfg}, nil
}

// TesseractFactory returns a Factory producing engines with the same config.
func TesseractFactory(cfg TesseractConfig) Factory {
	return func() (Engine, error) {
		return NewTesseract(cfg)
	}
}

// Recognize performs word-level OCR on the roi of img.
//
// The region is cropped, encoded as PNG in memory and handed to Tesseract.
// Word boxes are shifted back into full-image coordinates. Words with empty
// text or a confidence below minConfidence are dropped.
func (t *Tesseract) Recognize(img image.Image, roi geometry.Box, minConfidence float64) ([]Word, error) {
	origin := img.Bounds().Min
	rect := roi.Rect().Add(origin).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, nil
	}

	data, err := encodePNG(imaging.Crop(img, rect))
	if err != nil {
		return nil, err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	dx, dy := rect.Min.X-origin.X, rect.Min.Y-origin.Y
	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		conf := float64(box.Confidence) / 100.0
		if conf < minConfidence {
			continue
		}
		words = append(words, Word{
			Text:       text,
			Box:        geometry.FromRect(box.Box).Translate(dx, dy),
			Confidence: conf,
		})
	}
	return words, nil
}

// Text performs full-page OCR and returns the recognized text with original
// spacing and newlines.
func (t *Tesseract) Text(img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Version returns the linked Tesseract version.
func (t *Tesseract) Version() string {
	return t.client.Version()
}

// Close releases the native client.
func (t *Tesseract) Close() error {
	return t.client.Close()
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

var blankPage = func() []byte {
	img := imaging.New(8, 8, color.White)
	data, err := encodePNG(img)
	if err != nil {
		panic(err)
	}
	return data
}()
