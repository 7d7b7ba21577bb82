//go:build cgo

package detection

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// LayoutDetector proposes regions from Tesseract's page layout analysis.
//
// It owns one native client; Detect serializes on a mutex so the detector
// can be shared.
type LayoutDetector struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    LayoutConfig
}

var _ Detector = (*LayoutDetector)(nil)

// NewLayoutDetector creates a layout detector and initializes Tesseract
// eagerly so bad language or tessdata settings fail here.
func NewLayoutDetector(cfg LayoutConfig) (*LayoutDetector, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
		}
	}
	if err := client.SetLanguage(strings.Split(cfg.Language, "+")...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}

	blank, err := encode(image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}
	if _, err := client.Text(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: language %q: %v", ErrDetectorInit, cfg.Language, err)
	}

	return &LayoutDetector{client: client, cfg: cfg}, nil
}

// Detect runs layout analysis over the whole image.
func (d *LayoutDetector) Detect(img image.Image) ([]Candidate, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil
	}
	data, err := encode(img)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := d.client.GetBoundingBoxes(pageLevel(d.cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("layout analysis failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(boxes))
	for _, b := range boxes {
		box := geometry.Clamp(geometry.FromRect(b.Box), bounds.Dx(), bounds.Dy())
		if box.Empty() {
			continue
		}
		candidates = append(candidates, Candidate{
			Box:        box,
			Confidence: float64(b.Confidence) / 100.0,
		})
	}
	candidates = filterConfidence(candidates, d.cfg.MinConfidence)
	return Suppress(candidates, d.cfg.NMSThreshold), nil
}

// Close releases the native client.
func (d *LayoutDetector) Close() error {
	return d.client.Close()
}

func pageLevel(l Level) gosseract.PageIteratorLevel {
	switch l {
	case LevelBlock:
		return gosseract.RIL_BLOCK
	case LevelParagraph:
		return gosseract.RIL_PARA
	case LevelWord:
		return gosseract.RIL_WORD
	default:
		return gosseract.RIL_TEXTLINE
	}
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
