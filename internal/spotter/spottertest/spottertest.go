// Package spottertest provides a Spotter backed by a scripted scene instead
// of Tesseract, for tests of the layers above it.
package spottertest

import (
	"image"
	"strings"
	"testing"

	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	"github.com/ironsheep/text-spotter/internal/ocr"
	"github.com/ironsheep/text-spotter/internal/pipeline"
	"github.com/ironsheep/text-spotter/internal/spotter"
	"github.com/ironsheep/text-spotter/internal/textmatch"
)

// SceneVersion is the backend version every Scene reports.
const SceneVersion = "scene-1"

// WholeImage is a detector proposing the entire image as one region.
type WholeImage struct{}

func (WholeImage) Detect(img image.Image) ([]detection.Candidate, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}
	return []detection.Candidate{{Box: geometry.Box{Width: b.Dx(), Height: b.Dy()}, Confidence: 1}}, nil
}

// Scene is an engine that reports every scripted word whose box center
// lies inside the requested region.
type Scene struct {
	Words []ocr.Word
}

func (s *Scene) Recognize(_ image.Image, roi geometry.Box, minConfidence float64) ([]ocr.Word, error) {
	var out []ocr.Word
	for _, w := range s.Words {
		c := w.Box.Center()
		if (image.Point{X: c.X, Y: c.Y}).In(roi.Rect()) && w.Confidence >= minConfidence {
			out = append(out, w)
		}
	}
	return out, nil
}

// Text joins every scripted word with spaces, in script order.
func (s *Scene) Text(image.Image) (string, error) {
	texts := make([]string, len(s.Words))
	for i, w := range s.Words {
		texts[i] = w.Text
	}
	return strings.Join(texts, " ") + "\n", nil
}

// Version identifies the scripted engine.
func (s *Scene) Version() string { return SceneVersion }

func (s *Scene) Close() error { return nil }

// Word builds a scripted word with full confidence.
func Word(text string, x, y, w, h int) ocr.Word {
	return ocr.Word{Text: text, Box: geometry.Box{X: x, Y: y, Width: w, Height: h}, Confidence: 1}
}

// New returns a Spotter that "reads" words from any image.
func New(t testing.TB, words ...ocr.Word) *spotter.Spotter {
	t.Helper()
	return NewWithMatcher(t, textmatch.Options{}, words...)
}

// NewWithMatcher is New with explicit matcher options.
func NewWithMatcher(t testing.TB, mopts textmatch.Options, words ...ocr.Word) *spotter.Spotter {
	t.Helper()
	pool, err := ocr.NewPool(2, func() (ocr.Engine, error) { return &Scene{Words: words}, nil })
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	s, err := spotter.NewWith(spotter.Components{
		Detector: WholeImage{},
		Pool:     pool,
		Pipeline: pipeline.Options{Mode: pipeline.Concurrent, MinConfidence: 0.5},
		Matcher:  mopts,
	}, nil)
	if err != nil {
		t.Fatalf("NewWith failed: %v", err)
	}
	return s
}
