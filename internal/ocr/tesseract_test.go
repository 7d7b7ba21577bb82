package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// scaledTextImage renders text at 1x and scales it up by pixel replication,
// which Tesseract reads far more reliably than 13px glyphs.
func scaledTextImage(text string, scale int) *image.RGBA {
	w, h := len(text)*7+40, 40
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(small, 20, 25, text, color.Black)

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			img.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return img
}

func newTesseractOrSkip(t *testing.T) *Tesseract {
	t.Helper()
	eng, err := NewTesseract(TesseractConfig{Language: "eng"})
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestNewTesseract_InvalidLanguage(t *testing.T) {
	eng, err := NewTesseract(TesseractConfig{Language: "invalid_language_code_xyz"})
	if err == nil {
		_ = eng.Close()
		t.Fatal("NewTesseract should fail for an unknown language")
	}
	if !errors.Is(err, ErrEngineInit) {
		t.Errorf("expected ErrEngineInit, got %v", err)
	}
}

func TestTesseract_RecognizeEmptyROI(t *testing.T) {
	eng := newTesseractOrSkip(t)

	img := scaledTextImage("HELLO", 3)
	words, err := eng.Recognize(img, geometry.Box{X: 10, Y: 10, Width: 0, Height: 0}, 0)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("expected no words for empty ROI, got %d", len(words))
	}
}

func TestTesseract_RecognizeRealText(t *testing.T) {
	eng := newTesseractOrSkip(t)

	img := scaledTextImage("HELLO WORLD", 4)
	b := img.Bounds()
	words, err := eng.Recognize(img, geometry.Box{X: 0, Y: 0, Width: b.Dx(), Height: b.Dy()}, 0)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	t.Logf("Recognized %d words", len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) != w.Text || w.Text == "" {
			t.Errorf("word text not trimmed: %q", w.Text)
		}
		if w.Confidence < 0 || w.Confidence > 1 {
			t.Errorf("confidence out of range: %f", w.Confidence)
		}
	}
}

func TestTesseract_RecognizeOffsetsBoxes(t *testing.T) {
	eng := newTesseractOrSkip(t)

	width, height := 400, 200
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(img, 150, 100, "CENTER TEXT", color.Black)

	roi := geometry.Box{X: 100, Y: 50, Width: 200, Height: 100}
	words, err := eng.Recognize(img, roi, 0)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	for _, w := range words {
		if w.Box.X < roi.X || w.Box.Y < roi.Y {
			t.Errorf("word %q box should be offset into image coordinates: %+v", w.Text, w.Box)
		}
	}
}

func TestTesseract_ConfidenceFilter(t *testing.T) {
	eng := newTesseractOrSkip(t)

	img := scaledTextImage("FILTER", 4)
	b := img.Bounds()
	roi := geometry.Box{Width: b.Dx(), Height: b.Dy()}

	all, err := eng.Recognize(img, roi, 0)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	none, err := eng.Recognize(img, roi, 1.01)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("threshold above 1.0 should drop every word, got %d (of %d)", len(none), len(all))
	}
}

func TestTesseract_Text(t *testing.T) {
	eng := newTesseractOrSkip(t)

	text, err := eng.Text(scaledTextImage("TEST", 4))
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	t.Logf("Full text: %q", strings.TrimSpace(text))
}
