package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// Label is a recognized word to draw on an annotated image.
type Label struct {
	Box  geometry.Box
	Text string
}

// Overlay lists everything Annotate draws.
type Overlay struct {
	// Detections are drawn as thin green boxes.
	Detections []geometry.Box

	// Words are drawn as colored boxes with their text above them.
	Words []Label

	// Match, when found, is marked with a red crosshair.
	Match geometry.Point
}

var (
	detectionColor = colorful.Hsv(120, 1, 0.75)
	matchColor     = colorful.Hsv(0, 1, 1)
	labelFG        = color.White
)

// wordColor returns a distinct, readable color for the i-th word. Hues step
// by the golden angle so neighbors never share a color.
func wordColor(i int) color.Color {
	hue := math.Mod(float64(i)*137.508, 360)
	return colorful.Hcl(hue, 0.7, 0.55).Clamped()
}

// Annotate returns a copy of img with the overlay drawn on it. img is not
// modified. Boxes are relative to the image origin.
func Annotate(img image.Image, o Overlay) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	for _, d := range o.Detections {
		drawRect(out, d, detectionColor, 1)
	}
	for i, w := range o.Words {
		c := wordColor(i)
		drawRect(out, w.Box, c, 2)
		drawLabel(out, w.Box.X, w.Box.Y-2, w.Text, c)
	}
	if o.Match.Found() {
		drawCrosshair(out, o.Match, matchColor, 10)
	}
	return out
}

// Save writes img to path; the format follows the file extension.
func Save(img image.Image, path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func drawRect(img *image.RGBA, box geometry.Box, c color.Color, thickness int) {
	r := box.Rect().Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setPixel(img, x, r.Min.Y+t, c)
			setPixel(img, x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setPixel(img, r.Min.X+t, y, c)
			setPixel(img, r.Max.X-1-t, y, c)
		}
	}
}

func drawCrosshair(img *image.RGBA, p geometry.Point, c color.Color, arm int) {
	for d := -arm; d <= arm; d++ {
		for t := -1; t <= 1; t++ {
			setPixel(img, p.X+d, p.Y+t, c)
			setPixel(img, p.X+t, p.Y+d, c)
		}
	}
}

// drawLabel draws text with its baseline at y on a filled background of bg.
// Labels that would start above the image are moved inside it.
func drawLabel(img *image.RGBA, x, y int, text string, bg color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	if y-ascent < 0 {
		y = ascent
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelFG),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	width := d.MeasureString(text).Ceil()
	bgRect := image.Rect(x-1, y-ascent-1, x+width+1, y+descent).Intersect(img.Bounds())
	draw.Draw(img, bgRect, image.NewUniform(bg), image.Point{}, draw.Src)
	d.DrawString(text)
}

func setPixel(img *image.RGBA, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}
