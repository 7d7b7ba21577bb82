package detection

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// EdgeConfig tunes the edge density detector.
type EdgeConfig struct {
	// MinConfidence drops windows scoring below it.
	MinConfidence float64

	// NMSThreshold is the IoU above which the weaker of two overlapping
	// windows is suppressed. Zero disables suppression.
	NMSThreshold float64

	// InputWidth and InputHeight resize the image before scanning. Boxes are
	// scaled back to the original size. Zero in either keeps the original.
	InputWidth  int
	InputHeight int

	// EdgeThreshold is the minimum gray-level step between neighbors that
	// counts as an edge. Zero means 30.
	EdgeThreshold float64

	// Merge folds overlapping survivors into their union after suppression.
	Merge bool
}

// DefaultEdgeConfig returns the settings used when none are configured.
func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		MinConfidence: 0.5,
		NMSThreshold:  0.4,
		EdgeThreshold: 30,
	}
}

// windowSizes are the text line shapes the scanner looks for.
var windowSizes = []struct{ w, h int }{
	{100, 30}, // small text
	{150, 40}, // medium text
	{200, 50}, // large text
	{80, 25},  // very small text
}

// EdgeDetector finds regions likely to contain text from edge statistics
// alone. It is safe for concurrent use.
type EdgeDetector struct {
	cfg EdgeConfig
}

var _ Detector = (*EdgeDetector)(nil)

// NewEdgeDetector returns an EdgeDetector for cfg.
func NewEdgeDetector(cfg EdgeConfig) *EdgeDetector {
	if cfg.EdgeThreshold <= 0 {
		cfg.EdgeThreshold = 30
	}
	return &EdgeDetector{cfg: cfg}
}

// Detect scans img with several window sizes and returns the windows whose
// edge density (5% to 40%) and horizontal structure look like text, sorted
// by confidence, highest first.
func (d *EdgeDetector) Detect(img image.Image) ([]Candidate, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, nil
	}

	src := img
	scaleX, scaleY := 1.0, 1.0
	if d.cfg.InputWidth > 0 && d.cfg.InputHeight > 0 &&
		(d.cfg.InputWidth != width || d.cfg.InputHeight != height) {
		src = imaging.Resize(img, d.cfg.InputWidth, d.cfg.InputHeight, imaging.Linear)
		scaleX = float64(width) / float64(d.cfg.InputWidth)
		scaleY = float64(height) / float64(d.cfg.InputHeight)
	}

	edges := buildEdgeMap(src, d.cfg.EdgeThreshold)

	candidates := make([]Candidate, 0)
	for _, ws := range windowSizes {
		stepX := ws.w / 2
		stepY := ws.h / 2
		area := ws.w * ws.h

		for y := 0; y <= edges.h-ws.h; y += stepY {
			for x := 0; x <= edges.w-ws.w; x += stepX {
				density := float64(edges.count(x, y, ws.w, ws.h)) / float64(area)

				// Text has medium edge density, neither sparse nor noise.
				if density < 0.05 || density > 0.4 {
					continue
				}

				confidence := edges.horizontalScore(x, y, ws.w, ws.h) * (1.0 - math.Abs(density-0.2)/0.2)
				confidence = math.Round(confidence*1000) / 1000
				if confidence < d.cfg.MinConfidence {
					continue
				}
				candidates = append(candidates, Candidate{
					Box:        geometry.Box{X: x, Y: y, Width: ws.w, Height: ws.h},
					Confidence: confidence,
				})
			}
		}
	}

	candidates = Suppress(candidates, d.cfg.NMSThreshold)
	if d.cfg.Merge {
		candidates = Merge(candidates)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Confidence > candidates[j].Confidence
		})
	}

	if scaleX != 1 || scaleY != 1 {
		for i := range candidates {
			candidates[i].Box = scaleBox(candidates[i].Box, scaleX, scaleY, width, height)
		}
	}
	return candidates, nil
}

func scaleBox(b geometry.Box, sx, sy float64, width, height int) geometry.Box {
	x1 := int(math.Floor(float64(b.X) * sx))
	y1 := int(math.Floor(float64(b.Y) * sy))
	x2 := int(math.Ceil(float64(b.X+b.Width) * sx))
	y2 := int(math.Ceil(float64(b.Y+b.Height) * sy))
	return geometry.Clamp(geometry.Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, width, height)
}

// edgeMap is a binary gradient map of a grayscale image plus a summed-area
// table over it, so window edge counts cost four lookups.
type edgeMap struct {
	w, h int
	on   []bool
	sum  []int
}

// buildEdgeMap marks pixels whose right or lower neighbor differs in gray
// level by more than threshold. The one-pixel border is never an edge.
func buildEdgeMap(img image.Image, threshold float64) *edgeMap {
	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	m := &edgeMap{
		w:   w,
		h:   h,
		on:  make([]bool, w*h),
		sum: make([]int, (w+1)*(h+1)),
	}

	level := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := level(x, y)
			if math.Abs(c-level(x+1, y)) > threshold || math.Abs(c-level(x, y+1)) > threshold {
				m.on[y*w+x] = true
			}
		}
	}

	stride := w + 1
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			if m.on[y*w+x] {
				row++
			}
			m.sum[(y+1)*stride+x+1] = m.sum[y*stride+x+1] + row
		}
	}
	return m
}

func (m *edgeMap) at(x, y int) bool {
	return m.on[y*m.w+x]
}

// count returns the number of edge pixels in the window at (x, y).
func (m *edgeMap) count(x, y, w, h int) int {
	s := m.w + 1
	return m.sum[(y+h)*s+x+w] - m.sum[y*s+x+w] - m.sum[(y+h)*s+x] + m.sum[y*s+x]
}

// horizontalScore is the share of edge runs that run along rows rather than
// columns. Printed text tends to score above 0.5.
func (m *edgeMap) horizontalScore(x, y, w, h int) float64 {
	horizontalRuns := 0
	verticalRuns := 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if m.at(col, row) {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if m.at(col, row) {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}
