// Package geometry holds the pixel-space primitives shared by detection,
// recognition, and matching.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// A Box is stored as origin plus extent (X, Y, Width, Height) rather than as two
// corners, because the ROI arithmetic and center computation are defined in
// those terms.
package geometry

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// NotFound is the sentinel point returned when a query has no match.
var NotFound = Point{X: -1, Y: -1}

// Found reports whether p is a real match rather than the NotFound sentinel.
func (p Point) Found() bool {
	return p != NotFound
}

// Box is an axis-aligned rectangle in image pixel space.
//
// Width and Height are never negative for boxes produced by this module.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts a stdlib rectangle into a Box. The rectangle is
// canonicalized first so the resulting extent is non-negative.
func FromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect converts the box to an image.Rectangle (Min inclusive, Max exclusive).
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Center returns the box center using truncating integer division.
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Area returns Width × Height.
func (b Box) Area() int {
	return b.Width * b.Height
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Translate returns the box moved by (dx, dy).
func (b Box) Translate(dx, dy int) Box {
	b.X += dx
	b.Y += dy
	return b
}

// ExpandROI pads a detected box by tolerance pixels on every side and clamps
// the result to an image of size width × height.
//
// The arithmetic follows the detector convention:
//
//	x' = max(x - t, 0)
//	y' = max(y - t, 0)
//	width'  = (x' + width + t  <= W) ? width  + 2t : W - x'
//	height' = (y' + height + t <= H) ? height + 2t : H - y'
//
// A final clamp keeps the box inside [0, W) × [0, H) even when the source box
// already lies partly or wholly outside the image, or the tolerance is negative.
// The function never fails; a box entirely outside the image collapses to an
// empty box on the nearest edge.
func ExpandROI(b Box, tolerance, width, height int) Box {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	x := maxInt(b.X-tolerance, 0)
	y := maxInt(b.Y-tolerance, 0)

	w := width - x
	if x+b.Width+tolerance <= width {
		w = b.Width + 2*tolerance
	}
	h := height - y
	if y+b.Height+tolerance <= height {
		h = b.Height + 2*tolerance
	}

	return Clamp(Box{X: x, Y: y, Width: w, Height: h}, width, height)
}

// Clamp restricts a box to [0, width) × [0, height). Negative extents become zero.
func Clamp(b Box, width, height int) Box {
	x1 := clampInt(b.X, 0, width)
	y1 := clampInt(b.Y, 0, height)
	x2 := clampInt(b.X+maxInt(b.Width, 0), x1, width)
	y2 := clampInt(b.Y+maxInt(b.Height, 0), y1, height)
	return Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Centroid returns the mean of the box centers, truncated per axis.
// An empty slice yields NotFound.
func Centroid(boxes []Box) Point {
	if len(boxes) == 0 {
		return NotFound
	}
	var sx, sy int
	for _, b := range boxes {
		c := b.Center()
		sx += c.X
		sy += c.Y
	}
	return Point{X: sx / len(boxes), Y: sy / len(boxes)}
}

// IoU returns the intersection-over-union of two boxes, 0 when either is empty.
func IoU(a, b Box) float64 {
	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0
	}
	ia := inter.Dx() * inter.Dy()
	union := a.Area() + b.Area() - ia
	if union <= 0 {
		return 0
	}
	return float64(ia) / float64(union)
}

// Union returns the smallest box covering both a and b.
func Union(a, b Box) Box {
	return FromRect(a.Rect().Union(b.Rect()))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
