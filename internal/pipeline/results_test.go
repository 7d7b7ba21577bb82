package pipeline

import (
	"testing"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

func res(text string, x, y int) Result {
	return Result{Text: text, Box: geometry.Box{X: x, Y: y, Width: 10, Height: 10}}
}

func TestSortByPosition(t *testing.T) {
	in := []Result{res("c", 50, 20), res("a", 10, 5), res("b", 60, 5), res("a", 10, 20)}
	got := SortByPosition(in)

	want := []string{"a", "b", "a", "c"}
	for i, r := range got {
		if r.Text != want[i] {
			t.Fatalf("order = %+v, want %v", got, want)
		}
	}
	if in[0].Text != "c" {
		t.Error("SortByPosition must not modify its input")
	}
}

func TestSameTexts(t *testing.T) {
	a := []Result{res("x", 0, 0), res("y", 1, 1), res("x", 2, 2)}
	tests := []struct {
		name string
		b    []Result
		want bool
	}{
		{"same order", a, true},
		{"shuffled", []Result{res("x", 9, 9), res("x", 8, 8), res("y", 7, 7)}, true},
		{"different counts", []Result{res("x", 0, 0), res("y", 0, 0), res("y", 0, 0)}, false},
		{"shorter", []Result{res("x", 0, 0), res("y", 0, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameTexts(a, tt.b); got != tt.want {
				t.Errorf("SameTexts = %v, want %v", got, tt.want)
			}
		})
	}
	if !SameTexts(nil, nil) {
		t.Error("two empty result sets should match")
	}
}

func TestHistogram(t *testing.T) {
	h := Histogram([]Result{res("a", 0, 0), res("b", 0, 0), res("a", 5, 5)})
	if h["a"] != 2 || h["b"] != 1 || len(h) != 2 {
		t.Errorf("Histogram = %v", h)
	}
}
