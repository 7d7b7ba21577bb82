package detection

import (
	"testing"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

func TestSuppress(t *testing.T) {
	cs := []Candidate{
		{Box: geometry.Box{X: 0, Y: 0, Width: 10, Height: 10}, Confidence: 0.6},
		{Box: geometry.Box{X: 1, Y: 0, Width: 10, Height: 10}, Confidence: 0.9},
		{Box: geometry.Box{X: 50, Y: 50, Width: 10, Height: 10}, Confidence: 0.7},
	}

	tests := []struct {
		name      string
		threshold float64
		want      []float64
	}{
		{"disabled only sorts", 0, []float64{0.9, 0.7, 0.6}},
		{"overlap suppressed", 0.4, []float64{0.9, 0.7}},
		{"loose threshold keeps all", 0.95, []float64{0.9, 0.7, 0.6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suppress(cs, tt.threshold)
			if len(got) != len(tt.want) {
				t.Fatalf("Suppress kept %d, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, c := range got {
				if c.Confidence != tt.want[i] {
					t.Errorf("position %d confidence = %.2f, want %.2f", i, c.Confidence, tt.want[i])
				}
			}
		})
	}

	if cs[0].Confidence != 0.6 {
		t.Error("Suppress must not reorder its input")
	}
}

func TestMerge(t *testing.T) {
	cs := []Candidate{
		{Box: geometry.Box{X: 10, Y: 10, Width: 40, Height: 20}, Confidence: 0.8},
		{Box: geometry.Box{X: 30, Y: 10, Width: 40, Height: 20}, Confidence: 0.7},
		{Box: geometry.Box{X: 100, Y: 100, Width: 50, Height: 30}, Confidence: 0.6},
	}

	merged := Merge(cs)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged regions, got %d", len(merged))
	}
	if merged[0].Box != (geometry.Box{X: 10, Y: 10, Width: 60, Height: 20}) {
		t.Errorf("merged box = %+v", merged[0].Box)
	}
	if merged[0].Confidence != 0.8 {
		t.Errorf("merged confidence = %.2f, want 0.8", merged[0].Confidence)
	}
}

func TestMerge_NoOverlap(t *testing.T) {
	cs := []Candidate{
		{Box: geometry.Box{X: 10, Y: 10, Width: 20, Height: 20}, Confidence: 0.8},
		{Box: geometry.Box{X: 50, Y: 50, Width: 20, Height: 20}, Confidence: 0.7},
	}
	if merged := Merge(cs); len(merged) != 2 {
		t.Errorf("expected 2 regions (no overlap), got %d", len(merged))
	}
}

func TestMerge_Empty(t *testing.T) {
	if merged := Merge(nil); len(merged) != 0 {
		t.Errorf("expected empty result, got %d", len(merged))
	}
}
