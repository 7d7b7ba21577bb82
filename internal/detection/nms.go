package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/text-spotter/internal/geometry"
)

// Suppress performs greedy non-max suppression.
//
// Candidates are visited in descending confidence order (stable for equal
// scores) and kept only if their IoU with every already kept candidate is at
// most threshold. A threshold <= 0 disables suppression and only sorts.
// The input slice is not modified.
func Suppress(cs []Candidate, threshold float64) []Candidate {
	sorted := make([]Candidate, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if threshold <= 0 {
		return sorted
	}

	kept := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		suppressed := false
		for _, k := range kept {
			if geometry.IoU(c.Box, k.Box) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

// Merge folds overlapping candidates into their union, keeping the highest
// confidence of each merged group. Candidates are merged into the first
// earlier survivor they overlap.
func Merge(cs []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		found := false
		for i := range merged {
			if overlaps(c.Box, merged[i].Box) {
				merged[i].Box = geometry.Union(c.Box, merged[i].Box)
				merged[i].Confidence = math.Max(c.Confidence, merged[i].Confidence)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, c)
		}
	}
	return merged
}

func overlaps(a, b geometry.Box) bool {
	return a.X < b.X+b.Width && a.X+a.Width > b.X && a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

func filterConfidence(cs []Candidate, min float64) []Candidate {
	out := cs[:0]
	for _, c := range cs {
		if c.Confidence >= min {
			out = append(out, c)
		}
	}
	return out
}
