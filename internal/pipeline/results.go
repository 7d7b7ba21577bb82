package pipeline

import "sort"

// SortByPosition returns a copy of results ordered top to bottom, then left
// to right, then by text. Matching over a sorted slice makes "earliest"
// tie-breaks reproducible regardless of execution mode.
func SortByPosition(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Box.Y != b.Box.Y {
			return a.Box.Y < b.Box.Y
		}
		if a.Box.X != b.Box.X {
			return a.Box.X < b.Box.X
		}
		return a.Text < b.Text
	})
	return out
}

// Histogram counts how often each text occurs.
func Histogram(results []Result) map[string]int {
	h := make(map[string]int, len(results))
	for _, r := range results {
		h[r.Text]++
	}
	return h
}

// SameTexts reports whether a and b contain the same multiset of texts,
// ignoring order and boxes.
func SameTexts(a, b []Result) bool {
	if len(a) != len(b) {
		return false
	}
	ha := Histogram(a)
	for _, r := range b {
		n := ha[r.Text]
		if n == 0 {
			return false
		}
		ha[r.Text] = n - 1
	}
	return true
}
