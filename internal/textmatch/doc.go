// Package textmatch resolves word and phrase queries against recognized text.
//
// Equality is fuzzy: two strings match when their Levenshtein distance,
// computed over runes after Unicode lowercasing, is below half the length of
// the shorter one (floored). Identical strings always match, including the
// empty string and single characters, which the length rule alone would
// reject.
//
// A single-token query picks the closest fuzzy match and returns the center
// of its box. A phrase query picks one box per token so that the sum of all
// pairwise center distances is smallest, and returns the centroid of those
// boxes. The phrase search is exhaustive with branch-and-bound pruning and a
// configurable ceiling on explored assignments.
//
// Matching never depends on map iteration order: text groups are visited in
// order of first appearance in the input, not in lexicographic order of
// their text, and ties keep the earliest candidate. The group order only
// decides between assignments with equal scores. Sort results with pipeline.SortByPosition first if the input
// order itself is not stable.
package textmatch
