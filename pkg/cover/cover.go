// Package cover provides closed intervals on the real line together with the
// two primitives every model in semevo is built on: pairwise overlap
// detection over a start-sorted population and the union of a collection
// into disjoint covering runs.
package cover

import (
	"cmp"
	"slices"
)

// Interval is a closed range [Start, End] with Start <= End.
type Interval struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end"   yaml:"end"`
}

// Size returns End - Start.
func (iv Interval) Size() float64 {
	return iv.End - iv.Start
}

// Clamp restricts both ends of the interval to [lo, hi].
func (iv Interval) Clamp(lo, hi float64) Interval {
	return Interval{
		Start: max(lo, min(iv.Start, hi)),
		End:   max(lo, min(iv.End, hi)),
	}
}

// Pair identifies two overlapping members of a population by position.
// I < J always holds.
type Pair struct {
	I    int
	J    int
	Size float64
}

// Overlap returns the length of the intersection of a and b.
// Touching or disjoint intervals yield zero.
func Overlap(a, b Interval) float64 {
	return max(0, min(a.End, b.End)-max(a.Start, b.Start))
}

// Intersection returns the common part of a and b and whether it has
// positive length.
func Intersection(a, b Interval) (Interval, bool) {
	lo := max(a.Start, b.Start)
	hi := min(a.End, b.End)

	if lo >= hi {
		return Interval{}, false
	}

	return Interval{Start: lo, End: hi}, true
}

// FindOverlaps returns every overlapping pair of a start-sorted population in
// scan order. For each i the scan over j > i stops at the first partner with
// zero overlap: once a later interval starts past i's end, no interval after
// it can reach i. The result is only complete when sorted is ordered by Start.
func FindOverlaps(sorted []Interval) []Pair {
	var pairs []Pair

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			ovl := Overlap(sorted[i], sorted[j])
			if ovl <= 0 {
				break
			}

			pairs = append(pairs, Pair{I: i, J: j, Size: ovl})
		}
	}

	return pairs
}

// Compare orders intervals by Start, then by End.
func Compare(a, b Interval) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}

	return cmp.Compare(a.End, b.End)
}

// SortByStart sorts intervals in place by Start, then End.
func SortByStart(intervals []Interval) {
	slices.SortFunc(intervals, Compare)
}

// SortBySizeDesc sorts intervals in place by decreasing size. Equal sizes
// keep their relative order.
func SortBySizeDesc(intervals []Interval) {
	slices.SortStableFunc(intervals, func(a, b Interval) int {
		return cmp.Compare(b.Size(), a.Size())
	})
}

// Sizes returns the size of every interval, in order.
func Sizes(intervals []Interval) []float64 {
	sizes := make([]float64, len(intervals))

	for i, iv := range intervals {
		sizes[i] = iv.Size()
	}

	return sizes
}

// Clone returns a copy of intervals that shares no memory with the input.
func Clone(intervals []Interval) []Interval {
	if intervals == nil {
		return nil
	}

	return slices.Clone(intervals)
}
