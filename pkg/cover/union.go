package cover

// Unite merges intervals into disjoint covering runs ordered by Start.
// The input is not modified. A run absorbs the next interval only when the
// run's end lies strictly past the next start, so touching intervals such as
// [1,2] and [2,3] stay separate.
func Unite(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := Clone(intervals)
	SortByStart(sorted)

	runs := make([]Interval, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		if current.End > next.Start {
			current.End = max(current.End, next.End)

			continue
		}

		runs = append(runs, current)
		current = next
	}

	return append(runs, current)
}

// CoveredLength returns the total length of the union of intervals.
func CoveredLength(intervals []Interval) float64 {
	var total float64

	for _, run := range Unite(intervals) {
		total += run.Size()
	}

	return total
}
