// Package coverage measures how a size-ranked interval population covers the
// unit line: rank-size series, Zipfian covering windows and power-law slope.
package coverage

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/semevo/pkg/alg/stats"
	"github.com/Sumatoshi-tech/semevo/pkg/cover"
)

// ErrInvalidOptions is returned for window options that cannot produce a series.
var ErrInvalidOptions = errors.New("invalid coverage options")

// Default window options.
const (
	DefaultRho       = 2.0
	DefaultStartRank = 1
	DefaultStep      = 10
)

// Point is one (rank, size) pair; ranks start at 1.
type Point struct {
	Rank int     `json:"rank"`
	Size float64 `json:"size"`
}

// RankSize returns the rank-size series of intervals sorted by size,
// largest first.
func RankSize(sorted []cover.Interval) []Point {
	out := make([]Point, len(sorted))
	for i, iv := range sorted {
		out[i] = Point{Rank: i + 1, Size: iv.Size()}
	}

	return out
}

// Slope fits log(size) against log(rank) over the positive sizes of a
// size-ranked population. A Zipfian population has a slope near -1.
func Slope(sorted []cover.Interval) (stats.Fit, error) {
	ranks := make([]float64, len(sorted))
	sizes := make([]float64, len(sorted))

	for i, iv := range sorted {
		ranks[i] = float64(i + 1)
		sizes[i] = iv.Size()
	}

	fit, err := stats.LogLogFit(ranks, sizes)
	if err != nil {
		return stats.Fit{}, fmt.Errorf("rank-size slope: %w", err)
	}

	return fit, nil
}

// Options selects the covering windows: ranks k..rho*k for k = StartRank,
// StartRank+Step, ... while k < N/rho.
type Options struct {
	Rho       float64 `json:"rho"        yaml:"rho"`
	StartRank int     `json:"start_rank" yaml:"start_rank"`
	Step      int     `json:"step"       yaml:"step"`
}

// DefaultOptions returns rho 2, starting at rank 1 in steps of 10.
func DefaultOptions() Options {
	return Options{Rho: DefaultRho, StartRank: DefaultStartRank, Step: DefaultStep}
}

// Validate checks the options.
func (o Options) Validate() error {
	if !(o.Rho > 1) {
		return fmt.Errorf("%w: rho must be greater than 1, got %g", ErrInvalidOptions, o.Rho)
	}

	if o.StartRank < 1 {
		return fmt.Errorf("%w: start rank must be at least 1, got %d", ErrInvalidOptions, o.StartRank)
	}

	if o.Step < 1 {
		return fmt.Errorf("%w: step must be at least 1, got %d", ErrInvalidOptions, o.Step)
	}

	return nil
}

// Window is the covering measured over ranks [From, To) (0-based slice
// bounds into the size-ranked population) for starting rank K.
type Window struct {
	K    int `json:"k"`
	From int `json:"from"`
	To   int `json:"to"`
	// Covered is the union length of the window.
	Covered float64 `json:"covered"`
	// Gap is 1 - Covered.
	Gap float64 `json:"gap"`
	// Overlap is the union length of all pairwise intersections.
	Overlap float64 `json:"overlap"`
	// PairOverlap sums the overlap of every pair.
	PairOverlap float64 `json:"pair_overlap"`
}

// Series is the covering series of one population.
type Series struct {
	Options Options  `json:"options"`
	Windows []Window `json:"windows"`
	// CoveredMean and CoveredStdDev summarise Covered across windows.
	CoveredMean   float64 `json:"covered_mean"`
	CoveredStdDev float64 `json:"covered_stddev"`
}

// Zipf computes the covering series. sorted must be ranked by size, largest
// first; it is not modified.
func Zipf(sorted []cover.Interval, opts Options) (Series, error) {
	err := opts.Validate()
	if err != nil {
		return Series{}, err
	}

	n := len(sorted)
	series := Series{Options: opts}
	limit := int(float64(n) / opts.Rho)

	for k := opts.StartRank; k < limit; k += opts.Step {
		from := k - 1
		to := min(int(float64(k)*opts.Rho)-1, n)

		if to <= from {
			continue
		}

		series.Windows = append(series.Windows, measure(k, from, to, sorted[from:to]))
	}

	covered := make([]float64, len(series.Windows))
	for i, w := range series.Windows {
		covered[i] = w.Covered
	}

	series.CoveredMean, series.CoveredStdDev = stats.MeanStdDev(covered)

	return series, nil
}

func measure(k, from, to int, window []cover.Interval) Window {
	covered := cover.CoveredLength(window)

	return Window{
		K:           k,
		From:        from,
		To:          to,
		Covered:     covered,
		Gap:         1 - covered,
		Overlap:     IntersectionLength(window),
		PairOverlap: PairOverlapSum(window),
	}
}

// IntersectionLength returns the union length of all pairwise intersections
// of intervals, found by a start-sorted sweep that stops scanning partners of
// i at the first non-intersecting one.
func IntersectionLength(intervals []cover.Interval) float64 {
	sorted := cover.Clone(intervals)
	cover.SortByStart(sorted)

	var pieces []cover.Interval

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			piece, ok := cover.Intersection(sorted[i], sorted[j])
			if !ok {
				break
			}

			pieces = append(pieces, piece)
		}
	}

	return cover.CoveredLength(pieces)
}

// PairOverlapSum returns the sum of Overlap over every unordered pair.
func PairOverlapSum(intervals []cover.Interval) float64 {
	var total float64

	for i := range intervals {
		for j := i + 1; j < len(intervals); j++ {
			total += cover.Overlap(intervals[i], intervals[j])
		}
	}

	return total
}

// Summary condenses one population.
type Summary struct {
	Count      int     `json:"count"`
	TotalSize  float64 `json:"total_size"`
	Covered    float64 `json:"covered"`
	Gap        float64 `json:"gap"`
	MaxSize    float64 `json:"max_size"`
	MedianSize float64 `json:"median_size"`
	// Slope is the rank-size log-log slope; zero when fewer than two
	// positive sizes exist.
	Slope float64 `json:"slope"`
	R2    float64 `json:"r2"`
}

// Summarize computes a Summary of a size-ranked population.
func Summarize(sorted []cover.Interval) Summary {
	sizes := cover.Sizes(sorted)
	covered := cover.CoveredLength(sorted)

	s := Summary{
		Count:      len(sorted),
		TotalSize:  stats.Sum(sizes),
		Covered:    covered,
		Gap:        1 - covered,
		MaxSize:    stats.Max(sizes),
		MedianSize: stats.Median(sizes),
	}

	fit, err := Slope(sorted)
	if err == nil {
		s.Slope, s.R2 = fit.Slope, fit.R2
	}

	return s
}
