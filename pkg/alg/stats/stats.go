// Package stats provides the descriptive statistics and curve fits used to
// summarise interval-size distributions.
// All standard deviation calculations use population stddev (÷n, not ÷(n−1)).
package stats

import (
	"cmp"
	"errors"
	"math"
	"slices"
)

// ErrTooFewPoints is returned by fits that need at least two distinct x values.
var ErrTooFewPoints = errors.New("at least two distinct points are required")

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return Sum(values) / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	count := len(values)
	if count == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(count))
}

// PercentileMedian is the median threshold.
const PercentileMedian = 0.5

// Percentile returns the p-th percentile of values using linear interpolation.
// p must be in [0, 1]. The input slice is not modified (a copy is sorted internally).
// Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	count := len(values)
	if count == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Median returns the 50th percentile of values.
// Returns 0 for an empty slice.
func Median(values []float64) float64 {
	return Percentile(values, PercentileMedian)
}

// Max returns the largest element in values.
// Returns the zero value of T for an empty slice.
func Max[T cmp.Ordered](values []T) T {
	if len(values) == 0 {
		var zero T

		return zero
	}

	return slices.Max(values)
}

// Sum returns the sum of all elements in values.
// Returns the zero value of T for an empty slice.
func Sum[T cmp.Ordered](values []T) T {
	var result T

	for _, v := range values {
		result += v
	}

	return result
}

// Fit is a least-squares line y = Intercept + Slope*x.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	// R2 is the coefficient of determination; 1 for a perfect fit.
	R2 float64 `json:"r2"`
	// Points is the number of points the fit used.
	Points int `json:"points"`
}

// LinearFit fits a straight line through (xs[i], ys[i]) by ordinary least
// squares. xs and ys must have equal length.
func LinearFit(xs, ys []float64) (Fit, error) {
	n := min(len(xs), len(ys))
	if n < 2 {
		return Fit{}, ErrTooFewPoints
	}

	meanX, meanY := Mean(xs[:n]), Mean(ys[:n])

	var sxx, sxy, syy float64

	for i := range n {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	if sxx == 0 {
		return Fit{}, ErrTooFewPoints
	}

	slope := sxy / sxx
	fit := Fit{Slope: slope, Intercept: meanY - slope*meanX, R2: 1, Points: n}

	if syy > 0 {
		fit.R2 = sxy * sxy / (sxx * syy)
	}

	return fit, nil
}

// LogLogFit fits log(ys) against log(xs), skipping any point where either
// coordinate is not strictly positive. A power law y = c*x^a appears as a
// line with Slope a.
func LogLogFit(xs, ys []float64) (Fit, error) {
	n := min(len(xs), len(ys))
	logX := make([]float64, 0, n)
	logY := make([]float64, 0, n)

	for i := range n {
		if xs[i] <= 0 || ys[i] <= 0 {
			continue
		}

		logX = append(logX, math.Log(xs[i]))
		logY = append(logY, math.Log(ys[i]))
	}

	return LinearFit(logX, logY)
}
