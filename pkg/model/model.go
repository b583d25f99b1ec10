// Package model holds the vocabulary shared by the interval-evolution engines:
// random sources, results, configuration errors, non-convergence, and round
// observers.
package model

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Sumatoshi-tech/semevo/pkg/cover"
)

// Model names used in records, metrics and logs.
const (
	Generalization = "generalization"
	Specialization = "specialization"
)

// Sentinel errors.
var (
	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid model configuration")
	// ErrNotConverged is wrapped by NotConvergedError.
	ErrNotConverged = errors.New("model did not converge")
)

// Source supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// seedStream is mixed into the second PCG word so that seed 0 still yields
// a well-spread stream.
const seedStream = 0x9e3779b97f4a7c15

// NewSource returns a deterministic PCG source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedStream))
}

// Result is the final population of an engine run.
type Result struct {
	// Intervals are sorted by size, largest first.
	Intervals []cover.Interval `json:"intervals" yaml:"intervals"`
	// Sizes parallels Intervals.
	Sizes     []float64 `json:"sizes"     yaml:"sizes"`
	Rounds    int       `json:"rounds"    yaml:"rounds"`
	Converged bool      `json:"converged" yaml:"converged"`
}

// NewResult sorts intervals by size (stable, largest first) and fills Sizes.
// The slice is sorted in place.
func NewResult(intervals []cover.Interval, rounds int, converged bool) Result {
	cover.SortBySizeDesc(intervals)

	return Result{
		Intervals: intervals,
		Sizes:     cover.Sizes(intervals),
		Rounds:    rounds,
		Converged: converged,
	}
}

// NotConvergedError reports a run abandoned before reaching its terminal
// state. Partial holds the population at the moment the run stopped.
type NotConvergedError struct {
	Model   string
	Rounds  int
	Reason  string
	Partial Result
}

// Error implements error.
func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("%s model did not converge after %d rounds: %s", e.Model, e.Rounds, e.Reason)
}

// Unwrap lets errors.Is match ErrNotConverged.
func (e *NotConvergedError) Unwrap() error {
	return ErrNotConverged
}

// Reasons carried by NotConvergedError.
const (
	ReasonMaxRounds  = "round limit reached"
	ReasonStagnation = "population stopped changing"
)

// PartialResult extracts the partial population from a non-convergence error.
func PartialResult(err error) (Result, bool) {
	var nc *NotConvergedError
	if errors.As(err, &nc) {
		return nc.Partial, true
	}

	return Result{}, false
}
