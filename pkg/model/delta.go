package model

import (
	"fmt"
	"strconv"
	"strings"
)

// RelativeDelta is the configuration keyword for a growth step that scales
// with the population size.
const RelativeDelta = "relative"

// relativeScale is the total growth budget shared by the population.
const relativeScale = 0.01

// Delta is the per-round growth step of the generalization model: either a
// fixed positive value or relative to the population size.
type Delta struct {
	Value    float64
	Relative bool
}

// Relative returns the population-relative delta.
func Relative() Delta {
	return Delta{Relative: true}
}

// Fixed returns a fixed delta.
func Fixed(v float64) Delta {
	return Delta{Value: v}
}

// ParseDelta parses "relative" or a positive float.
func ParseDelta(s string) (Delta, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, RelativeDelta) {
		return Relative(), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Delta{}, fmt.Errorf("%w: delta %q: %w", ErrInvalidConfig, s, err)
	}

	if v <= 0 {
		return Delta{}, fmt.Errorf("%w: delta must be positive, got %g", ErrInvalidConfig, v)
	}

	return Fixed(v), nil
}

// Resolve returns the growth step for a population of n intervals.
func (d Delta) Resolve(n int) float64 {
	if d.Relative {
		if n <= 0 {
			return 0
		}

		return relativeScale / float64(n)
	}

	return d.Value
}

// String returns "relative" or the shortest float representation.
func (d Delta) String() string {
	if d.Relative {
		return RelativeDelta
	}

	return strconv.FormatFloat(d.Value, 'g', -1, 64)
}

// MarshalText implements encoding.TextMarshaler.
func (d Delta) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Delta) UnmarshalText(text []byte) error {
	parsed, err := ParseDelta(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
