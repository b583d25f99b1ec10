// Package specialization implements the specialization model: random
// intervals resolve overlaps with comparably sized partners by shrinking the
// shorter one, round after round, until no such overlap is left.
package specialization

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/semevo/pkg/alg/interval"
	"github.com/Sumatoshi-tech/semevo/pkg/cover"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

// Detector selects how overlapping partners are found each round.
type Detector string

// Detectors. Both visit pairs in the same order and produce identical output.
const (
	// DetectorScan compares every pair (i, j), i < j.
	DetectorScan Detector = "scan"
	// DetectorTree queries an interval tree for the partners of each i.
	DetectorTree Detector = "tree"
)

// ParseDetector parses a detector name. Empty means DetectorScan.
func ParseDetector(s string) (Detector, error) {
	switch Detector(s) {
	case "", DetectorScan:
		return DetectorScan, nil
	case DetectorTree:
		return DetectorTree, nil
	default:
		return "", fmt.Errorf("%w: unknown detector %q", model.ErrInvalidConfig, s)
	}
}

// DefaultMaxRounds bounds a run when Config.MaxRounds is zero.
const DefaultMaxRounds = 1000

// Config parameterises one run.
type Config struct {
	IntervalNumb int
	// Gamma bounds the length ratio of pairs that get resolved; must exceed 1.
	Gamma float64
	// Cutoff clamps freshly drawn intervals to [0,1].
	Cutoff    bool
	MaxRounds int
	Detector  Detector
	Observer  model.Observer
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IntervalNumb <= 0 {
		return fmt.Errorf("%w: interval_numb must be positive, got %d", model.ErrInvalidConfig, c.IntervalNumb)
	}

	return c.validateSettle()
}

func (c Config) validateSettle() error {
	if !(c.Gamma > 1) {
		return fmt.Errorf("%w: gamma must be greater than 1, got %g", model.ErrInvalidConfig, c.Gamma)
	}

	if c.MaxRounds < 0 {
		return fmt.Errorf("%w: max_rounds must not be negative, got %d", model.ErrInvalidConfig, c.MaxRounds)
	}

	_, err := ParseDetector(string(c.Detector))

	return err
}

func (c Config) roundBound() int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}

	return DefaultMaxRounds
}

// Run draws a population from src and settles it.
func Run(ctx context.Context, cfg Config, src model.Source) (model.Result, error) {
	err := cfg.Validate()
	if err != nil {
		return model.Result{}, err
	}

	return Settle(ctx, cfg, Draw(cfg, src))
}

// Draw returns cfg.IntervalNumb intervals sorted by start. All centers are
// drawn before all lengths; each interval is centered with the drawn length
// and, with Cutoff, clamped to [0,1].
func Draw(cfg Config, src model.Source) []cover.Interval {
	n := max(cfg.IntervalNumb, 0)
	centers := make([]float64, n)
	lengths := make([]float64, n)

	for i := range centers {
		centers[i] = src.Float64()
	}

	for i := range lengths {
		lengths[i] = src.Float64()
	}

	out := make([]cover.Interval, n)
	for i := range out {
		iv := cover.Interval{Start: centers[i] - lengths[i]/2, End: centers[i] + lengths[i]/2}
		if cfg.Cutoff {
			iv = iv.Clamp(0, 1)
		}

		out[i] = iv
	}

	cover.SortByStart(out)

	return out
}

// Shrink removes half of overlap from each end of iv. An overlap of at least
// iv's size collapses it to a point; the result never has Start > End.
func Shrink(iv cover.Interval, overlap float64) cover.Interval {
	half := min(overlap, iv.Size()) / 2
	start := iv.Start + half

	return cover.Interval{Start: start, End: max(iv.End-half, start)}
}

// InBand reports whether two lengths are comparable under gamma, that is
// 1/gamma < a/b < gamma.
func InBand(a, b, gamma float64) bool {
	ratio := a / b

	return 1/gamma < ratio && ratio < gamma
}

// Settle runs resolution rounds over a copy of population, visiting pairs in
// index order, until a round resolves nothing. cfg.IntervalNumb and
// cfg.Cutoff are ignored.
func Settle(ctx context.Context, cfg Config, population []cover.Interval) (model.Result, error) {
	err := cfg.validateSettle()
	if err != nil {
		return model.Result{}, err
	}

	s := newSettler(cfg, population)

	return s.run(ctx)
}

type settler struct {
	cfg   Config
	pop   []cover.Interval
	tree  *interval.Tree[float64, int]
	round int

	// Per-round counters.
	overlaps int
	resolved int
	changed  bool
}

func newSettler(cfg Config, population []cover.Interval) *settler {
	s := &settler{cfg: cfg, pop: cover.Clone(population)}

	if cfg.Detector == DetectorTree {
		s.tree = interval.New[float64, int]()
		for i, iv := range s.pop {
			s.tree.Insert(iv.Start, iv.End, i)
		}
	}

	return s
}

func (s *settler) run(ctx context.Context) (model.Result, error) {
	bound := s.cfg.roundBound()

	for {
		err := ctx.Err()
		if err != nil {
			return model.Result{}, fmt.Errorf("specialization round %d: %w", s.round, err)
		}

		if s.round >= bound {
			return s.notConverged(model.ReasonMaxRounds)
		}

		s.round++
		s.overlaps, s.resolved, s.changed = 0, 0, false

		if s.tree != nil {
			s.sweepTree()
		} else {
			s.sweepScan()
		}

		model.Notify(s.cfg.Observer, model.RoundStats{
			Model:    model.Specialization,
			Round:    s.round,
			Active:   len(s.pop),
			Overlaps: s.overlaps,
			Resolved: s.resolved,
		})

		if s.resolved == 0 {
			return model.NewResult(cover.Clone(s.pop), s.round, true), nil
		}

		// Resolutions that moved no endpoint would repeat forever.
		if !s.changed {
			return s.notConverged(model.ReasonStagnation)
		}
	}
}

func (s *settler) sweepScan() {
	for i := range s.pop {
		for j := i + 1; j < len(s.pop); j++ {
			s.visit(i, j)
		}
	}
}

// sweepTree visits the same pairs as sweepScan. Intervals only shrink, so
// partners found at the start of i's turn are a superset of those that
// still overlap when visited.
func (s *settler) sweepTree() {
	var partners []int

	for i, iv := range s.pop {
		partners = partners[:0]

		for _, hit := range s.tree.QueryOverlap(iv.Start, iv.End) {
			if hit.Value > i {
				partners = append(partners, hit.Value)
			}
		}

		slices.Sort(partners)

		for _, j := range partners {
			s.visit(i, j)
		}
	}
}

func (s *settler) visit(i, j int) {
	ovl := cover.Overlap(s.pop[i], s.pop[j])
	if ovl <= 0 {
		return
	}

	s.overlaps++

	li, lj := s.pop[i].Size(), s.pop[j].Size()
	if !InBand(li, lj, s.cfg.Gamma) {
		return
	}

	s.resolved++

	target := j
	if li < lj {
		target = i
	}

	old := s.pop[target]
	next := Shrink(old, ovl)

	if next == old {
		return
	}

	s.changed = true
	s.pop[target] = next

	if s.tree != nil {
		s.tree.Replace(old.Start, old.End, next.Start, next.End, target)
	}
}

func (s *settler) notConverged(reason string) (model.Result, error) {
	partial := model.NewResult(cover.Clone(s.pop), s.round, false)

	return partial, &model.NotConvergedError{
		Model:   model.Specialization,
		Rounds:  s.round,
		Reason:  reason,
		Partial: partial,
	}
}
