// Package generalization implements the generalization model: zero-width
// random intervals grow by a fixed step every round and one member of every
// overlapping pair is frozen until a single interval remains.
package generalization

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/semevo/pkg/cover"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

// FreezeMode selects when a pair's loser leaves the active population.
type FreezeMode string

// Freeze modes.
const (
	// FreezeRoundEnd marks losers during the sweep and freezes them together
	// once the round's sweep is complete.
	FreezeRoundEnd FreezeMode = "round-end"
	// FreezeImmediate freezes a loser the moment its pair is visited; the
	// sweep continues over the reduced population.
	FreezeImmediate FreezeMode = "immediate"
)

// ParseFreezeMode parses a freeze mode name. Empty means FreezeRoundEnd.
func ParseFreezeMode(s string) (FreezeMode, error) {
	switch FreezeMode(s) {
	case "", FreezeRoundEnd:
		return FreezeRoundEnd, nil
	case FreezeImmediate:
		return FreezeImmediate, nil
	default:
		return "", fmt.Errorf("%w: unknown freeze mode %q", model.ErrInvalidConfig, s)
	}
}

// maxAutoRounds caps the automatic round bound for very small deltas.
const maxAutoRounds = math.MaxInt32

// autoRoundSlack covers the first round and the final freeze.
const autoRoundSlack = 2

// pickFirst is the draw threshold below which the first member of a pair is
// frozen.
const pickFirst = 0.5

// Config parameterises one run.
type Config struct {
	IntervalNumb int
	Delta        model.Delta
	Freeze       FreezeMode
	// MaxRounds bounds the run; 0 derives a bound from delta.
	MaxRounds int
	// Observer, when set, receives stats after every round.
	Observer model.Observer
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.IntervalNumb <= 0 {
		return fmt.Errorf("%w: interval_numb must be positive, got %d", model.ErrInvalidConfig, c.IntervalNumb)
	}

	if !c.Delta.Relative && !(c.Delta.Value > 0) {
		return fmt.Errorf("%w: delta must be positive, got %g", model.ErrInvalidConfig, c.Delta.Value)
	}

	if c.MaxRounds < 0 {
		return fmt.Errorf("%w: max_rounds must not be negative, got %d", model.ErrInvalidConfig, c.MaxRounds)
	}

	_, err := ParseFreezeMode(string(c.Freeze))

	return err
}

// RoundBound returns the round limit a run of c enforces.
func (c Config) RoundBound() int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}

	step := c.Delta.Resolve(c.IntervalNumb)
	if step <= 0 {
		return maxAutoRounds
	}

	// Two points at opposite ends of [0,1] meet after 1/(2*step) rounds.
	bound := math.Ceil(1/step) + autoRoundSlack
	if bound >= maxAutoRounds {
		return maxAutoRounds
	}

	return int(bound)
}

// Run draws a population from src and evolves it until one interval is left.
// On non-convergence the returned error is a *model.NotConvergedError and the
// returned Result holds the partial population with Converged false.
func Run(ctx context.Context, cfg Config, src model.Source) (model.Result, error) {
	err := cfg.Validate()
	if err != nil {
		return model.Result{}, err
	}

	e := newEngine(cfg, src)

	return e.run(ctx)
}

// engine owns one population. Intervals live in an arena addressed by stable
// ids; live holds the active ids in start order.
type engine struct {
	cfg    Config
	src    model.Source
	step   float64
	bound  int
	arena  []cover.Interval
	live   []int
	frozen []cover.Interval
	round  int
}

func newEngine(cfg Config, src model.Source) *engine {
	arena := make([]cover.Interval, cfg.IntervalNumb)
	for i := range arena {
		u := src.Float64()
		arena[i] = cover.Interval{Start: u, End: u}
	}

	cover.SortByStart(arena)

	live := make([]int, len(arena))
	for i := range live {
		live[i] = i
	}

	return &engine{
		cfg:    cfg,
		src:    src,
		step:   cfg.Delta.Resolve(cfg.IntervalNumb),
		bound:  cfg.RoundBound(),
		arena:  arena,
		live:   live,
		frozen: make([]cover.Interval, 0, len(arena)),
	}
}

func (e *engine) run(ctx context.Context) (model.Result, error) {
	for len(e.live) > 1 {
		err := ctx.Err()
		if err != nil {
			return model.Result{}, fmt.Errorf("generalization round %d: %w", e.round, err)
		}

		if e.round >= e.bound {
			return e.notConverged(model.ReasonMaxRounds)
		}

		e.round++

		if !e.advance() {
			return e.notConverged(model.ReasonStagnation)
		}
	}

	e.freezeRemaining()

	return model.NewResult(e.frozen, e.round, true), nil
}

// advance runs one round and reports whether the population changed.
func (e *engine) advance() bool {
	grew := e.grow()

	var overlaps, frozen int

	switch e.cfg.Freeze {
	case FreezeImmediate:
		overlaps, frozen = e.sweepImmediate()
	default:
		overlaps, frozen = e.sweepRoundEnd()
	}

	model.Notify(e.cfg.Observer, model.RoundStats{
		Model:    model.Generalization,
		Round:    e.round,
		Active:   len(e.live),
		Frozen:   len(e.frozen),
		Overlaps: overlaps,
		Resolved: frozen,
	})

	return grew || frozen > 0
}

// grow widens every active interval by the step, clamped to [0,1], and
// reports whether any endpoint moved.
func (e *engine) grow() bool {
	var grew bool

	for _, id := range e.live {
		old := e.arena[id]
		next := cover.Interval{Start: max(old.Start-e.step, 0), End: min(old.End+e.step, 1)}

		if next != old {
			grew = true
		}

		e.arena[id] = next
	}

	return grew
}

// sweepRoundEnd marks one member per overlapping pair, then freezes all marks
// in reverse mark order.
func (e *engine) sweepRoundEnd() (overlaps, frozen int) {
	pairs := cover.FindOverlaps(e.view())
	if len(pairs) == 0 {
		return 0, 0
	}

	marked := make(map[int]bool, len(pairs))
	marks := make([]int, 0, len(pairs))

	for _, p := range pairs {
		pos := p.J
		if e.src.Float64() < pickFirst {
			pos = p.I
		}

		id := e.live[pos]
		if !marked[id] {
			marked[id] = true
			marks = append(marks, id)
		}
	}

	for _, id := range slices.Backward(marks) {
		e.frozen = append(e.frozen, e.arena[id])
	}

	e.live = slices.DeleteFunc(e.live, func(id int) bool { return marked[id] })

	return len(pairs), len(marks)
}

// sweepImmediate freezes a pair's loser as soon as the pair is visited. When
// the first member loses, its successor takes its place and is compared from
// the next position.
func (e *engine) sweepImmediate() (overlaps, frozen int) {
	for i := 0; i < len(e.live)-1; i++ {
		j := i + 1

		for j < len(e.live) {
			if cover.Overlap(e.arena[e.live[i]], e.arena[e.live[j]]) <= 0 {
				break
			}

			overlaps++
			frozen++

			if e.src.Float64() < pickFirst {
				e.freezeAt(i)
				j = i + 1

				continue
			}

			e.freezeAt(j)
		}
	}

	return overlaps, frozen
}

func (e *engine) freezeAt(pos int) {
	e.frozen = append(e.frozen, e.arena[e.live[pos]])
	e.live = slices.Delete(e.live, pos, pos+1)
}

func (e *engine) freezeRemaining() {
	for _, id := range e.live {
		e.frozen = append(e.frozen, e.arena[id])
	}

	e.live = e.live[:0]
}

// view returns the active intervals in start order.
func (e *engine) view() []cover.Interval {
	out := make([]cover.Interval, len(e.live))
	for i, id := range e.live {
		out[i] = e.arena[id]
	}

	return out
}

func (e *engine) notConverged(reason string) (model.Result, error) {
	population := slices.Clone(e.frozen)
	for _, id := range e.live {
		population = append(population, e.arena[id])
	}

	partial := model.NewResult(population, e.round, false)

	return partial, &model.NotConvergedError{
		Model:   model.Generalization,
		Rounds:  e.round,
		Reason:  reason,
		Partial: partial,
	}
}
