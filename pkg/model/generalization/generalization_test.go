package generalization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/semevo/pkg/cover"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

const (
	testSeed      = 20080519
	testN         = 60
	testStep      = 0.125
	testTinyStep  = 1e-20
	testMaxRounds = 5
)

// scripted replays a fixed draw sequence.
type scripted struct {
	draws []float64
	pos   int
}

func (s *scripted) Float64() float64 {
	v := s.draws[s.pos%len(s.draws)]
	s.pos++

	return v
}

// recorder collects round stats.
type recorder struct {
	rounds []model.RoundStats
}

func (r *recorder) ObserveRound(stats model.RoundStats) {
	r.rounds = append(r.rounds, stats)
}

// TestRun_ConservesPopulation verifies every interval ends up frozen and the
// run converges with the default relative delta.
func TestRun_ConservesPopulation(t *testing.T) {
	t.Parallel()

	for _, mode := range []FreezeMode{FreezeRoundEnd, FreezeImmediate} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			res, err := Run(context.Background(), Config{
				IntervalNumb: testN,
				Delta:        model.Relative(),
				Freeze:       mode,
			}, model.NewSource(testSeed))
			require.NoError(t, err)

			assert.True(t, res.Converged)
			assert.Len(t, res.Intervals, testN)
			assert.Len(t, res.Sizes, testN)
			assert.Positive(t, res.Rounds)

			for i, iv := range res.Intervals {
				assert.LessOrEqual(t, iv.Start, iv.End)
				assert.GreaterOrEqual(t, iv.Start, 0.0)
				assert.LessOrEqual(t, iv.End, 1.0)

				if i > 0 {
					assert.GreaterOrEqual(t, res.Sizes[i-1], res.Sizes[i])
				}
			}
		})
	}
}

// TestRun_ActiveMonotone verifies the active population never grows, shrinks
// on every round with overlaps, and frozen plus active always equals N.
func TestRun_ActiveMonotone(t *testing.T) {
	t.Parallel()

	rec := &recorder{}

	res, err := Run(context.Background(), Config{
		IntervalNumb: testN,
		Delta:        model.Relative(),
		Observer:     rec,
	}, model.NewSource(testSeed))
	require.NoError(t, err)
	require.Len(t, rec.rounds, res.Rounds)

	prevActive := testN

	for _, s := range rec.rounds {
		assert.Equal(t, model.Generalization, s.Model)
		assert.Equal(t, testN, s.Active+s.Frozen)
		assert.LessOrEqual(t, s.Active, prevActive)

		if s.Overlaps > 0 {
			assert.Less(t, s.Active, prevActive)
			assert.Positive(t, s.Resolved)
		}

		prevActive = s.Active
	}

	assert.Equal(t, 1, prevActive)
}

// TestRun_Deterministic verifies the same seed yields identical output.
func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := Config{IntervalNumb: testN, Delta: model.Relative()}

	a, err := Run(context.Background(), cfg, model.NewSource(testSeed))
	require.NoError(t, err)

	b, err := Run(context.Background(), cfg, model.NewSource(testSeed))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// TestRun_RoundEndScripted traces a three-interval run whose second round
// marks two intervals and freezes them in reverse mark order.
func TestRun_RoundEndScripted(t *testing.T) {
	t.Parallel()

	src := &scripted{draws: []float64{0.25, 0.5, 0.75, 0.1, 0.9}}

	res, err := Run(context.Background(), Config{
		IntervalNumb: 3,
		Delta:        model.Fixed(testStep),
	}, src)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, []cover.Interval{
		{Start: 0.5, End: 1},
		{Start: 0, End: 0.5},
		{Start: 0.25, End: 0.75},
	}, res.Intervals)
}

// TestRun_ImmediateScripted traces the same draws with immediate freezing:
// losing the first member promotes its successor within the sweep.
func TestRun_ImmediateScripted(t *testing.T) {
	t.Parallel()

	src := &scripted{draws: []float64{0.25, 0.5, 0.75, 0.1, 0.9}}

	res, err := Run(context.Background(), Config{
		IntervalNumb: 3,
		Delta:        model.Fixed(testStep),
		Freeze:       FreezeImmediate,
	}, src)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, []cover.Interval{
		{Start: 0, End: 0.5},
		{Start: 0.5, End: 1},
		{Start: 0.25, End: 0.75},
	}, res.Intervals)
}

// TestRun_TouchingDoesNotFreeze verifies touching intervals keep growing.
func TestRun_TouchingDoesNotFreeze(t *testing.T) {
	t.Parallel()

	src := &scripted{draws: []float64{0.25, 0.75, 0.7}}

	res, err := Run(context.Background(), Config{
		IntervalNumb: 2,
		Delta:        model.Fixed(testStep),
	}, src)
	require.NoError(t, err)

	// Round 2 leaves [0,0.5] and [0.5,1] touching; round 3 overlaps.
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, []cover.Interval{{Start: 0.375, End: 1}, {Start: 0, End: 0.625}}, res.Intervals)
}

// TestRun_SingleInterval verifies a population of one converges at once.
func TestRun_SingleInterval(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Config{IntervalNumb: 1, Delta: model.Relative()}, model.NewSource(testSeed))
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Zero(t, res.Rounds)
	require.Len(t, res.Intervals, 1)
	assert.Zero(t, res.Sizes[0])
}

// TestRun_InvalidConfig verifies validation fails before any draw.
func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero population", cfg: Config{IntervalNumb: 0, Delta: model.Relative()}},
		{name: "negative population", cfg: Config{IntervalNumb: -3, Delta: model.Relative()}},
		{name: "zero delta", cfg: Config{IntervalNumb: 10, Delta: model.Fixed(0)}},
		{name: "unknown freeze", cfg: Config{IntervalNumb: 10, Delta: model.Relative(), Freeze: "later"}},
		{name: "negative rounds", cfg: Config{IntervalNumb: 10, Delta: model.Relative(), MaxRounds: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &scripted{draws: []float64{0.5}}

			_, err := Run(context.Background(), tt.cfg, src)
			require.ErrorIs(t, err, model.ErrInvalidConfig)
			assert.Zero(t, src.pos)
		})
	}
}

// TestRun_Stagnation verifies a step too small to move any endpoint is
// reported instead of looping.
func TestRun_Stagnation(t *testing.T) {
	t.Parallel()

	src := &scripted{draws: []float64{0.25, 0.75}}

	res, err := Run(context.Background(), Config{IntervalNumb: 2, Delta: model.Fixed(testTinyStep)}, src)
	require.ErrorIs(t, err, model.ErrNotConverged)

	var nc *model.NotConvergedError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, model.ReasonStagnation, nc.Reason)
	assert.Equal(t, 1, nc.Rounds)
	assert.False(t, res.Converged)
	assert.Len(t, res.Intervals, 2)
}

// TestRun_MaxRounds verifies the explicit round limit.
func TestRun_MaxRounds(t *testing.T) {
	t.Parallel()

	src := &scripted{draws: []float64{0.125, 0.875}}

	res, err := Run(context.Background(), Config{
		IntervalNumb: 2,
		Delta:        model.Fixed(1.0 / 64),
		MaxRounds:    testMaxRounds,
	}, src)
	require.ErrorIs(t, err, model.ErrNotConverged)

	var nc *model.NotConvergedError
	require.ErrorAs(t, err, &nc)
	assert.Equal(t, model.ReasonMaxRounds, nc.Reason)
	assert.Equal(t, testMaxRounds, res.Rounds)
	assert.Equal(t, res, nc.Partial)
	assert.Len(t, res.Intervals, 2)
}

// TestRun_Cancelled verifies a cancelled context stops the run.
func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Config{IntervalNumb: testN, Delta: model.Relative()}, model.NewSource(testSeed))
	require.ErrorIs(t, err, context.Canceled)
}

// TestConfig_RoundBound verifies the automatic and explicit bounds.
func TestConfig_RoundBound(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10, Config{MaxRounds: 10}.RoundBound())
	assert.Equal(t, 10, Config{IntervalNumb: 5, Delta: model.Fixed(testStep)}.RoundBound())
	assert.InDelta(t, 500002, Config{IntervalNumb: 5000, Delta: model.Relative()}.RoundBound(), 1)
	assert.Equal(t, maxAutoRounds, Config{IntervalNumb: 2, Delta: model.Fixed(testTinyStep)}.RoundBound())
}

// TestParseFreezeMode verifies accepted names.
func TestParseFreezeMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseFreezeMode("")
	require.NoError(t, err)
	assert.Equal(t, FreezeRoundEnd, mode)

	mode, err = ParseFreezeMode("immediate")
	require.NoError(t, err)
	assert.Equal(t, FreezeImmediate, mode)

	_, err = ParseFreezeMode("eager")
	require.ErrorIs(t, err, model.ErrInvalidConfig)
}

// BenchmarkRun benchmarks a population of the size used in the paper's
// smaller experiments.
func BenchmarkRun(b *testing.B) {
	cfg := Config{IntervalNumb: 1000, Delta: model.Relative()}

	for i := range b.N {
		_, err := Run(context.Background(), cfg, model.NewSource(uint64(i)))
		if err != nil {
			b.Fatal(err)
		}
	}
}
