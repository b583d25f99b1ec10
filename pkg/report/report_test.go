package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/semevo/pkg/cover"
	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
	"github.com/Sumatoshi-tech/semevo/pkg/sweep"
)

var errBoom = errors.New("boom")

var population = []cover.Interval{{Start: 0, End: 0.5}, {Start: 0.5, End: 0.75}}

// TestStatus_Plain verifies NoColor leaves the status untouched.
func TestStatus_Plain(t *testing.T) {
	t.Parallel()

	f := NewFormatter(true)

	assert.Equal(t, observability.StatusOK, f.Status(observability.StatusOK))
	assert.Equal(t, observability.StatusError, f.Status(observability.StatusError))
}

// TestSetting verifies the per-model parameter label.
func TestSetting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "delta=relative", Setting(model.Generalization, store.Params{}))
	assert.Equal(t, "delta=0.001", Setting(model.Generalization, store.Params{Delta: "0.001"}))
	assert.Equal(t, "gamma=1.5 cutoff=true", Setting(model.Specialization, store.Params{Gamma: 1.5, Cutoff: true}))
	assert.Equal(t, notAvailable, Setting("other", store.Params{}))
}

// TestRun verifies the key/value table of one record.
func TestRun(t *testing.T) {
	t.Parallel()

	rec := &store.Record{
		Model:  model.Specialization,
		Params: store.Params{IntervalNumb: 12000, Gamma: 2},
		Seed:   7,
		Result: model.Result{Intervals: population, Rounds: 1500},
		Error:  "round limit reached",
	}

	out := NewFormatter(true).Run(rec, coverage.Summarize(population))

	assert.Contains(t, out, model.Specialization)
	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, observability.StatusNotConverged)
	assert.Contains(t, out, "0.7500")
	assert.Contains(t, out, "round limit reached")
}

// TestSweep verifies a row per outcome and the summary footer.
func TestSweep(t *testing.T) {
	t.Parallel()

	outcomes := []sweep.Outcome{
		{
			Job:    sweep.Job{Index: 0, Model: model.Generalization, Params: store.Params{IntervalNumb: 2, Delta: "relative"}},
			Result: model.Result{Intervals: population, Rounds: 3, Converged: true},
		},
		{
			Job: sweep.Job{Index: 1, Model: model.Specialization, Params: store.Params{IntervalNumb: 2, Gamma: 2}},
			Err: errBoom,
		},
	}

	summary := sweep.Summary{Jobs: 2, Converged: 1, Failed: 1, Rounds: 3, Elapsed: 1500 * time.Millisecond}

	out := NewFormatter(true).Sweep(outcomes, summary)

	assert.Contains(t, out, "delta=relative")
	assert.Contains(t, out, "gamma=2 cutoff=false")
	assert.Contains(t, out, observability.StatusOK)
	assert.Contains(t, out, observability.StatusError)
	assert.Contains(t, out, "2 jobs: 1 converged, 0 not converged, 1 failed, 3 rounds in 1.5s")
}

// TestCover verifies covering rows and the total footer.
func TestCover(t *testing.T) {
	t.Parallel()

	out := NewFormatter(true).Cover([]CoverRow{
		{Name: "Data_GenModel_IntNum-2_Delta-relative_Run-0", Series: coverage.Series{CoveredMean: 0.5}, Slope: -1},
	})

	assert.Contains(t, out, "Data_GenModel_IntNum-2_Delta-relative_Run-0")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "-1.0000")
	assert.Contains(t, out, "Total: 1 records")
}
