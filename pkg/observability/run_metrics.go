package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

const (
	metricRunsTotal       = "semevo.model.runs.total"
	metricRunDuration     = "semevo.model.run.duration.seconds"
	metricRunRounds       = "semevo.model.run.rounds"
	metricRoundsTotal     = "semevo.model.rounds.total"
	metricResolutionTotal = "semevo.model.resolutions.total"
	metricRunsInflight    = "semevo.model.runs.inflight"

	attrModel = "model"

	// StatusNotConverged marks a run stopped by its round limit or stagnation.
	StatusNotConverged = "not_converged"
)

// roundBucketBoundaries spans short specialization runs up to long
// generalization runs with small deltas.
var roundBucketBoundaries = []float64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000}

// RunMetrics holds the OTel instruments describing simulation runs.
type RunMetrics struct {
	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
	runRounds   metric.Float64Histogram
	roundsTotal metric.Int64Counter
	resolutions metric.Int64Counter
	inflight    metric.Int64UpDownCounter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:   b.counter(metricRunsTotal, "Total simulation runs", "{run}"),
		runDuration: b.histogram(metricRunDuration, "Simulation run duration in seconds", "s", durationBucketBoundaries...),
		runRounds:   b.histogram(metricRunRounds, "Rounds per simulation run", "{round}", roundBucketBoundaries...),
		roundsTotal: b.counter(metricRoundsTotal, "Total engine rounds", "{round}"),
		resolutions: b.counter(metricResolutionTotal, "Total freezes or shrinks", "{resolution}"),
		inflight:    b.upDownCounter(metricRunsInflight, "Simulation runs in progress", "{run}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records a finished run.
func (rm *RunMetrics) RecordRun(ctx context.Context, modelName, status string, rounds int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrModel, modelName),
		attribute.String(attrStatus, status),
	)

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)
	rm.runRounds.Record(ctx, float64(rounds), attrs)
}

// TrackInflight increments the in-progress gauge and returns a function to decrement it.
func (rm *RunMetrics) TrackInflight(ctx context.Context, modelName string) func() {
	attrs := metric.WithAttributes(attribute.String(attrModel, modelName))
	rm.inflight.Add(ctx, 1, attrs)

	return func() {
		rm.inflight.Add(ctx, -1, attrs)
	}
}

// Observer returns a round observer that counts rounds and resolutions.
func (rm *RunMetrics) Observer(ctx context.Context) model.Observer {
	return model.ObserverFunc(func(stats model.RoundStats) {
		attrs := metric.WithAttributes(attribute.String(attrModel, stats.Model))

		rm.roundsTotal.Add(ctx, 1, attrs)

		if stats.Resolved > 0 {
			rm.resolutions.Add(ctx, int64(stats.Resolved), attrs)
		}
	})
}

// RunStatus classifies a run error for metrics.
func RunStatus(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case isNotConverged(err):
		return StatusNotConverged
	default:
		return StatusError
	}
}

func isNotConverged(err error) bool {
	_, ok := model.PartialResult(err)

	return ok
}
