package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
)

// Outcome is the result of one job.
type Outcome struct {
	Job Job
	// Result is the final population, or the partial one when Err reports
	// non-convergence.
	Result   model.Result
	Err      error
	Duration time.Duration
}

// Status classifies the outcome as ok, not_converged or error.
func (o Outcome) Status() string {
	return observability.RunStatus(o.Err)
}

// Record converts the outcome into a store record.
func (o Outcome) Record(version string) *store.Record {
	rec := &store.Record{
		Model:   o.Job.Model,
		Params:  o.Job.Params,
		Seed:    o.Job.Seed,
		Run:     o.Job.Run,
		Result:  o.Result,
		Version: version,
	}

	if o.Err != nil {
		rec.Error = o.Err.Error()
	}

	return rec
}

// Summary counts sweep outcomes.
type Summary struct {
	Jobs         int
	Converged    int
	NotConverged int
	Failed       int
	// Rounds totals the rounds of every job.
	Rounds  int
	Elapsed time.Duration
}

func (s *Summary) add(out Outcome) {
	s.Rounds += out.Result.Rounds

	switch out.Status() {
	case observability.StatusOK:
		s.Converged++
	case observability.StatusNotConverged:
		s.NotConverged++
	default:
		s.Failed++
	}
}

// Runner executes jobs on a bounded number of goroutines.
type Runner struct {
	// Workers bounds concurrency; 0 means GOMAXPROCS.
	Workers int
	Sink    Sink
	Tracer  trace.Tracer
	Metrics *observability.RunMetrics
	Logger  *slog.Logger
	// RoundLogEvery logs every n-th engine round at debug level; 0 disables
	// round logging.
	RoundLogEvery int
}

// Run executes every job. Engine failures are recorded in the outcome and
// counted; only cancellation and sink errors stop the sweep.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	tracer := r.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("sweep")
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	summary := Summary{Jobs: len(jobs)}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	logger.InfoContext(ctx, "sweep started", "jobs", len(jobs), "workers", workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			out := r.execute(gctx, tracer, logger, job)

			if errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded) {
				return out.Err
			}

			mu.Lock()
			defer mu.Unlock()

			summary.add(out)

			if r.Sink != nil {
				err := r.Sink.Accept(gctx, out)
				if err != nil {
					return err
				}
			}

			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	summary.Elapsed = time.Since(start)

	if err != nil {
		return summary, fmt.Errorf("sweep: %w", err)
	}

	logger.InfoContext(ctx, "sweep finished",
		"jobs", summary.Jobs,
		"converged", summary.Converged,
		"not_converged", summary.NotConverged,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed,
	)

	return summary, nil
}

func (r *Runner) execute(ctx context.Context, tracer trace.Tracer, logger *slog.Logger, job Job) Outcome {
	ctx = observability.WithRun(ctx, observability.RunInfo{Model: job.Model, Run: job.Run, Seed: job.Seed})

	ctx, span := tracer.Start(ctx, "sweep.job", trace.WithAttributes(
		attribute.String("model.name", job.Model),
		attribute.Int("model.interval_numb", job.Params.IntervalNumb),
		attribute.Int("sweep.index", job.Index),
		attribute.Int("sweep.run", job.Run),
		attribute.Int64("sweep.seed", int64(job.Seed)),
	))
	defer span.End()

	var observers []model.Observer

	if r.Metrics != nil {
		defer r.Metrics.TrackInflight(ctx, job.Model)()

		observers = append(observers, r.Metrics.Observer(ctx))
	}

	if r.RoundLogEvery > 0 {
		observers = append(observers, observability.RoundLogger(ctx, logger, r.RoundLogEvery))
	}

	start := time.Now()
	res, err := Execute(ctx, job, model.MultiObserver(observers...))
	out := Outcome{Job: job, Result: res, Err: err, Duration: time.Since(start)}

	status := out.Status()

	span.SetAttributes(
		attribute.Int("model.rounds", res.Rounds),
		attribute.String("sweep.status", status),
	)

	if r.Metrics != nil {
		r.Metrics.RecordRun(ctx, job.Model, status, res.Rounds, out.Duration)
	}

	switch status {
	case observability.StatusOK:
		logger.DebugContext(ctx, "job converged", "index", job.Index, "rounds", res.Rounds)
	case observability.StatusNotConverged:
		logger.WarnContext(ctx, "job did not converge", "index", job.Index, "error", err)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "job failed", "index", job.Index, "error", err)
	}

	return out
}
