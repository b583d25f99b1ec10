package sweep

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/semevo/pkg/store"
)

// Sink receives every outcome of a sweep. The runner never calls a sink
// concurrently.
type Sink interface {
	Accept(ctx context.Context, out Outcome) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, out Outcome) error

// Accept implements Sink.
func (f SinkFunc) Accept(ctx context.Context, out Outcome) error {
	return f(ctx, out)
}

// MultiSink passes each outcome to every sink in order, stopping at the
// first error.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, out Outcome) error {
		for _, s := range sinks {
			if s == nil {
				continue
			}

			err := s.Accept(ctx, out)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// StoreSink saves each outcome as a record.
type StoreSink struct {
	Store   *store.Store
	Version string
}

// Accept implements Sink.
func (s *StoreSink) Accept(_ context.Context, out Outcome) error {
	_, err := s.Store.Save(out.Record(s.Version))
	if err != nil {
		return fmt.Errorf("store job %d: %w", out.Job.Index, err)
	}

	return nil
}

// Collector keeps every outcome in memory.
type Collector struct {
	outcomes []Outcome
}

// Accept implements Sink.
func (c *Collector) Accept(_ context.Context, out Outcome) error {
	c.outcomes = append(c.outcomes, out)

	return nil
}

// Outcomes returns the collected outcomes ordered by job index.
func (c *Collector) Outcomes() []Outcome {
	out := slices.Clone(c.outcomes)
	slices.SortFunc(out, func(a, b Outcome) int { return a.Job.Index - b.Job.Index })

	return out
}
