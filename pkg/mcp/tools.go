package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/semevo/pkg/cover"
	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
	"github.com/Sumatoshi-tech/semevo/pkg/sweep"
)

// Tool name constants.
const (
	ToolNameGeneralize = "semevo_generalize"
	ToolNameSpecialize = "semevo_specialize"
	ToolNameCover      = "semevo_cover"
)

// Input size limits.
const (
	// MaxIntervalNumb bounds the population a single tool call may simulate.
	MaxIntervalNumb = 100_000
	// MaxCoverIntervals bounds the population passed to semevo_cover.
	MaxCoverIntervals = 100_000
)

// Sentinel errors for tool input validation.
var (
	// ErrTooManyIntervals indicates a population above the tool limits.
	ErrTooManyIntervals = errors.New("too many intervals")
	// ErrNoIntervals indicates an empty semevo_cover population.
	ErrNoIntervals = errors.New("intervals parameter is required and must not be empty")
	// ErrInvalidInterval indicates an interval whose start exceeds its end.
	ErrInvalidInterval = errors.New("interval start must not exceed its end")
)

// GeneralizeInput is the input schema for the semevo_generalize tool.
type GeneralizeInput struct {
	IntervalNumb     int    `json:"interval_numb,omitempty"     jsonschema:"number of intervals (default from configuration)"`
	Delta            string `json:"delta,omitempty"             jsonschema:"growth step: relative or a positive number"`
	Freeze           string `json:"freeze,omitempty"            jsonschema:"freeze mode: round-end or immediate"`
	MaxRounds        int    `json:"max_rounds,omitempty"        jsonschema:"round limit; 0 derives one from delta"`
	Seed             uint64 `json:"seed,omitempty"              jsonschema:"random seed (default from configuration)"`
	IncludeIntervals bool   `json:"include_intervals,omitempty" jsonschema:"return the final intervals"`
}

// SpecializeInput is the input schema for the semevo_specialize tool.
type SpecializeInput struct {
	IntervalNumb     int     `json:"interval_numb,omitempty"     jsonschema:"number of intervals (default from configuration)"`
	Gamma            float64 `json:"gamma,omitempty"             jsonschema:"length ratio tolerance, greater than 1"`
	Cutoff           *bool   `json:"cutoff,omitempty"            jsonschema:"clamp drawn intervals to [0,1]"`
	Detector         string  `json:"detector,omitempty"          jsonschema:"overlap detector: scan or tree"`
	MaxRounds        int     `json:"max_rounds,omitempty"        jsonschema:"round limit"`
	Seed             uint64  `json:"seed,omitempty"              jsonschema:"random seed (default from configuration)"`
	IncludeIntervals bool    `json:"include_intervals,omitempty" jsonschema:"return the final intervals"`
}

// CoverInput is the input schema for the semevo_cover tool.
type CoverInput struct {
	Intervals []cover.Interval `json:"intervals"            jsonschema:"interval population; ranked by size before analysis"`
	Rho       float64          `json:"rho,omitempty"        jsonschema:"window ratio, greater than 1"`
	StartRank int              `json:"start_rank,omitempty" jsonschema:"first window rank"`
	Step      int              `json:"step,omitempty"       jsonschema:"rank step between windows"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// RunOutput describes one engine run.
type RunOutput struct {
	Model     string           `json:"model"`
	Params    store.Params     `json:"params"`
	Seed      uint64           `json:"seed"`
	Rounds    int              `json:"rounds"`
	Converged bool             `json:"converged"`
	Error     string           `json:"error,omitempty"`
	Summary   coverage.Summary `json:"summary"`
	Intervals []cover.Interval `json:"intervals,omitempty"`
}

// CoverOutput describes a covering analysis.
type CoverOutput struct {
	Series  coverage.Series  `json:"series"`
	Summary coverage.Summary `json:"summary"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func (s *Server) handleGeneralize(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input GeneralizeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	defaults := s.cfg.Generalization

	job := sweep.Job{
		Model: model.Generalization,
		Seed:  orDefault(input.Seed, defaults.Seed),
		Params: store.Params{
			IntervalNumb: orDefault(input.IntervalNumb, defaults.IntervalNumb),
			Delta:        orDefault(input.Delta, defaults.Delta),
			Freeze:       orDefault(input.Freeze, defaults.Freeze),
			MaxRounds:    orDefault(input.MaxRounds, defaults.MaxRounds),
		},
	}

	return runJob(ctx, job, input.IncludeIntervals)
}

func (s *Server) handleSpecialize(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SpecializeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	defaults := s.cfg.Specialization

	cutoff := defaults.Cutoff
	if input.Cutoff != nil {
		cutoff = *input.Cutoff
	}

	job := sweep.Job{
		Model: model.Specialization,
		Seed:  orDefault(input.Seed, defaults.Seed),
		Params: store.Params{
			IntervalNumb: orDefault(input.IntervalNumb, defaults.IntervalNumb),
			Gamma:        orDefault(input.Gamma, defaults.Gamma),
			Cutoff:       cutoff,
			Detector:     orDefault(input.Detector, defaults.Detector),
			MaxRounds:    orDefault(input.MaxRounds, defaults.MaxRounds),
		},
	}

	return runJob(ctx, job, input.IncludeIntervals)
}

func runJob(ctx context.Context, job sweep.Job, includeIntervals bool) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if job.Params.IntervalNumb > MaxIntervalNumb {
		return errorResult(fmt.Errorf("%w: %d (max %d)", ErrTooManyIntervals, job.Params.IntervalNumb, MaxIntervalNumb))
	}

	err := job.Validate()
	if err != nil {
		return errorResult(err)
	}

	res, err := sweep.Execute(ctx, job, nil)
	if err != nil && !errors.Is(err, model.ErrNotConverged) {
		return errorResult(err)
	}

	out := RunOutput{
		Model:     job.Model,
		Params:    job.Params,
		Seed:      job.Seed,
		Rounds:    res.Rounds,
		Converged: res.Converged,
		Summary:   coverage.Summarize(res.Intervals),
	}

	if err != nil {
		out.Error = err.Error()
	}

	if includeIntervals {
		out.Intervals = res.Intervals
	}

	return jsonResult(out)
}

func (s *Server) handleCover(
	_ context.Context, _ *mcpsdk.CallToolRequest, input CoverInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Intervals) == 0 {
		return errorResult(ErrNoIntervals)
	}

	if len(input.Intervals) > MaxCoverIntervals {
		return errorResult(fmt.Errorf("%w: %d (max %d)", ErrTooManyIntervals, len(input.Intervals), MaxCoverIntervals))
	}

	for i, iv := range input.Intervals {
		if iv.Start > iv.End {
			return errorResult(fmt.Errorf("%w: intervals[%d] = [%g, %g]", ErrInvalidInterval, i, iv.Start, iv.End))
		}
	}

	defaults := s.cfg.Coverage
	opts := coverage.Options{
		Rho:       orDefault(input.Rho, defaults.Rho),
		StartRank: orDefault(input.StartRank, defaults.StartRank),
		Step:      orDefault(input.Step, defaults.Step),
	}

	ranked := cover.Clone(input.Intervals)
	cover.SortBySizeDesc(ranked)

	series, err := coverage.Zipf(ranked, opts)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(CoverOutput{Series: series, Summary: coverage.Summarize(ranked)})
}

// orDefault returns v unless it is the zero value.
func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}

	return v
}
