// Package sweep runs the engines over the cartesian product of parameter
// values, several runs per setting, in parallel.
package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/model/generalization"
	"github.com/Sumatoshi-tech/semevo/pkg/model/specialization"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
)

// ErrEmptyPlan is returned when a sweep would run nothing.
var ErrEmptyPlan = errors.New("sweep plan is empty")

// GeneralizationGrid lists the generalization values to combine.
type GeneralizationGrid struct {
	IntervalNumbs []int
	// Deltas are "relative" or positive floats.
	Deltas    []string
	Freeze    string
	MaxRounds int
}

// SpecializationGrid lists the specialization values to combine.
type SpecializationGrid struct {
	IntervalNumbs []int
	Gammas        []float64
	Cutoffs       []bool
	Detector      string
	MaxRounds     int
}

// Spec describes a sweep.
type Spec struct {
	Generalization *GeneralizationGrid
	Specialization *SpecializationGrid
	// Runs is the number of runs per parameter setting.
	Runs int
	// BaseSeed seeds job i with BaseSeed+i.
	BaseSeed uint64
}

// Job is one engine run of a sweep.
type Job struct {
	Index  int
	Model  string
	Run    int
	Seed   uint64
	Params store.Params
}

type setting struct {
	model  string
	params store.Params
}

// Plan expands spec into jobs: generalization settings first, then
// specialization, each setting repeated Runs times. Every job's
// configuration is validated.
func Plan(spec Spec) ([]Job, error) {
	if spec.Runs < 1 {
		return nil, fmt.Errorf("%w: runs must be at least 1, got %d", model.ErrInvalidConfig, spec.Runs)
	}

	var settings []setting

	if g := spec.Generalization; g != nil {
		for _, n := range g.IntervalNumbs {
			for _, d := range g.Deltas {
				settings = append(settings, setting{model.Generalization, store.Params{
					IntervalNumb: n, Delta: d, Freeze: g.Freeze, MaxRounds: g.MaxRounds,
				}})
			}
		}
	}

	if s := spec.Specialization; s != nil {
		cutoffs := s.Cutoffs
		if len(cutoffs) == 0 {
			cutoffs = []bool{true}
		}

		for _, n := range s.IntervalNumbs {
			for _, gamma := range s.Gammas {
				for _, cutoff := range cutoffs {
					settings = append(settings, setting{model.Specialization, store.Params{
						IntervalNumb: n, Gamma: gamma, Cutoff: cutoff, Detector: s.Detector, MaxRounds: s.MaxRounds,
					}})
				}
			}
		}
	}

	if len(settings) == 0 {
		return nil, ErrEmptyPlan
	}

	jobs := make([]Job, 0, len(settings)*spec.Runs)

	for _, st := range settings {
		for run := range spec.Runs {
			job := Job{
				Index:  len(jobs),
				Model:  st.model,
				Run:    run,
				Seed:   spec.BaseSeed + uint64(len(jobs)),
				Params: st.params,
			}

			err := job.Validate()
			if err != nil {
				return nil, fmt.Errorf("job %d: %w", job.Index, err)
			}

			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

// Validate checks that the job's parameters form a valid engine configuration.
func (j Job) Validate() error {
	switch j.Model {
	case model.Generalization:
		cfg, err := GeneralizationConfig(j.Params)
		if err != nil {
			return err
		}

		return cfg.Validate()
	case model.Specialization:
		cfg, err := SpecializationConfig(j.Params)
		if err != nil {
			return err
		}

		return cfg.Validate()
	default:
		return fmt.Errorf("%w: unknown model %q", model.ErrInvalidConfig, j.Model)
	}
}

// GeneralizationConfig builds an engine configuration from stored parameters.
func GeneralizationConfig(p store.Params) (generalization.Config, error) {
	delta, err := model.ParseDelta(p.Delta)
	if err != nil {
		return generalization.Config{}, err
	}

	freeze, err := generalization.ParseFreezeMode(p.Freeze)
	if err != nil {
		return generalization.Config{}, err
	}

	return generalization.Config{
		IntervalNumb: p.IntervalNumb,
		Delta:        delta,
		Freeze:       freeze,
		MaxRounds:    p.MaxRounds,
	}, nil
}

// SpecializationConfig builds an engine configuration from stored parameters.
func SpecializationConfig(p store.Params) (specialization.Config, error) {
	detector, err := specialization.ParseDetector(p.Detector)
	if err != nil {
		return specialization.Config{}, err
	}

	return specialization.Config{
		IntervalNumb: p.IntervalNumb,
		Gamma:        p.Gamma,
		Cutoff:       p.Cutoff,
		MaxRounds:    p.MaxRounds,
		Detector:     detector,
	}, nil
}

// Execute runs one job with a fresh source seeded from the job.
func Execute(ctx context.Context, job Job, obs model.Observer) (model.Result, error) {
	src := model.NewSource(job.Seed)

	switch job.Model {
	case model.Generalization:
		cfg, err := GeneralizationConfig(job.Params)
		if err != nil {
			return model.Result{}, err
		}

		cfg.Observer = obs

		return generalization.Run(ctx, cfg, src)
	case model.Specialization:
		cfg, err := SpecializationConfig(job.Params)
		if err != nil {
			return model.Result{}, err
		}

		cfg.Observer = obs

		return specialization.Run(ctx, cfg, src)
	default:
		return model.Result{}, fmt.Errorf("%w: unknown model %q", model.ErrInvalidConfig, job.Model)
	}
}
