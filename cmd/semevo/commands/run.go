package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/report"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
	"github.com/Sumatoshi-tech/semevo/pkg/sweep"
	"github.com/Sumatoshi-tech/semevo/pkg/version"
)

// ErrNoOutcome is returned when a single run produced no outcome.
var ErrNoOutcome = errors.New("run produced no outcome")

// runOptions are the output flags shared by the single-run commands.
type runOptions struct {
	intervalNumb int
	maxRounds    int
	seed         uint64
	outDir       string
	plot         bool
	plotDir      string
}

func (o *runOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&o.intervalNumb, "intervals", "n", 0, "number of intervals (default from config)")
	flags.IntVar(&o.maxRounds, "max-rounds", 0, "round limit (default from config)")
	flags.Uint64Var(&o.seed, "seed", 0, "random seed (default from config)")
	flags.StringVarP(&o.outDir, "out", "o", "", "save the run record to this directory")
	flags.BoolVar(&o.plot, "plot", false, "write an HTML chart page")
	flags.StringVar(&o.plotDir, "plot-dir", "", "chart directory (default: plot.dir)")
}

// NewGeneralizeCommand creates the generalization run command.
func NewGeneralizeCommand(g *GlobalOptions) *cobra.Command {
	var (
		ro     runOptions
		delta  string
		freeze string
	)

	cmd := &cobra.Command{
		Use:   "generalize",
		Short: "Run the generalization model once",
		Long: `Run the generalization interval model once.

Zero-width intervals are placed uniformly on [0,1]. Every round each active
interval grows by delta on both sides, and for every overlapping pair one
member is frozen at random. The run ends when no interval is active.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer sess.close()

			c := sess.cfg.Generalization
			flags := cmd.Flags()

			job := sweep.Job{
				Model: model.Generalization,
				Seed:  pick(flags.Changed("seed"), ro.seed, c.Seed),
				Params: store.Params{
					IntervalNumb: pick(flags.Changed("intervals"), ro.intervalNumb, c.IntervalNumb),
					Delta:        pick(flags.Changed("delta"), delta, c.Delta),
					Freeze:       pick(flags.Changed("freeze"), freeze, c.Freeze),
					MaxRounds:    pick(flags.Changed("max-rounds"), ro.maxRounds, c.MaxRounds),
				},
			}

			return runSingle(cmd, g, sess, ro, job)
		},
	}

	ro.bind(cmd)
	cmd.Flags().StringVar(&delta, "delta", "", `growth step: "relative" (1/N) or a positive number`)
	cmd.Flags().StringVar(&freeze, "freeze", "", "freeze mode: round-end or immediate")

	return cmd
}

// NewSpecializeCommand creates the specialization run command.
func NewSpecializeCommand(g *GlobalOptions) *cobra.Command {
	var (
		ro       runOptions
		gamma    float64
		cutoff   bool
		detector string
	)

	cmd := &cobra.Command{
		Use:   "specialize",
		Short: "Run the specialization model once",
		Long: `Run the specialization interval model once.

Intervals get uniform centers and uniform lengths. While any two overlap with
a length ratio strictly between 1/gamma and gamma, the shorter one shrinks by
the overlap and the run repeats until the population is settled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer sess.close()

			c := sess.cfg.Specialization
			flags := cmd.Flags()

			job := sweep.Job{
				Model: model.Specialization,
				Seed:  pick(flags.Changed("seed"), ro.seed, c.Seed),
				Params: store.Params{
					IntervalNumb: pick(flags.Changed("intervals"), ro.intervalNumb, c.IntervalNumb),
					Gamma:        pick(flags.Changed("gamma"), gamma, c.Gamma),
					Cutoff:       pick(flags.Changed("cutoff"), cutoff, c.Cutoff),
					Detector:     pick(flags.Changed("detector"), detector, c.Detector),
					MaxRounds:    pick(flags.Changed("max-rounds"), ro.maxRounds, c.MaxRounds),
				},
			}

			return runSingle(cmd, g, sess, ro, job)
		},
	}

	ro.bind(cmd)
	cmd.Flags().Float64Var(&gamma, "gamma", 0, "length ratio tolerance, greater than 1")
	cmd.Flags().BoolVar(&cutoff, "cutoff", true, "clamp drawn intervals to [0,1]")
	cmd.Flags().StringVar(&detector, "detector", "", "overlap detector: scan or tree")

	return cmd
}

// runSingle executes one job through the sweep runner so single runs share
// tracing, metrics and storage with sweeps.
func runSingle(cmd *cobra.Command, g *GlobalOptions, sess *session, ro runOptions, job sweep.Job) error {
	err := job.Validate()
	if err != nil {
		return err
	}

	collector := &sweep.Collector{}
	sinks := []sweep.Sink{collector}

	if ro.outDir != "" {
		st, storeErr := openStore(sess.cfg.Sweep, ro.outDir)
		if storeErr != nil {
			return storeErr
		}

		sinks = append(sinks, &sweep.StoreSink{Store: st, Version: version.Version})
	}

	runner := &sweep.Runner{
		Workers:       1,
		Sink:          sweep.MultiSink(sinks...),
		Tracer:        sess.providers.Tracer,
		Metrics:       sess.runs,
		Logger:        sess.logger(),
		RoundLogEvery: sess.cfg.Logging.RoundEvery,
	}

	_, err = runner.Run(cmd.Context(), []sweep.Job{job})
	if err != nil {
		return err
	}

	outcomes := collector.Outcomes()
	if len(outcomes) == 0 {
		return ErrNoOutcome
	}

	out := outcomes[0]
	rec := out.Record(version.Version)

	formatter := report.NewFormatter(g.NoColor)
	writeStatus(sess.out, "%s", formatter.Run(rec, coverage.Summarize(out.Result.Intervals)))

	if ro.plot {
		plotErr := writeRunPlot(sess, ro.plotDir, rec)
		if plotErr != nil {
			return plotErr
		}
	}

	if out.Err != nil {
		return fmt.Errorf("%s run: %w", job.Model, out.Err)
	}

	return nil
}

func writeRunPlot(sess *session, dir string, rec *store.Record) error {
	name, err := store.Name(rec)
	if err != nil {
		return err
	}

	page, err := runPage(sess.cfg, name, rec.Result)
	if err != nil {
		return err
	}

	path := plotPath(sess.cfg, dir, name)

	err = page.WriteFile(path)
	if err != nil {
		return err
	}

	sess.logger().Info("plot written", "path", path)

	return nil
}

// pick returns the flag value when the flag was set and the configured value
// otherwise.
func pick[T any](changed bool, flagValue, configured T) T {
	if changed {
		return flagValue
	}

	return configured
}
