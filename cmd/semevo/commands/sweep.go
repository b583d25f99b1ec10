package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/semevo/pkg/config"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/report"
	"github.com/Sumatoshi-tech/semevo/pkg/sweep"
	"github.com/Sumatoshi-tech/semevo/pkg/version"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

// NewSweepCommand creates the parameter sweep command.
func NewSweepCommand(g *GlobalOptions) *cobra.Command {
	var (
		workers     int
		runs        int
		outDir      string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run both models over the configured parameter grid",
		Long: `Run the models over the cartesian product of the parameter values in the
sweep section of the configuration, several runs per setting, in parallel.

Every run is saved to the record directory as
Data_GenModel_IntNum-{N}_Delta-{delta}_Run-{r} or
Data_SpecModel_IntNum-{N}_Gamma-{gamma}_Cutoff-{cutoff}_Run-{r}.

With --metrics-addr, /metrics and /healthz are served while the sweep runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = cfg.Telemetry.MetricsAddr
			}

			sess, err := newSession(cmd, g, cfg, observability.ModeSweep, metricsAddr != "")
			if err != nil {
				return err
			}
			defer sess.close()

			sc := sess.cfg.Sweep
			if cmd.Flags().Changed("workers") {
				sc.Workers = workers
			}

			if cmd.Flags().Changed("runs") {
				sc.Runs = runs
			}

			jobs, err := sweep.Plan(SweepSpec(sess.cfg, sc))
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				stop, serveErr := serveMetrics(cmd.Context(), sess, metricsAddr)
				if serveErr != nil {
					return serveErr
				}
				defer stop()
			}

			st, err := openStore(sc, outDir)
			if err != nil {
				return err
			}

			collector := &sweep.Collector{}
			runner := &sweep.Runner{
				Workers:       sc.Workers,
				Sink:          sweep.MultiSink(&sweep.StoreSink{Store: st, Version: version.Version}, collector),
				Tracer:        sess.providers.Tracer,
				Metrics:       sess.runs,
				Logger:        sess.logger(),
				RoundLogEvery: sess.cfg.Logging.RoundEvery,
			}

			summary, runErr := runner.Run(cmd.Context(), jobs)

			formatter := report.NewFormatter(g.NoColor)
			writeStatus(sess.out, "%s", formatter.Sweep(collector.Outcomes(), summary))

			if runErr != nil {
				return fmt.Errorf("sweep: %w", runErr)
			}

			sess.logger().Info("sweep records written", "dir", st.Dir(), "records", len(collector.Outcomes()))

			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel runs (default: sweep.workers, 0 = GOMAXPROCS)")
	cmd.Flags().IntVar(&runs, "runs", 0, "runs per setting (default: sweep.runs)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "record directory (default: sweep.output)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: telemetry.metrics_addr)")

	return cmd
}

// SweepSpec builds the sweep plan input from the configuration. Freeze,
// detector and round limits come from the single-run sections.
func SweepSpec(cfg *config.Config, sc config.SweepConfig) sweep.Spec {
	spec := sweep.Spec{Runs: sc.Runs, BaseSeed: sc.BaseSeed}

	if sc.Generalization.Enabled {
		spec.Generalization = &sweep.GeneralizationGrid{
			IntervalNumbs: sc.Generalization.IntervalNumbs,
			Deltas:        sc.Generalization.Deltas,
			Freeze:        cfg.Generalization.Freeze,
			MaxRounds:     cfg.Generalization.MaxRounds,
		}
	}

	if sc.Specialization.Enabled {
		spec.Specialization = &sweep.SpecializationGrid{
			IntervalNumbs: sc.Specialization.IntervalNumbs,
			Gammas:        sc.Specialization.Gammas,
			Cutoffs:       sc.Specialization.Cutoffs,
			Detector:      cfg.Specialization.Detector,
			MaxRounds:     cfg.Specialization.MaxRounds,
		}
	}

	return spec
}

// serveMetrics starts the metrics listener and returns a function that shuts
// it down.
func serveMetrics(ctx context.Context, sess *session, addr string) (func(), error) {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           observability.NewMetricsMux(sess.providers),
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			sess.logger().Error("metrics server failed", "error", serveErr)
		}
	}()

	sess.logger().Info("serving metrics", "addr", listener.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
