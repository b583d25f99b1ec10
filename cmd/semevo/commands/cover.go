package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/semevo/pkg/config"
	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/plot"
	"github.com/Sumatoshi-tech/semevo/pkg/report"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
)

const (
	coverPageName     = "cover"
	defaultCoverChart = 10
)

// ErrNoRecords is returned when the record directory holds no matching records.
var ErrNoRecords = errors.New("no run records found")

// NewCoverCommand creates the covering analysis command.
func NewCoverCommand(g *GlobalOptions) *cobra.Command {
	var (
		dir       string
		modelName string
		rho       float64
		startRank int
		step      int
		plotPage  bool
		plotDir   string
		maxCharts int
	)

	cmd := &cobra.Command{
		Use:   "cover [dir]",
		Short: "Analyze the covering of stored run records",
		Long: `Load the run records of a directory and compute, for each, the covering
of [0,1] by the windows of ranks k..rho*k of its size-ranked intervals.

Prints one row per record with the window count, covered mean and rank-size
slope. With --plot, writes a page with the rank-size distribution of every
record and the covering series of the first records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer sess.close()

			if len(args) == 1 {
				dir = args[0]
			}

			flags := cmd.Flags()
			opts := sess.cfg.Coverage.Options()
			opts.Rho = pick(flags.Changed("rho"), rho, opts.Rho)
			opts.StartRank = pick(flags.Changed("start-rank"), startRank, opts.StartRank)
			opts.Step = pick(flags.Changed("step"), step, opts.Step)

			records, err := loadRecords(sess.cfg.Sweep, dir, modelName)
			if err != nil {
				return err
			}

			rows, err := coverRows(records, opts)
			if err != nil {
				return err
			}

			formatter := report.NewFormatter(g.NoColor)
			writeStatus(sess.out, "%s", formatter.Cover(rows))

			if !plotPage {
				return nil
			}

			return writeCoverPlot(sess, plotDir, records, rows, maxCharts)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "record directory (default: sweep.output)")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "only records of this model: generalization or specialization")
	cmd.Flags().Float64Var(&rho, "rho", 0, "window ratio (default: coverage.rho)")
	cmd.Flags().IntVar(&startRank, "start-rank", 0, "first window rank (default: coverage.start_rank)")
	cmd.Flags().IntVar(&step, "step", 0, "rank step between windows (default: coverage.step)")
	cmd.Flags().BoolVar(&plotPage, "plot", false, "write an HTML chart page")
	cmd.Flags().StringVar(&plotDir, "plot-dir", "", "chart directory (default: plot.dir)")
	cmd.Flags().IntVar(&maxCharts, "max-charts", defaultCoverChart, "covering charts on the page")

	return cmd
}

func loadRecords(sc config.SweepConfig, dir, modelName string) ([]*store.Record, error) {
	st, err := openStore(sc, dir)
	if err != nil {
		return nil, err
	}

	all, err := st.LoadAll()
	if err != nil {
		return nil, err
	}

	records := make([]*store.Record, 0, len(all))

	for _, rec := range all {
		if modelName == "" || rec.Model == modelName {
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecords, st.Dir())
	}

	return records, nil
}

func coverRows(records []*store.Record, opts coverage.Options) ([]report.CoverRow, error) {
	rows := make([]report.CoverRow, 0, len(records))

	for _, rec := range records {
		name, err := store.Name(rec)
		if err != nil {
			return nil, err
		}

		series, err := coverage.Zipf(rec.Intervals, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		row := report.CoverRow{Name: name, Series: series}

		fit, fitErr := coverage.Slope(rec.Intervals)
		if fitErr == nil {
			row.Slope = fit.Slope
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func writeCoverPlot(sess *session, dir string, records []*store.Record, rows []report.CoverRow, maxCharts int) error {
	theme, err := plot.ParseTheme(sess.cfg.Plot.Theme)
	if err != nil {
		return err
	}

	page := plot.NewPage("Covering", theme)
	co := page.ChartOpts()

	series := make([]plot.RankSizeSeries, 0, len(records))
	for i, rec := range records {
		series = append(series, plot.RankSizeSeries{Name: rows[i].Name, Points: coverage.RankSize(rec.Intervals)})
	}

	page.Add(plot.RankSizeChart(co, "Rank-size distribution", fmt.Sprintf("%d records", len(records)), series))

	for _, row := range rows[:max(0, min(maxCharts, len(rows)))] {
		page.Add(plot.CoveringChart(co, "Covering", row.Name, row.Series))
	}

	path := plotPath(sess.cfg, dir, coverPageName)

	err = page.WriteFile(path)
	if err != nil {
		return err
	}

	sess.logger().Info("plot written", "path", filepath.Clean(path), "charts", page.Len())

	return nil
}
