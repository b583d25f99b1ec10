// Package report formats run, sweep and covering results as terminal tables.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
	"github.com/Sumatoshi-tech/semevo/pkg/sweep"
)

const (
	floatPrecision = 4
	notAvailable   = "-"
)

// Formatter renders tables.
type Formatter struct {
	// NoColor disables status colors regardless of the terminal.
	NoColor bool
}

// NewFormatter creates a Formatter.
func NewFormatter(noColor bool) *Formatter {
	return &Formatter{NoColor: noColor}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

// Status renders a run status: green when converged, yellow when not
// converged, red on failure.
func (f *Formatter) Status(status string) string {
	if f.NoColor {
		return status
	}

	attr := color.FgRed

	switch status {
	case observability.StatusOK:
		attr = color.FgGreen
	case observability.StatusNotConverged:
		attr = color.FgYellow
	}

	return color.New(attr).Sprint(status)
}

// Setting describes the parameters that distinguish runs of a model.
func Setting(modelName string, p store.Params) string {
	switch modelName {
	case model.Generalization:
		delta := p.Delta
		if delta == "" {
			delta = model.RelativeDelta
		}

		return "delta=" + delta
	case model.Specialization:
		return fmt.Sprintf("gamma=%s cutoff=%t", strconv.FormatFloat(p.Gamma, 'g', -1, 64), p.Cutoff)
	default:
		return notAvailable
	}
}

// Run renders one run as a key/value table.
func (f *Formatter) Run(rec *store.Record, summary coverage.Summary) string {
	status := observability.StatusOK

	if rec.Error != "" {
		status = observability.StatusError
		if !rec.Converged {
			status = observability.StatusNotConverged
		}
	}

	tbl := newTable()
	tbl.AppendRows([]table.Row{
		{"model", rec.Model},
		{"intervals", humanize.Comma(int64(rec.Params.IntervalNumb))},
		{"setting", Setting(rec.Model, rec.Params)},
		{"seed", rec.Seed},
		{"rounds", humanize.Comma(int64(rec.Rounds))},
		{"status", f.Status(status)},
		{"total size", formatFloat(summary.TotalSize)},
		{"covered", formatFloat(summary.Covered)},
		{"gap", formatFloat(summary.Gap)},
		{"max size", formatFloat(summary.MaxSize)},
		{"median size", formatFloat(summary.MedianSize)},
		{"rank-size slope", formatFloat(summary.Slope)},
		{"slope r2", formatFloat(summary.R2)},
	})

	if rec.Error != "" {
		tbl.AppendRow(table.Row{"error", rec.Error})
	}

	return tbl.Render()
}

// Sweep renders one row per outcome followed by the summary line.
func (f *Formatter) Sweep(outcomes []sweep.Outcome, summary sweep.Summary) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "model", "N", "setting", "run", "seed", "rounds", "slope", "covered", "status"})

	for _, out := range outcomes {
		cs := coverage.Summarize(out.Result.Intervals)

		tbl.AppendRow(table.Row{
			out.Job.Index,
			out.Job.Model,
			humanize.Comma(int64(out.Job.Params.IntervalNumb)),
			Setting(out.Job.Model, out.Job.Params),
			out.Job.Run,
			out.Job.Seed,
			humanize.Comma(int64(out.Result.Rounds)),
			formatFloat(cs.Slope),
			formatFloat(cs.Covered),
			f.Status(out.Status()),
		})
	}

	return tbl.Render() + "\n" + SummaryLine(summary)
}

// SummaryLine condenses a sweep summary.
func SummaryLine(s sweep.Summary) string {
	return fmt.Sprintf("%s jobs: %s converged, %s not converged, %s failed, %s rounds in %s",
		humanize.Comma(int64(s.Jobs)),
		humanize.Comma(int64(s.Converged)),
		humanize.Comma(int64(s.NotConverged)),
		humanize.Comma(int64(s.Failed)),
		humanize.Comma(int64(s.Rounds)),
		s.Elapsed.Round(time.Millisecond),
	)
}

// CoverRow is one population's covering series.
type CoverRow struct {
	Name   string
	Series coverage.Series
	Slope  float64
}

// Cover renders covering statistics, one row per population.
func (f *Formatter) Cover(rows []CoverRow) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"record", "windows", "covered mean", "covered stddev", "slope"})

	for _, row := range rows {
		tbl.AppendRow(table.Row{
			row.Name,
			len(row.Series.Windows),
			formatFloat(row.Series.CoveredMean),
			formatFloat(row.Series.CoveredStdDev),
			formatFloat(row.Slope),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %s records", humanize.Comma(int64(len(rows)))), "", "", "", ""})

	return tbl.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', floatPrecision, 64)
}
