// Package plot renders interval populations as log-log HTML charts.
package plot

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
)

const symbolSize = 4

// RankSizeSeries is one named rank-size series, such as one run.
type RankSizeSeries struct {
	Name   string
	Points []coverage.Point
}

// RankSizeChart plots size against rank on log-log axes. Zero sizes cannot
// be placed on a log axis and are left out.
func RankSizeChart(co *ChartOpts, title, subtitle string, series []RankSizeSeries) *charts.Scatter {
	if co == nil {
		co = DefaultChartOpts()
	}

	chart := charts.NewScatter()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init()),
		charts.WithTitleOpts(co.Title(title, subtitle)),
		charts.WithLegendOpts(co.Legend()),
		charts.WithTooltipOpts(co.Tooltip()),
		charts.WithGridOpts(co.Grid()),
		charts.WithXAxisOpts(co.LogXAxis("rank")),
		charts.WithYAxisOpts(co.LogYAxis("size")),
	)

	for i, s := range series {
		data := make([]opts.ScatterData, 0, len(s.Points))

		for _, p := range s.Points {
			if p.Size <= 0 {
				continue
			}

			data = append(data, opts.ScatterData{Value: []float64{float64(p.Rank), p.Size}, SymbolSize: symbolSize})
		}

		chart.AddSeries(s.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: co.Color(i)}))
	}

	return chart
}

// Covering series names.
const (
	SeriesGap         = "gap"
	SeriesOverlap     = "overlap"
	SeriesPairOverlap = "pair overlap"
)

// CoveringChart plots the gap and overlap of each covering window against
// its starting rank on log-log axes.
func CoveringChart(co *ChartOpts, title, subtitle string, series coverage.Series) *charts.Line {
	if co == nil {
		co = DefaultChartOpts()
	}

	chart := charts.NewLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(co.Init()),
		charts.WithTitleOpts(co.Title(title, subtitle)),
		charts.WithLegendOpts(co.Legend()),
		charts.WithTooltipOpts(co.Tooltip()),
		charts.WithGridOpts(co.Grid()),
		charts.WithXAxisOpts(co.LogXAxis("k")),
		charts.WithYAxisOpts(co.LogYAxis("length")),
	)

	measures := []struct {
		name  string
		value func(coverage.Window) float64
	}{
		{SeriesGap, func(w coverage.Window) float64 { return w.Gap }},
		{SeriesOverlap, func(w coverage.Window) float64 { return w.Overlap }},
		{SeriesPairOverlap, func(w coverage.Window) float64 { return w.PairOverlap }},
	}

	for i, m := range measures {
		data := make([]opts.LineData, 0, len(series.Windows))

		for _, w := range series.Windows {
			v := m.value(w)
			if v <= 0 {
				continue
			}

			data = append(data, opts.LineData{Value: []float64{float64(w.K), v}})
		}

		chart.AddSeries(m.name, data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: co.Color(i)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: co.Color(i)}),
		)
	}

	return chart
}
