package plot_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/plot"
)

const pageTitle = "generalization N=3"

var points = []coverage.Point{
	{Rank: 1, Size: 0.5},
	{Rank: 2, Size: 0.25},
	{Rank: 3, Size: 0},
}

var windows = coverage.Series{
	Windows: []coverage.Window{
		{K: 1, Gap: 0.5, Overlap: 0, PairOverlap: 0},
		{K: 11, Gap: 0.1, Overlap: 0.2, PairOverlap: 0.3},
	},
}

// TestRankSizeChart verifies one series per run and zero sizes dropped.
func TestRankSizeChart(t *testing.T) {
	t.Parallel()

	chart := plot.RankSizeChart(nil, "rank-size", "", []plot.RankSizeSeries{
		{Name: "run 0", Points: points},
		{Name: "run 1", Points: points[:1]},
	})

	require.Len(t, chart.MultiSeries, 2)
	assert.Equal(t, "run 0", chart.MultiSeries[0].Name)
	assert.Len(t, chart.MultiSeries[0].Data, 2)
	assert.Len(t, chart.MultiSeries[1].Data, 1)
}

// TestCoveringChart verifies the three measures with non-positive values
// dropped.
func TestCoveringChart(t *testing.T) {
	t.Parallel()

	chart := plot.CoveringChart(plot.NewChartOpts(plot.ThemeDark, plot.DefaultStyle()), "covering", "rho=2", windows)

	require.Len(t, chart.MultiSeries, 3)
	assert.Equal(t, plot.SeriesGap, chart.MultiSeries[0].Name)
	assert.Len(t, chart.MultiSeries[0].Data, 2)
	assert.Equal(t, plot.SeriesOverlap, chart.MultiSeries[1].Name)
	assert.Len(t, chart.MultiSeries[1].Data, 1)
	assert.Len(t, chart.MultiSeries[2].Data, 1)
}

// TestPage_Render verifies the page HTML carries its title and every chart.
func TestPage_Render(t *testing.T) {
	t.Parallel()

	page := plot.NewPage(pageTitle, plot.ThemeLight)
	co := page.ChartOpts()
	page.Add(
		plot.RankSizeChart(co, "rank-size", "", []plot.RankSizeSeries{{Name: "run 0", Points: points}}),
		plot.CoveringChart(co, "covering", "", windows),
	)

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	html := buf.String()
	assert.Equal(t, 2, page.Len())
	assert.Contains(t, html, pageTitle)
	assert.Contains(t, html, "rank-size")
	assert.Contains(t, html, "covering")
	assert.Contains(t, html, `"log"`)
}

// TestPage_WriteFile verifies the page is written under a new directory.
func TestPage_WriteFile(t *testing.T) {
	t.Parallel()

	page := plot.NewPage(pageTitle, plot.ThemeDark)
	page.Add(plot.CoveringChart(page.ChartOpts(), "covering", "", windows))

	path := filepath.Join(t.TempDir(), "plots", "run.html")
	require.NoError(t, page.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
}

// TestParseTheme verifies accepted names.
func TestParseTheme(t *testing.T) {
	t.Parallel()

	theme, err := plot.ParseTheme("")
	require.NoError(t, err)
	assert.Equal(t, plot.ThemeLight, theme)

	theme, err = plot.ParseTheme("dark")
	require.NoError(t, err)
	assert.Equal(t, plot.ThemeDark, theme)

	_, err = plot.ParseTheme("solarized")
	require.ErrorIs(t, err, plot.ErrUnknownTheme)
}

// TestThemeConfig_ColorWraps verifies palette colors cycle.
func TestThemeConfig_ColorWraps(t *testing.T) {
	t.Parallel()

	cfg := plot.GetThemeConfig(plot.ThemeLight)

	assert.Equal(t, cfg.Color(0), cfg.Color(len(cfg.Palette)))
	assert.NotEqual(t, plot.GetThemeConfig(plot.ThemeDark).Background, cfg.Background)
}
