package plot

import (
	"github.com/go-echarts/go-echarts/v2/opts"
)

const axisTypeLog = "log"

// Style defines chart dimensions.
type Style struct {
	Width  string
	Height string
}

// DefaultStyle returns the default chart style.
func DefaultStyle() Style {
	return Style{Width: "100%", Height: "520px"}
}

// ChartOpts provides themed chart options.
type ChartOpts struct {
	theme ThemeConfig
	style Style
}

// NewChartOpts creates a new ChartOpts with the given theme and style.
func NewChartOpts(theme Theme, style Style) *ChartOpts {
	return &ChartOpts{theme: GetThemeConfig(theme), style: style}
}

// DefaultChartOpts returns chart options for the light theme.
func DefaultChartOpts() *ChartOpts {
	return NewChartOpts(ThemeLight, DefaultStyle())
}

// Init returns initialization options with themed background.
func (c *ChartOpts) Init() opts.Initialization {
	return opts.Initialization{
		Width:           c.style.Width,
		Height:          c.style.Height,
		BackgroundColor: c.theme.Background,
	}
}

// Title returns title options with themed text colors.
func (c *ChartOpts) Title(title, subtitle string) opts.Title {
	return opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "center",
		TitleStyle:    &opts.TextStyle{Color: c.theme.Text},
		SubtitleStyle: &opts.TextStyle{Color: c.theme.TextMuted},
	}
}

// Legend returns legend options with themed text color.
func (c *ChartOpts) Legend() opts.Legend {
	return opts.Legend{
		Show:      opts.Bool(true),
		Type:      "scroll",
		Top:       "12%",
		Left:      "center",
		TextStyle: &opts.TextStyle{Color: c.theme.TextMuted},
	}
}

// LogXAxis returns a logarithmic x-axis.
func (c *ChartOpts) LogXAxis(name string) opts.XAxis {
	return opts.XAxis{
		Name:      name,
		Type:      axisTypeLog,
		AxisLabel: &opts.AxisLabel{Color: c.theme.TextMuted},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: c.theme.Axis}},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: c.theme.Grid},
		},
	}
}

// LogYAxis returns a logarithmic y-axis.
func (c *ChartOpts) LogYAxis(name string) opts.YAxis {
	return opts.YAxis{
		Name:      name,
		Type:      axisTypeLog,
		AxisLabel: &opts.AxisLabel{Color: c.theme.TextMuted},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: c.theme.Axis}},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: c.theme.Grid},
		},
	}
}

// Grid returns grid options with standard margins.
func (c *ChartOpts) Grid() opts.Grid {
	return opts.Grid{
		Top:          "22%",
		Bottom:       "10%",
		Left:         "6%",
		Right:        "6%",
		ContainLabel: opts.Bool(true),
	}
}

// Tooltip returns tooltip options.
func (c *ChartOpts) Tooltip() opts.Tooltip {
	return opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}
}

// Color returns the palette color of the i-th series.
func (c *ChartOpts) Color(i int) string {
	return c.theme.Color(i)
}
