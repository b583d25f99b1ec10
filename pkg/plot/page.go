package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/components"
)

// Page collects charts rendered into one HTML document.
type Page struct {
	Title  string
	Theme  Theme
	Style  Style
	charts []components.Charter
}

// NewPage creates an empty page.
func NewPage(title string, theme Theme) *Page {
	return &Page{Title: title, Theme: theme, Style: DefaultStyle()}
}

// ChartOpts returns chart options matching the page theme and style.
func (p *Page) ChartOpts() *ChartOpts {
	return NewChartOpts(p.Theme, p.Style)
}

// Add appends charts to the page.
func (p *Page) Add(charts ...components.Charter) {
	p.charts = append(p.charts, charts...)
}

// Len returns the number of charts on the page.
func (p *Page) Len() int {
	return len(p.charts)
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = p.Title
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(p.charts...)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render page %q: %w", p.Title, err)
	}

	return nil
}

// WriteFile renders the page to path, creating parent directories.
func (p *Page) WriteFile(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	err = p.Render(f)
	if err != nil {
		_ = f.Close()

		return err
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close plot file: %w", err)
	}

	return nil
}
