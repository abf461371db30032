// Package report renders the class distribution of a ground-truth database
// as a PNG bar chart (gonum/plot) or an interactive HTML page (go-echarts).
package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gtdb/internal/fsutil"
	"github.com/banshee-data/gtdb/internal/gtdb"
)

// ClassCounts is the per-class distribution of one index, in class order.
type ClassCounts struct {
	Title   string
	Classes []string
	Counts  []int
	// MeanPoints is optional; when set it has one value per class.
	MeanPoints []float64
}

// FromIndex collects the class counts of idx.
func FromIndex(title string, idx gtdb.Index) ClassCounts {
	c := ClassCounts{Title: title}
	for _, class := range idx.Classes() {
		c.Classes = append(c.Classes, class)
		c.Counts = append(c.Counts, len(idx[class]))
	}
	return c
}

// FromStats collects class counts and mean point counts from stats.
func FromStats(title string, stats []gtdb.ClassStats) ClassCounts {
	c := ClassCounts{Title: title}
	for _, s := range stats {
		c.Classes = append(c.Classes, s.Class)
		c.Counts = append(c.Counts, s.Count)
		c.MeanPoints = append(c.MeanPoints, s.MeanPoints)
	}
	return c
}

// WritePNG renders the counts as a bar chart and writes it atomically to
// path.
func (c ClassCounts) WritePNG(fsys fsutil.FileSystem, path string) error {
	if len(c.Classes) == 0 {
		return fmt.Errorf("no classes to plot")
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.Y.Label.Text = "entries"

	values := make(plotter.Values, len(c.Counts))
	for i, n := range c.Counts {
		values[i] = float64(n)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("build bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(c.Classes...)

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "png"
	}
	width := vg.Length(len(c.Classes)) * vg.Inch
	if width < 6*vg.Inch {
		width = 6 * vg.Inch
	}
	wt, err := p.WriterTo(width, 4*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644)
}

// WriteHTML renders the counts as an interactive bar chart page.
func (c ClassCounts) WriteHTML(w io.Writer) error {
	counts := make([]opts.BarData, len(c.Counts))
	for i, n := range c.Counts {
		counts[i] = opts.BarData{Value: n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: c.Title, Subtitle: fmt.Sprintf("classes=%d entries=%d", len(c.Classes), c.total())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(c.Classes).
		AddSeries("entries", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	if len(c.MeanPoints) == len(c.Classes) && len(c.MeanPoints) > 0 {
		means := make([]opts.BarData, len(c.MeanPoints))
		for i, m := range c.MeanPoints {
			means[i] = opts.BarData{Value: m}
		}
		bar.AddSeries("mean points", means)
	}
	return bar.Render(w)
}

func (c ClassCounts) total() int {
	n := 0
	for _, v := range c.Counts {
		n += v
	}
	return n
}
