package monitor

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ridealong/internal/deviation"
)

// PNG plot size.
var (
	PlotWidth  = 12 * vg.Inch
	PlotHeight = 5 * vg.Inch
)

// ProfilePlot builds a gonum plot of the min/avg/max deviation per bucket.
func ProfilePlot(st deviation.State) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Deviation along " + st.CurveID
	p.X.Label.Text = "Profile"
	p.Y.Label.Text = "Deviation"
	p.Add(plotter.NewGrid())

	if len(st.Profile) == 0 {
		return p, nil
	}
	series := []struct {
		name  string
		value func(deviation.ProfileBucket) float64
		color color.Color
	}{
		{"min", func(b deviation.ProfileBucket) float64 { return b.MinDistance }, color.RGBA{R: 33, G: 102, B: 172, A: 255}},
		{"avg", func(b deviation.ProfileBucket) float64 { return b.AvgDistance }, color.RGBA{R: 26, G: 152, B: 80, A: 255}},
		{"max", func(b deviation.ProfileBucket) float64 { return b.MaxDistance }, color.RGBA{R: 215, G: 48, B: 39, A: 255}},
	}
	for _, s := range series {
		pts := make(plotter.XYs, len(st.Profile))
		for i, b := range st.Profile {
			pts[i] = plotter.XY{X: b.Profile, Y: s.value(b)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	return p, nil
}

// HistogramPlot builds a gonum bar plot of the normalized histogram.
func HistogramPlot(st deviation.State, stops []deviation.ColorStop) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Deviation distribution " + st.CurveID
	p.Y.Label.Text = "%"

	lo, hi, ok := deviation.StopExtent(stops)
	if !ok {
		return p, nil
	}
	bars := deviation.NormalizeHistogram(st.Histogram, lo, hi)
	if len(bars) == 0 {
		return p, nil
	}

	values := make(plotter.Values, len(bars))
	names := make([]string, len(bars))
	for i, b := range bars {
		values[i] = b.Percent
		names[i] = fmt.Sprintf("%.2f", b.Deviation)
	}
	chart, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	chart.Color = ParseHexColor(NearestColor(stops, 0))
	p.Add(chart)
	p.NominalX(names...)
	return p, nil
}

// WritePNG encodes p as a PNG of the default plot size.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG saves p to path.
func SavePNG(path string, p *plot.Plot) error {
	return p.Save(PlotWidth, PlotHeight, path)
}

// ParseHexColor parses #rrggbb, returning grey for anything else.
func ParseHexColor(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.Gray{Y: 136}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.Gray{Y: 136}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
