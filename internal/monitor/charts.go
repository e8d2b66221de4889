// Package monitor renders debug views of the deviation distribution: HTML
// charts via go-echarts and PNG plots via gonum/plot. The product charts
// live in the UI; these pages exist to inspect what the backend returned.
package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ridealong/internal/deviation"
)

// ProfileSeries splits profile buckets into chart series.
type ProfileSeries struct {
	Labels []string
	Min    []float64
	Avg    []float64
	Max    []float64
}

// NewProfileSeries converts buckets, labelling each by its start profile.
func NewProfileSeries(buckets []deviation.ProfileBucket) ProfileSeries {
	s := ProfileSeries{
		Labels: make([]string, len(buckets)),
		Min:    make([]float64, len(buckets)),
		Avg:    make([]float64, len(buckets)),
		Max:    make([]float64, len(buckets)),
	}
	for i, b := range buckets {
		s.Labels[i] = fmt.Sprintf("%g", b.Profile)
		s.Min[i], s.Avg[i], s.Max[i] = b.MinDistance, b.AvgDistance, b.MaxDistance
	}
	return s
}

func lineData(v []float64) []opts.LineData {
	out := make([]opts.LineData, len(v))
	for i, x := range v {
		out[i] = opts.LineData{Value: x}
	}
	return out
}

func subtitle(st deviation.State) string {
	return fmt.Sprintf("curve=%s range=[%g, %g] status=%s", st.CurveID,
		st.ParameterBounds.Start, st.ParameterBounds.End, st.Status)
}

// RenderProfile writes an HTML line chart of the min/avg/max deviation per
// profile bucket.
func RenderProfile(w io.Writer, st deviation.State) error {
	s := NewProfileSeries(st.Profile)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Deviation profile", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Deviation along the curve", Subtitle: subtitle(st)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Profile", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Deviation", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(s.Labels).
		AddSeries("min", lineData(s.Min)).
		AddSeries("avg", lineData(s.Avg)).
		AddSeries("max", lineData(s.Max))

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}

// RenderHistogram writes an HTML bar chart of the normalized histogram,
// colored by the nearest color stop.
func RenderHistogram(w io.Writer, st deviation.State, stops []deviation.ColorStop) error {
	var bars []deviation.HistogramPercent
	if lo, hi, ok := deviation.StopExtent(stops); ok {
		bars = deviation.NormalizeHistogram(st.Histogram, lo, hi)
	}

	labels := make([]string, len(bars))
	data := make([]opts.BarData, len(bars))
	for i, b := range bars {
		labels[i] = fmt.Sprintf("%.3f", b.Deviation)
		data[i] = opts.BarData{
			Value:     b.Percent,
			ItemStyle: &opts.ItemStyle{Color: NearestColor(stops, b.Deviation)},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Deviation histogram", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Deviation distribution", Subtitle: subtitle(st)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%", NameLocation: "middle", NameGap: 30}),
	)
	bar.SetXAxis(labels).AddSeries("share", data)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// NearestColor returns the color of the stop closest to v, or grey when
// there are no stops.
func NearestColor(stops []deviation.ColorStop, v float64) string {
	if len(stops) == 0 {
		return "#888888"
	}
	best := stops[0]
	for _, s := range stops[1:] {
		if abs(s.Position-v) < abs(best.Position-v) {
			best = s
		}
	}
	return best.Color
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
