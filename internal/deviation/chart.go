package deviation

import (
	"math"
	"sort"

	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/scale"
)

// ColorStop places a chart color at a deviation value.
type ColorStop struct {
	Position float64 `json:"position"`
	Color    string  `json:"color"`
}

// ColorStopsFromConfig converts configured color stops.
func ColorStopsFromConfig(c *config.Config) []ColorStop {
	cs := c.GetColorStops()
	out := make([]ColorStop, len(cs))
	for i, s := range cs {
		out[i] = ColorStop{Position: s.Position, Color: s.Color}
	}
	return out
}

// DefaultColorStops returns the diverging palette centred on zero.
func DefaultColorStops() []ColorStop {
	return ColorStopsFromConfig(config.Empty())
}

// StopExtent returns the lowest and highest stop positions.
func StopExtent(stops []ColorStop) (lo, hi float64, ok bool) {
	if len(stops) == 0 {
		return 0, 0, false
	}
	lo, hi = stops[0].Position, stops[0].Position
	for _, s := range stops[1:] {
		lo = math.Min(lo, s.Position)
		hi = math.Max(hi, s.Position)
	}
	return lo, hi, true
}

// HistogramPercent is a histogram bucket as a share of all samples.
type HistogramPercent struct {
	Deviation float64 `json:"deviation"`
	Percent   float64 `json:"percent"`
}

// ClipBounds returns the display range of the histogram for the given
// extreme color stops: the stops widened by max(0.1, 10% of their spread).
func ClipBounds(minStop, maxStop float64) (lo, hi float64) {
	pad := math.Max(0.1, 0.1*(maxStop-minStop))
	return minStop - pad, maxStop + pad
}

// NormalizeHistogram clips buckets into ClipBounds(minStop, maxStop),
// folding the mass outside into the boundary buckets, and converts counts
// to percentages of the total. The result is sorted by deviation and sums
// to 100 unless the input holds no samples, in which case it is empty.
func NormalizeHistogram(buckets []HistogramBucket, minStop, maxStop float64) []HistogramPercent {
	lo, hi := ClipBounds(minStop, maxStop)

	var total uint64
	counts := make(map[float64]uint64, len(buckets)+2)
	for _, b := range buckets {
		if b.Count == 0 || math.IsNaN(b.Deviation) {
			continue
		}
		total += b.Count
		d := b.Deviation
		switch {
		case d < lo:
			d = lo
		case d > hi:
			d = hi
		}
		counts[d] += b.Count
	}
	if total == 0 {
		return []HistogramPercent{}
	}

	out := make([]HistogramPercent, 0, len(counts))
	for d, c := range counts {
		out = append(out, HistogramPercent{Deviation: d, Percent: float64(c) / float64(total) * 100})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deviation < out[j].Deviation })
	return out
}

// GradientStop is one stop of a vertical SVG gradient, Offset in percent
// from the top.
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// GradientStops maps color stops onto a vertical gradient for a chart of
// the given pixel height whose Y scale maps deviation to pixels. Stops are
// ordered by descending deviation and a terminal stop repeats the most
// negative color so the gradient has no unfilled tail.
func GradientStops(stops []ColorStop, y scale.Linear, height float64) []GradientStop {
	if len(stops) == 0 || height <= 0 {
		return nil
	}
	sorted := append([]ColorStop(nil), stops...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	out := make([]GradientStop, 0, len(sorted)+1)
	for _, s := range sorted {
		out = append(out, GradientStop{
			Offset: 100 - (height-y.Map(s.Position))/height*100,
			Color:  s.Color,
		})
	}
	out = append(out, GradientStop{Offset: 100, Color: sorted[len(sorted)-1].Color})
	return out
}
