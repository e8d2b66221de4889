package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// minSegmentLength drops coincident vertices when building a polyline.
const minSegmentLength = 1e-9

// Polyline is a piecewise-linear centerline parameterised by station
// (arc length from the first vertex plus StartStation).
type Polyline struct {
	points       []r3.Vec
	cumulative   []float64 // station offset of each vertex from StartStation
	startStation float64
}

// NewPolyline builds a polyline from at least two distinct vertices.
func NewPolyline(points []r3.Vec, startStation float64) (*Polyline, error) {
	pts := make([]r3.Vec, 0, len(points))
	cum := make([]float64, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			return nil, fmt.Errorf("polyline vertex %d is NaN", len(pts))
		}
		if len(pts) == 0 {
			pts = append(pts, p)
			cum = append(cum, 0)
			continue
		}
		d := r3.Norm(r3.Sub(p, pts[len(pts)-1]))
		if d < minSegmentLength {
			continue
		}
		pts = append(pts, p)
		cum = append(cum, cum[len(cum)-1]+d)
	}
	if len(pts) < 2 {
		return nil, errors.New("polyline needs at least two distinct vertices")
	}
	return &Polyline{points: pts, cumulative: cum, startStation: startStation}, nil
}

// Length returns the total arc length.
func (pl *Polyline) Length() float64 {
	return pl.cumulative[len(pl.cumulative)-1]
}

// Bounds returns the station range covered by the polyline.
func (pl *Polyline) Bounds() Range {
	return Range{Start: pl.startStation, End: pl.startStation + pl.Length()}
}

// Points returns a copy of the vertices.
func (pl *Polyline) Points() []r3.Vec {
	out := make([]r3.Vec, len(pl.points))
	copy(out, pl.points)
	return out
}

// At returns the point and unit tangent at station p. Vertices take the
// tangent of the segment that starts there; the final vertex uses the last
// segment.
func (pl *Polyline) At(p float64) (Sample, bool) {
	if math.IsNaN(p) || !pl.Bounds().Contains(p) {
		return Sample{}, false
	}
	d := p - pl.startStation
	last := len(pl.points) - 2

	// first vertex whose cumulative distance exceeds d starts the next segment
	i := sort.Search(len(pl.cumulative), func(i int) bool { return pl.cumulative[i] > d }) - 1
	if i < 0 {
		i = 0
	}
	if i > last {
		i = last
	}

	a, b := pl.points[i], pl.points[i+1]
	segLen := pl.cumulative[i+1] - pl.cumulative[i]
	t := (d - pl.cumulative[i]) / segLen
	dir := r3.Sub(b, a)
	return Sample{
		Position: r3.Add(a, r3.Scale(t, dir)),
		Tangent:  r3.Scale(1/segLen, dir),
	}, true
}

// Join appends other after pl, continuing the station numbering. A shared
// endpoint is not duplicated.
func (pl *Polyline) Join(other *Polyline) (*Polyline, error) {
	pts := pl.Points()
	pts = append(pts, other.points...)
	return NewPolyline(pts, pl.startStation)
}

// Cylinder samples the top or bottom line of a cylindrical object whose axis
// is given by Axis.
type Cylinder struct {
	Axis   Evaluator
	Radius float64
	Mode   SampleMode
}

// At offsets the axis sample by the radius along the local vertical.
func (c Cylinder) At(p float64) (Sample, bool) {
	s, ok := c.Axis.At(p)
	if !ok || c.Mode == SampleCenter || c.Radius == 0 {
		return s, ok
	}
	up := localVertical(s.Tangent)
	sign := 1.0
	if c.Mode == SampleBottom {
		sign = -1
	}
	s.Position = r3.Add(s.Position, r3.Scale(sign*c.Radius, up))
	return s, true
}

// localVertical returns world +Z made orthogonal to t, falling back to +Y
// for vertical tangents.
func localVertical(t r3.Vec) r3.Vec {
	z := r3.Vec{Z: 1}
	v := r3.Sub(z, r3.Scale(r3.Dot(z, t), t))
	if r3.Norm(v) < 1e-6 {
		y := r3.Vec{Y: 1}
		v = r3.Sub(y, r3.Scale(r3.Dot(y, t), t))
	}
	return r3.Unit(v)
}
