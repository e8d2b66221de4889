// Package curve models the parametric objects a follow session rides along:
// a handle with parameter bounds and an evaluator returning position and
// tangent at a profile value.
package curve

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNotResolved is returned when a selection has no parametric object.
var ErrNotResolved = errors.New("curve: no parametric object for selection")

// Range is a closed parameter interval [Start, End].
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Span returns End - Start.
func (r Range) Span() float64 { return r.End - r.Start }

// Contains reports whether p lies within the range.
func (r Range) Contains(p float64) bool { return p >= r.Start && p <= r.End }

// Clamp limits p to the range.
func (r Range) Clamp(p float64) float64 {
	if p < r.Start {
		return r.Start
	}
	if p > r.End {
		return r.End
	}
	return p
}

// ClampRange limits o to lie within r. An inverted o is normalised first.
func (r Range) ClampRange(o Range) Range {
	if o.Start > o.End {
		o.Start, o.End = o.End, o.Start
	}
	return Range{Start: r.Clamp(o.Start), End: r.Clamp(o.End)}
}

// Equal reports whether both ends match exactly.
func (r Range) Equal(o Range) bool { return r.Start == o.Start && r.End == o.End }

// Valid reports whether both ends are finite and Start <= End.
func (r Range) Valid() bool {
	return !math.IsNaN(r.Start) && !math.IsNaN(r.End) &&
		!math.IsInf(r.Start, 0) && !math.IsInf(r.End, 0) && r.Start <= r.End
}

// Sample is a point on a curve with its unit tangent.
type Sample struct {
	Position r3.Vec
	Tangent  r3.Vec
}

// Evaluator evaluates a curve at a profile value. The second result is
// false when no sample exists at p.
type Evaluator interface {
	At(p float64) (Sample, bool)
}

// SampleMode selects which line of a cylindrical object is sampled.
type SampleMode int

const (
	SampleCenter SampleMode = iota
	SampleTop
	SampleBottom
)

// String returns the mode name used in requests and bookmarks.
func (m SampleMode) String() string {
	switch m {
	case SampleTop:
		return "top"
	case SampleBottom:
		return "bottom"
	default:
		return "center"
	}
}

// ParseSampleMode maps a mode name back to a SampleMode, defaulting to center.
func ParseSampleMode(s string) SampleMode {
	switch s {
	case "top":
		return SampleTop
	case "bottom":
		return SampleBottom
	default:
		return SampleCenter
	}
}

// Handle is a resolved parametric object. It is immutable; a new selection
// produces a new Handle.
type Handle struct {
	ObjectIDs []string
	Bounds    Range
	Evaluator Evaluator
}

// At evaluates the handle, returning false for a nil handle, a missing
// evaluator or a profile outside the bounds.
func (h *Handle) At(p float64) (Sample, bool) {
	if h == nil || h.Evaluator == nil || math.IsNaN(p) || !h.Bounds.Contains(p) {
		return Sample{}, false
	}
	return h.Evaluator.At(p)
}

// Service resolves scene object identifiers to a parametric handle.
type Service interface {
	Resolve(ctx context.Context, objectIDs []string, mode SampleMode) (*Handle, error)
}
