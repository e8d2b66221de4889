// Package brush maps brush gestures on a chart axis to profile ranges.
package brush

import (
	"math"

	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/scale"
)

// Options tune the gesture correction.
type Options struct {
	// InsetPx is removed from each side of a raw selection; the brush
	// widget draws its handles this far outside the selection.
	InsetPx float64
	// SnapTolerance is the distance in profile units within which a bound
	// snaps to the edge of the full range.
	SnapTolerance float64
}

// DefaultOptions returns the default inset and snap tolerance.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Empty())
}

// OptionsFromConfig reads brush options from a tuning config.
func OptionsFromConfig(c *config.Config) Options {
	return Options{InsetPx: c.GetBrushInsetPx(), SnapTolerance: c.GetBrushSnapTolerance()}
}

// Controller converts between a profile range and brush pixels. The brush
// always spans the full effective bounds so a narrowed selection is shown
// in the context of the whole curve.
type Controller struct {
	full  curve.Range
	width float64
	opts  Options
	scale scale.Linear
}

// NewController creates a controller for a brush widthPx pixels wide.
func NewController(full curve.Range, widthPx float64, opts Options) *Controller {
	return &Controller{
		full:  full,
		width: widthPx,
		opts:  opts,
		scale: scale.NewLinear(full.Start, full.End, 0, widthPx),
	}
}

// Full returns the range the brush spans.
func (c *Controller) Full() curve.Range { return c.full }

// Scale returns the profile to pixel scale.
func (c *Controller) Scale() scale.Linear { return c.scale }

// Pixels returns the pixel extent of r, or of the full range when r is nil.
func (c *Controller) Pixels(r *curve.Range) (x0, x1 float64) {
	sel := c.full
	if r != nil {
		sel = c.full.ClampRange(*r)
	}
	return c.scale.Map(sel.Start), c.scale.Map(sel.End)
}

// End converts the raw pixel bounds of a finished gesture into an
// integer-aligned profile range inside the full bounds. It reports false
// for a selection that is empty after inset correction.
func (c *Controller) End(x0, x1 float64) (curve.Range, bool) {
	if math.IsNaN(x0) || math.IsNaN(x1) {
		return curve.Range{}, false
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 += c.opts.InsetPx
	x1 -= c.opts.InsetPx
	if x1 <= x0 {
		return curve.Range{}, false
	}

	a, b := c.scale.Invert(x0), c.scale.Invert(x1)
	if a-c.full.Start <= c.opts.SnapTolerance {
		a = c.full.Start
	}
	if c.full.End-b <= c.opts.SnapTolerance {
		b = c.full.End
	}
	r := c.full.ClampRange(curve.Range{Start: a, End: b})
	r = c.full.ClampRange(curve.Range{Start: math.Floor(r.Start), End: math.Ceil(r.End)})
	if r.End <= r.Start {
		return curve.Range{}, false
	}
	return r, true
}

// IsFull reports whether r selects the whole brush range.
func (c *Controller) IsFull(r curve.Range) bool {
	return r.Equal(c.full)
}
