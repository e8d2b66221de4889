// Package scale maps between data values and pixel coordinates.
package scale

// Linear maps Domain onto Range linearly. Either interval may be reversed,
// which is how chart Y axes grow downwards.
type Linear struct {
	Domain [2]float64
	Range  [2]float64
}

// NewLinear returns a linear scale from [d0,d1] onto [r0,r1].
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{Domain: [2]float64{d0, d1}, Range: [2]float64{r0, r1}}
}

// Map converts a domain value into range space. A zero-width domain maps
// everything to the middle of the range.
func (s Linear) Map(x float64) float64 {
	dd := s.Domain[1] - s.Domain[0]
	if dd == 0 {
		return (s.Range[0] + s.Range[1]) / 2
	}
	return s.Range[0] + (x-s.Domain[0])/dd*(s.Range[1]-s.Range[0])
}

// Invert converts a range value back into domain space.
func (s Linear) Invert(y float64) float64 {
	dr := s.Range[1] - s.Range[0]
	if dr == 0 {
		return (s.Domain[0] + s.Domain[1]) / 2
	}
	return s.Domain[0] + (y-s.Range[0])/dr*(s.Domain[1]-s.Domain[0])
}
