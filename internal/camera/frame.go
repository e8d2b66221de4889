package camera

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DegeneracyEpsilon is the |dot| margin below 1 at which an up hint is
// treated as parallel to the view direction.
const DegeneracyEpsilon = 1e-6

var (
	worldX = r3.Vec{X: 1}
	worldY = r3.Vec{Y: 1}
	worldZ = r3.Vec{Z: 1}
)

// FrameOptions controls how BuildFrame places the camera.
type FrameOptions struct {
	// Up is the up hint. The zero vector selects world +Z.
	Up r3.Vec

	// VerticalClipping forces a vertical up axis and a horizontal view
	// direction so the clipping plane stays vertical.
	VerticalClipping bool

	// LookAt places the camera LookAtBack behind and LookAtHeight above the
	// sample and aims it at the sample. Used on first entry to follow mode.
	LookAt       bool
	LookAtBack   float64
	LookAtHeight float64

	// KeepOffset preserves the vector from PreviousCenter to
	// PreviousPosition instead of snapping onto the sample.
	KeepOffset       bool
	PreviousPosition *r3.Vec
	PreviousCenter   *r3.Vec

	// PreviousForward is used when a vertical tangent leaves no horizontal
	// direction under VerticalClipping.
	PreviousForward *r3.Vec

	// View2D projects a kept offset onto the plane normal to the tangent.
	View2D bool
}

// Frame is the camera basis and position computed for one sample.
type Frame struct {
	Right    r3.Vec
	Up       r3.Vec
	Forward  r3.Vec
	Rotation quat.Number
	Position r3.Vec
	// Tangent is the effective curve direction, used as the clipping normal.
	Tangent r3.Vec
}

// BuildFrame computes the camera frame for a curve sample. The returned
// axes are always orthonormal, including for tangents parallel to the up
// hint.
func BuildFrame(position, tangent r3.Vec, opts FrameOptions) Frame {
	t := unitOr(tangent, worldY)

	hint := opts.Up
	if opts.VerticalClipping {
		hint = worldZ
		t = horizontalDirection(t, opts.PreviousForward)
	}

	f := Frame{Tangent: t, Position: position}
	forward := t

	switch {
	case opts.LookAt:
		up := chooseUp(t, hint)
		_, up = orthoBasis(t, up)
		f.Position = r3.Add(r3.Sub(position, r3.Scale(opts.LookAtBack, t)), r3.Scale(opts.LookAtHeight, up))
		forward = unitOr(r3.Sub(position, f.Position), t)
	case opts.KeepOffset && opts.PreviousPosition != nil && opts.PreviousCenter != nil:
		offset := r3.Sub(*opts.PreviousPosition, *opts.PreviousCenter)
		if opts.View2D {
			offset = r3.Sub(offset, r3.Scale(r3.Dot(offset, t), t))
		}
		f.Position = r3.Add(position, offset)
	}

	f.Forward = forward
	f.Right, f.Up = orthoBasis(forward, chooseUp(forward, hint))
	f.Rotation = quatFromBasis(f.Right, f.Up, f.Forward)
	return f
}

// Pose converts the frame into a camera pose.
func (f Frame) Pose(mode Mode, far float64) Pose {
	return Pose{Position: f.Position, Rotation: f.Rotation, Mode: mode, Far: far}
}

// orthoBasis returns right = unit(up × forward) and the recomputed up =
// forward × right.
func orthoBasis(forward, up r3.Vec) (right, trueUp r3.Vec) {
	right = r3.Unit(r3.Cross(up, forward))
	trueUp = r3.Cross(forward, right)
	return right, trueUp
}

// chooseUp returns the first of hint, +Z, +Y, +X that is not parallel to d.
func chooseUp(d, hint r3.Vec) r3.Vec {
	candidates := []r3.Vec{worldZ, worldY, worldX}
	if r3.Norm(hint) > 0 {
		candidates = append([]r3.Vec{r3.Unit(hint)}, candidates...)
	}
	for _, c := range candidates {
		if math.Abs(r3.Dot(d, c)) <= 1-DegeneracyEpsilon {
			return c
		}
	}
	return worldX
}

// horizontalDirection recomputes the view direction in the horizontal
// plane: right = Z × t, dir = right × Z. The sign follows the sampled
// tangent. A vertical tangent reuses the previous forward, or +Y.
func horizontalDirection(t r3.Vec, previous *r3.Vec) r3.Vec {
	right := r3.Cross(worldZ, t)
	if r3.Norm(right) < DegeneracyEpsilon {
		if previous != nil {
			h := r3.Vec{X: previous.X, Y: previous.Y}
			if r3.Norm(h) >= DegeneracyEpsilon {
				return r3.Unit(h)
			}
		}
		return worldY
	}
	dir := r3.Unit(r3.Cross(r3.Unit(right), worldZ))
	if r3.Dot(dir, t) < 0 {
		dir = r3.Scale(-1, dir)
	}
	return dir
}

func unitOr(v, fallback r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return r3.Scale(1/n, v)
}

// quatFromBasis converts the rotation matrix with columns (right, up,
// forward) into a unit quaternion with non-negative real part.
func quatFromBasis(right, up, forward r3.Vec) quat.Number {
	m00, m01, m02 := right.X, up.X, forward.X
	m10, m11, m12 := right.Y, up.Y, forward.Y
	m20, m21, m22 := right.Z, up.Z, forward.Z

	var q quat.Number
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}

	q = quat.Scale(1/quat.Abs(q), q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}
