// Package scene projects world points into viewport coordinates for the
// current camera pose.
package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/camera"
)

// nearPlane is the smallest camera depth a pinhole projection accepts.
const nearPlane = 1e-6

// Viewport describes the screen a pose is projected onto.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// FovY is the vertical field of view of the pinhole camera, in radians.
	FovY float64 `json:"fov_y"`
	// OrthoHeight is the world height visible in the orthographic view.
	OrthoHeight float64 `json:"ortho_height"`
}

// DefaultViewport is a 1280x720 screen with a 60° field of view.
func DefaultViewport() Viewport {
	return Viewport{Width: 1280, Height: 720, FovY: math.Pi / 3, OrthoHeight: 20}
}

// Marker is a projected point. X grows right and Y grows down from the top
// left corner.
type Marker struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Depth   float64 `json:"depth"`
	Visible bool    `json:"visible"`
}

// Projector maps world points to screen markers.
type Projector struct {
	Viewport Viewport
}

// Project maps p through pose. It returns false when the point cannot be
// projected (behind a pinhole camera or a degenerate viewport); Visible
// reports whether a projected point lands on screen within the far plane.
func (pr Projector) Project(pose camera.Pose, p r3.Vec) (Marker, bool) {
	vp := pr.Viewport
	if !(vp.Width > 0 && vp.Height > 0) {
		return Marker{}, false
	}

	right, up, forward := pose.Axes()
	d := r3.Sub(p, pose.Position)
	xc, yc, zc := r3.Dot(d, right), r3.Dot(d, up), r3.Dot(d, forward)

	var sx, sy float64
	switch pose.Mode {
	case camera.Orthographic:
		if !(vp.OrthoHeight > 0) {
			return Marker{}, false
		}
		s := vp.Height / vp.OrthoHeight
		sx = vp.Width/2 + xc*s
		sy = vp.Height/2 - yc*s
	default:
		if zc <= nearPlane || !(vp.FovY > 0 && vp.FovY < math.Pi) {
			return Marker{}, false
		}
		f := (vp.Height / 2) / math.Tan(vp.FovY/2)
		sx = vp.Width/2 + f*xc/zc
		sy = vp.Height/2 - f*yc/zc
	}

	m := Marker{X: sx, Y: sy, Depth: zc}
	m.Visible = sx >= 0 && sx <= vp.Width && sy >= 0 && sy <= vp.Height
	if pose.Far > 0 && math.Abs(zc) > pose.Far {
		m.Visible = false
	}
	return m, true
}
