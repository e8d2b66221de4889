// Package camera turns curve samples into camera poses and clipping planes.
//
// Camera axes follow the row-major rigid transform convention used for
// poses elsewhere: columns are (right, up, forward) and the camera looks
// along +forward.
package camera

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode is the camera projection.
type Mode int

const (
	// Pinhole is the perspective projection used in 3D follow mode.
	Pinhole Mode = iota
	// Orthographic is the plane-locked projection used in 2D follow mode.
	Orthographic
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Orthographic {
		return "orthographic"
	}
	return "pinhole"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pinhole":
		*m = Pinhole
	case "orthographic":
		*m = Orthographic
	default:
		return fmt.Errorf("unknown camera mode %q", b)
	}
	return nil
}

// Pose is a derived camera pose. It is produced by BuildFrame and never
// edited by hand.
type Pose struct {
	Position r3.Vec      `json:"position"`
	Rotation quat.Number `json:"rotation"`
	Mode     Mode        `json:"mode"`
	Far      float64     `json:"far"`
}

// ClippingPlane keeps geometry on the far side of Normal·x = Offset.
type ClippingPlane struct {
	Normal r3.Vec  `json:"normal"`
	Offset float64 `json:"offset"`
}

// NewClippingPlane returns the plane with the given unit normal through point.
func NewClippingPlane(normal, point r3.Vec) ClippingPlane {
	return ClippingPlane{Normal: normal, Offset: r3.Dot(normal, point)}
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Axes returns the (right, up, forward) axes encoded by the pose rotation.
func (p Pose) Axes() (right, up, forward r3.Vec) {
	return Rotate(p.Rotation, r3.Vec{X: 1}), Rotate(p.Rotation, r3.Vec{Y: 1}), Rotate(p.Rotation, r3.Vec{Z: 1})
}
