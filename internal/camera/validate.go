package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// OrthonormalTolerance bounds the unit-length and pairwise-dot checks on a
// frame basis.
const OrthonormalTolerance = 1e-6

// MatrixValidationTolerance is the tolerance for checking rotation matrix validity.
const MatrixValidationTolerance = 0.01

// FrameValidationResult contains the result of frame validation.
type FrameValidationResult struct {
	Valid  bool
	Issues []string
}

// ValidateFrame checks that a frame has an orthonormal right-handed basis,
// a unit rotation and finite position.
func ValidateFrame(f Frame) FrameValidationResult {
	result := FrameValidationResult{Issues: make([]string, 0)}

	axes := []struct {
		name string
		v    r3.Vec
	}{{"right", f.Right}, {"up", f.Up}, {"forward", f.Forward}}
	for _, a := range axes {
		if n := r3.Norm(a.v); math.Abs(n-1) > OrthonormalTolerance || math.IsNaN(n) {
			result.Issues = append(result.Issues, fmt.Sprintf("%s axis is not unit length (|v|=%g)", a.name, n))
		}
	}
	for i := 0; i < len(axes); i++ {
		for j := i + 1; j < len(axes); j++ {
			if d := r3.Dot(axes[i].v, axes[j].v); math.Abs(d) > OrthonormalTolerance {
				result.Issues = append(result.Issues, fmt.Sprintf("%s and %s are not orthogonal (dot=%g)", axes[i].name, axes[j].name, d))
			}
		}
	}
	if n := quat.Abs(f.Rotation); math.Abs(n-1) > OrthonormalTolerance {
		result.Issues = append(result.Issues, fmt.Sprintf("rotation is not a unit quaternion (|q|=%g)", n))
	}
	if !finite(f.Position) {
		result.Issues = append(result.Issues, "position is not finite")
	}
	if len(result.Issues) == 0 && !IsValidTransformMatrix(f.Matrix()) {
		result.Issues = append(result.Issues, "invalid transform matrix (not proper rigid transform)")
	}

	result.Valid = len(result.Issues) == 0
	return result
}

// Matrix returns the camera-to-world transform in row-major order.
func (f Frame) Matrix() [16]float64 {
	return [16]float64{
		f.Right.X, f.Up.X, f.Forward.X, f.Position.X,
		f.Right.Y, f.Up.Y, f.Forward.Y, f.Position.Y,
		f.Right.Z, f.Up.Z, f.Forward.Z, f.Position.Z,
		0, 0, 0, 1,
	}
}

// IsValidTransformMatrix checks if a 4x4 matrix is a valid rigid transform.
// A valid rigid transform has:
// 1. Orthonormal rotation submatrix (det ≈ 1)
// 2. Last row is [0 0 0 1]
func IsValidTransformMatrix(T [16]float64) bool {
	r00, r01, r02 := T[0], T[1], T[2]
	r10, r11, r12 := T[4], T[5], T[6]
	r20, r21, r22 := T[8], T[9], T[10]

	// Check determinant ≈ 1 (proper rotation, not reflection)
	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}

	if T[12] != 0 || T[13] != 0 || T[14] != 0 || math.Abs(T[15]-1.0) > 0.001 {
		return false
	}

	return true
}

func finite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
