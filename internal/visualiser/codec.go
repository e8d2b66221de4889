package visualiser

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/ridealong/internal/camera"
	"github.com/banshee-data/ridealong/internal/render"
)

// EncodeState converts a render state to its wire form:
//
//	{camera: {position: [x,y,z], rotation: [w,x,y,z], mode, far},
//	 clipping_plane?: {normal: [x,y,z], offset}, grid: {enabled}}
func EncodeState(st render.State) (*structpb.Struct, error) {
	q := st.Camera.Rotation
	m := map[string]any{
		"camera": map[string]any{
			"position": vec(st.Camera.Position),
			"rotation": []any{q.Real, q.Imag, q.Jmag, q.Kmag},
			"mode":     st.Camera.Mode.String(),
			"far":      st.Camera.Far,
		},
		"grid": map[string]any{"enabled": st.Grid.Enabled},
	}
	if st.ClippingPlane != nil {
		m["clipping_plane"] = map[string]any{
			"normal": vec(st.ClippingPlane.Normal),
			"offset": st.ClippingPlane.Offset,
		}
	}
	return structpb.NewStruct(m)
}

func vec(v r3.Vec) []any { return []any{v.X, v.Y, v.Z} }

// DecodeState is the inverse of EncodeState.
func DecodeState(s *structpb.Struct) (render.State, error) {
	var st render.State
	fields := s.GetFields()

	cam := fields["camera"].GetStructValue().GetFields()
	if cam == nil {
		return st, fmt.Errorf("render state has no camera")
	}
	pos, err := numbers(cam["position"], 3)
	if err != nil {
		return st, fmt.Errorf("camera position: %w", err)
	}
	rot, err := numbers(cam["rotation"], 4)
	if err != nil {
		return st, fmt.Errorf("camera rotation: %w", err)
	}
	if err := st.Camera.Mode.UnmarshalText([]byte(cam["mode"].GetStringValue())); err != nil {
		return st, err
	}
	st.Camera.Position = r3.Vec{X: pos[0], Y: pos[1], Z: pos[2]}
	st.Camera.Rotation = quat.Number{Real: rot[0], Imag: rot[1], Jmag: rot[2], Kmag: rot[3]}
	st.Camera.Far = cam["far"].GetNumberValue()

	if cp := fields["clipping_plane"].GetStructValue(); cp != nil {
		n, err := numbers(cp.GetFields()["normal"], 3)
		if err != nil {
			return st, fmt.Errorf("clipping plane normal: %w", err)
		}
		st.ClippingPlane = &camera.ClippingPlane{
			Normal: r3.Vec{X: n[0], Y: n[1], Z: n[2]},
			Offset: cp.GetFields()["offset"].GetNumberValue(),
		}
	}
	st.Grid.Enabled = fields["grid"].GetStructValue().GetFields()["enabled"].GetBoolValue()
	return st, nil
}

func numbers(v *structpb.Value, n int) ([]float64, error) {
	vals := v.GetListValue().GetValues()
	if len(vals) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(vals))
	}
	out := make([]float64, n)
	for i, x := range vals {
		out[i] = x.GetNumberValue()
	}
	return out, nil
}
