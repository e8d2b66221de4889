package navigator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/camera"
)

func TestSnapshot_RoundTripRestoresNavigation(t *testing.T) {
	h := lineHandle(t, 100)

	nav, _ := newNavigator(t, DefaultSettings())
	require.True(t, nav.SetHandle(h))
	nav.GoTo(37, GoToOptions{})
	nav.SetView2D(true)
	nav.SetClippingDistance(12)

	snap := nav.Snapshot()
	snap.DrawRoadIDs = []string{"road-1"}
	snap.Deviations = &Deviations{Prioritization: "max", Line: "left-edge", LineColor: "#d73027"}
	data, err := snap.Encode()
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, decoded); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	restored, _ := newNavigator(t, DefaultSettings())
	require.True(t, restored.SetHandle(h))
	require.True(t, restored.Restore(decoded))

	want, got := nav.State(), restored.State()
	assert.Equal(t, want.Profile, got.Profile)
	assert.Equal(t, want.View2D, got.View2D)
	assert.Equal(t, want.ClippingDistance, got.ClippingDistance)

	wantPose, _ := nav.Pose()
	gotPose, _ := restored.Pose()
	assert.Equal(t, camera.Orthographic, gotPose.Mode)
	assert.Equal(t, wantPose, gotPose)
}

func TestRestore_WithoutHandle(t *testing.T) {
	nav, rec := newNavigator(t, DefaultSettings())
	assert.False(t, nav.Restore(Snapshot{ProfileNumber: 3, Selected: Selection{IDs: []string{"a"}}}))
	assert.Equal(t, 0, rec.Count())
}

func TestRestore_ClampsProfile(t *testing.T) {
	nav, _ := newNavigator(t, DefaultSettings())
	require.True(t, nav.SetHandle(lineHandle(t, 50)))
	require.True(t, nav.Restore(Snapshot{ProfileNumber: 80, Selected: Selection{IDs: []string{"road-1"}}}))
	assert.Equal(t, 50.0, nav.State().Profile)
}

func TestRestoreHandle_PushesOnce(t *testing.T) {
	nav, rec := newNavigator(t, DefaultSettings())
	snap := Snapshot{ProfileNumber: 42, View2D: true, Selected: Selection{IDs: []string{"road-1"}}}
	require.True(t, nav.RestoreHandle(lineHandle(t, 100), snap))

	require.Equal(t, 1, rec.Count(), "no start-of-curve frame before the restored one")
	st, _ := rec.Last()
	assert.Equal(t, camera.Orthographic, st.Camera.Mode)
	assert.True(t, nav.State().Active)
	assert.Equal(t, 42.0, nav.State().Profile)

	assert.False(t, nav.RestoreHandle(nil, snap))
	assert.False(t, nav.State().Active)
}

func TestRestore_RederivesCenter(t *testing.T) {
	nav, _ := newNavigator(t, DefaultSettings())
	require.True(t, nav.SetHandle(lineHandle(t, 100)))
	stale := r3.Vec{X: 999, Y: 5}
	require.True(t, nav.Restore(Snapshot{
		ProfileNumber: 42,
		CurrentCenter: &stale,
		Selected:      Selection{IDs: []string{"road-1"}},
	}))

	center := nav.State().CurrentCenter
	require.NotNil(t, center)
	assert.InDelta(t, 42, center.X, 1e-9)
	assert.InDelta(t, 0, center.Y, 1e-9)
	assert.InDelta(t, 0, center.Z, 1e-9)
}

func TestFromSnapshot_IsPure(t *testing.T) {
	defaults := DefaultSettings().state()
	before := defaults
	center := r3.Vec{X: 1, Y: 2, Z: 3}

	st := FromSnapshot(Snapshot{
		ProfileNumber:    12.5,
		CurrentCenter:    &center,
		Selected:         Selection{Positions: []SelectedPosition{{ID: "p1", Position: center}}},
		View2D:           true,
		ClippingDistance: 30,
	}, defaults)

	assert.Equal(t, before, defaults)
	assert.True(t, st.Active)
	assert.Equal(t, 12.5, st.Profile)
	assert.Equal(t, []string{"p1"}, st.ObjectIDs)
	assert.True(t, st.View2D)
	assert.Equal(t, 30.0, st.ClippingDistance)
	assert.Equal(t, defaults.StepSize, st.StepSize, "unset step size keeps the default")

	center.X = 99
	assert.Equal(t, 1.0, st.CurrentCenter.X, "center is copied")
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"profileNumber":`},
		{"no selection", `{"profileNumber":1,"selected":{}}`},
		{"negative clipping", `{"profileNumber":1,"selected":{"ids":["a"]},"clippingDistance":-1}`},
		{"negative step", `{"profileNumber":1,"selected":{"ids":["a"]},"stepSize":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSelection_ObjectIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Selection{IDs: []string{"a", "b"}}.ObjectIDs())
	assert.Equal(t, []string{"x"}, Selection{Positions: []SelectedPosition{{ID: "x"}}}.ObjectIDs())
	assert.Empty(t, Selection{}.ObjectIDs())
}
