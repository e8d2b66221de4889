package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/camera"
)

func poseAlongY(mode camera.Mode, far float64) camera.Pose {
	f := camera.BuildFrame(r3.Vec{}, r3.Vec{Y: 1}, camera.FrameOptions{})
	return f.Pose(mode, far)
}

func TestProject_PinholeCenter(t *testing.T) {
	pr := Projector{Viewport: DefaultViewport()}
	m, ok := pr.Project(poseAlongY(camera.Pinhole, 100), r3.Vec{Y: 10})
	require.True(t, ok)
	assert.InDelta(t, 640, m.X, 1e-9)
	assert.InDelta(t, 360, m.Y, 1e-9)
	assert.InDelta(t, 10, m.Depth, 1e-9)
	assert.True(t, m.Visible)
}

func TestProject_PinholeAxes(t *testing.T) {
	pr := Projector{Viewport: DefaultViewport()}
	pose := poseAlongY(camera.Pinhole, 100)

	// camera right is -X when looking along +Y with +Z up
	m, ok := pr.Project(pose, r3.Vec{X: -1, Y: 10, Z: 1})
	require.True(t, ok)
	assert.Greater(t, m.X, 640.0)
	assert.Less(t, m.Y, 360.0, "up is towards the top of the screen")
}

func TestProject_PinholeBehindCamera(t *testing.T) {
	pr := Projector{Viewport: DefaultViewport()}
	_, ok := pr.Project(poseAlongY(camera.Pinhole, 100), r3.Vec{Y: -5})
	assert.False(t, ok)
}

func TestProject_FarPlane(t *testing.T) {
	pr := Projector{Viewport: DefaultViewport()}
	m, ok := pr.Project(poseAlongY(camera.Pinhole, 10), r3.Vec{Y: 50})
	require.True(t, ok)
	assert.False(t, m.Visible)
}

func TestProject_Orthographic(t *testing.T) {
	pr := Projector{Viewport: Viewport{Width: 200, Height: 100, OrthoHeight: 10}}
	pose := poseAlongY(camera.Orthographic, 0)

	m, ok := pr.Project(pose, r3.Vec{Y: -3, Z: 2})
	require.True(t, ok, "orthographic projects points behind the plane")
	assert.InDelta(t, 100, m.X, 1e-9)
	assert.InDelta(t, 30, m.Y, 1e-9)
	assert.True(t, m.Visible)
}

func TestProject_DegenerateViewport(t *testing.T) {
	_, ok := Projector{}.Project(poseAlongY(camera.Pinhole, 0), r3.Vec{Y: 1})
	assert.False(t, ok)
	_, ok = Projector{Viewport: Viewport{Width: 1, Height: 1}}.Project(poseAlongY(camera.Orthographic, 0), r3.Vec{Y: 1})
	assert.False(t, ok)
}
