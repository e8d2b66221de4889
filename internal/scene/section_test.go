package scene

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/crosssection"
	"github.com/banshee-data/ridealong/internal/curve"
)

func testCurves(t *testing.T) *curve.MemoryService {
	t.Helper()
	svc := curve.NewMemoryService()
	road, err := curve.NewPolyline([]r3.Vec{{}, {X: 100}}, 0)
	require.NoError(t, err)
	pipe, err := curve.NewPolyline([]r3.Vec{{Y: 10}, {X: 50, Y: 10}}, 0)
	require.NoError(t, err)
	svc.Add(curve.Centerline{ID: "road", Polyline: road})
	svc.Add(curve.Centerline{ID: "pipe", Polyline: pipe, Radius: 2})
	return svc
}

func TestSectioner_Road(t *testing.T) {
	s := NewSectioner(testCurves(t))
	got, err := s.CrossSections(context.Background(), []string{"road"}, 40)
	require.NoError(t, err)
	require.Len(t, got, 1)
	pts := got[0].Points
	require.Len(t, pts, 3)
	assert.InDelta(t, 40, pts[1].X, 1e-9)
	assert.InDelta(t, 10, r3.Norm(r3.Sub(pts[2], pts[0])), 1e-9)
	assert.InDelta(t, 0, pts[0].Z, 1e-9, "road sections are horizontal")
	assert.InDelta(t, 40, pts[0].X, 1e-9, "orthogonal to the road")
}

func TestSectioner_PipeRing(t *testing.T) {
	s := NewSectioner(testCurves(t))
	got, err := s.CrossSections(context.Background(), []string{"pipe", "road"}, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ring := got[0].Points
	assert.Len(t, ring, 32)
	for _, p := range ring {
		assert.InDelta(t, 2, r3.Norm(r3.Sub(p, r3.Vec{X: 20, Y: 10})), 1e-9)
	}
}

func TestSectioner_NotFound(t *testing.T) {
	s := NewSectioner(testCurves(t))
	_, err := s.CrossSections(context.Background(), []string{"pipe"}, 80)
	assert.ErrorIs(t, err, crosssection.ErrNotFound)
	_, err = s.CrossSections(context.Background(), []string{"nope"}, 1)
	assert.ErrorIs(t, err, crosssection.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.CrossSections(ctx, []string{"road"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
