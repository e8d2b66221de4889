package scene

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/camera"
	"github.com/banshee-data/ridealong/internal/crosssection"
	"github.com/banshee-data/ridealong/internal/curve"
)

// Sectioner cuts registered centerlines with the plane orthogonal to the
// curve at a profile. Roads yield a horizontal segment of HalfWidth on each
// side; objects with a radius yield a ring of Segments points.
type Sectioner struct {
	Curves    *curve.MemoryService
	HalfWidth float64
	Segments  int
}

// NewSectioner returns a sectioner with a 5 m half width and 32-point rings.
func NewSectioner(curves *curve.MemoryService) *Sectioner {
	return &Sectioner{Curves: curves, HalfWidth: 5, Segments: 32}
}

// CrossSections implements crosssection.Backend.
func (s *Sectioner) CrossSections(ctx context.Context, roadIDs []string, profile float64) ([]crosssection.CrossSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []crosssection.CrossSection
	for _, id := range roadIDs {
		c, ok := s.Curves.Centerline(id)
		if !ok {
			continue
		}
		sample, ok := c.Polyline.At(profile)
		if !ok {
			continue
		}
		f := camera.BuildFrame(sample.Position, sample.Tangent, camera.FrameOptions{})
		out = append(out, crosssection.CrossSection{
			RoadID:  id,
			Profile: profile,
			Points:  s.slice(sample.Position, f.Right, f.Up, c.Radius),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no road of %v at %.3f: %w", roadIDs, profile, crosssection.ErrNotFound)
	}
	return out, nil
}

func (s *Sectioner) slice(center, right, up r3.Vec, radius float64) []r3.Vec {
	if radius <= 0 {
		return []r3.Vec{
			r3.Add(center, r3.Scale(-s.HalfWidth, right)),
			center,
			r3.Add(center, r3.Scale(s.HalfWidth, right)),
		}
	}
	n := s.Segments
	if n < 3 {
		n = 3
	}
	pts := make([]r3.Vec, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		off := r3.Add(r3.Scale(radius*math.Cos(a), right), r3.Scale(radius*math.Sin(a), up))
		pts = append(pts, r3.Add(center, off))
	}
	return pts
}
