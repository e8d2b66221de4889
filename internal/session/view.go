package session

import (
	"github.com/banshee-data/ridealong/internal/crosssection"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation"
	"github.com/banshee-data/ridealong/internal/navigator"
	"github.com/banshee-data/ridealong/internal/scale"
	"github.com/banshee-data/ridealong/internal/scene"
)

// View is the state a UI shell renders.
type View struct {
	ID           string                `json:"id"`
	Navigation   navigator.State       `json:"navigation"`
	Selection    navigator.Selection   `json:"selection"`
	DrawRoadIDs  []string              `json:"draw_road_ids,omitempty"`
	Deviations   *navigator.Deviations `json:"deviations,omitempty"`
	TrackCamera  bool                  `json:"track_camera"`
	Marker       *scene.Marker         `json:"marker,omitempty"`
	Distribution deviation.State       `json:"distribution"`
	CrossSection *crosssection.State   `json:"cross_section,omitempty"`
	Brush        *BrushView            `json:"brush,omitempty"`
}

// BrushView places the current range on the brush widget.
type BrushView struct {
	Full  curve.Range `json:"full"`
	Range curve.Range `json:"range"`
	X0    float64     `json:"x0"`
	X1    float64     `json:"x1"`
	Width float64     `json:"width"`
}

// View returns the current state.
func (s *Session) View() View {
	v := View{
		ID:           s.id,
		Navigation:   s.nav.State(),
		Distribution: s.agg.State(),
	}
	if m, ok := s.Marker(); ok {
		v.Marker = &m
	}
	if s.cross != nil {
		cs := s.cross.State()
		v.CrossSection = &cs
	}
	if v.Distribution.CurveID != "" {
		c := s.brush()
		r := v.Distribution.ParameterBounds
		x0, x1 := c.Pixels(&r)
		v.Brush = &BrushView{Full: c.Full(), Range: r, X0: x0, X1: x1, Width: c.Scale().Range[1]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v.Selection = s.selection
	v.DrawRoadIDs = append([]string(nil), s.drawRoadIDs...)
	if s.deviations != nil {
		d := *s.deviations
		v.Deviations = &d
	}
	v.TrackCamera = s.trackCamera
	return v
}

// Navigation returns the navigation state.
func (s *Session) Navigation() navigator.State { return s.nav.State() }

// Distribution returns the distribution state.
func (s *Session) Distribution() deviation.State { return s.agg.State() }

// CrossSection returns the cross-section state.
func (s *Session) CrossSection() crosssection.State {
	if s.cross == nil {
		return crosssection.State{Sections: []crosssection.CrossSection{}}
	}
	return s.cross.State()
}

// Marker projects the current center onto the viewport.
func (s *Session) Marker() (scene.Marker, bool) {
	pose, ok := s.nav.Pose()
	if !ok {
		return scene.Marker{}, false
	}
	st := s.nav.State()
	if st.CurrentCenter == nil {
		return scene.Marker{}, false
	}
	return s.projector.Project(pose, *st.CurrentCenter)
}

// Histogram is the histogram chart of the current distribution.
type Histogram struct {
	Status   deviation.Status             `json:"status"`
	Bars     []deviation.HistogramPercent `json:"bars"`
	Gradient []deviation.GradientStop     `json:"gradient,omitempty"`
}

// Histogram normalizes the current histogram against the color stops and
// computes the legend gradient for a chart height pixels tall.
func (s *Session) Histogram(height float64) Histogram {
	st := s.agg.State()
	h := Histogram{Status: st.Status, Bars: []deviation.HistogramPercent{}}
	lo, hi, ok := deviation.StopExtent(s.stops)
	if !ok {
		return h
	}
	h.Bars = deviation.NormalizeHistogram(st.Histogram, lo, hi)
	if height > 0 {
		clipLo, clipHi := deviation.ClipBounds(lo, hi)
		y := scale.NewLinear(clipLo, clipHi, height, 0)
		h.Gradient = deviation.GradientStops(s.stops, y, height)
	}
	return h
}

// ColorStops returns the configured deviation palette.
func (s *Session) ColorStops() []deviation.ColorStop {
	return append([]deviation.ColorStop(nil), s.stops...)
}
