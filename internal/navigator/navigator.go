// Package navigator owns the follow-mode navigation state: the current
// profile along a curve, step and clipping settings, and the 2D/3D mode.
// Every applied move rebuilds the camera frame and pushes a complete render
// state to the sink.
package navigator

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/camera"
	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/monitoring"
	"github.com/banshee-data/ridealong/internal/render"
)

var logf = monitoring.Component("Navigator")

// boundSnapEpsilon is the relative distance from a bound within which a
// stepped profile lands exactly on the bound.
const boundSnapEpsilon = 1e-9

// Settings are the defaults a follow session starts with.
type Settings struct {
	StepSize         float64
	AutoStepSize     bool
	ClippingDistance float64
	AutoRecenter     bool
	ShowGrid         bool
	VerticalClipping bool
	LookAtBack       float64
	LookAtHeight     float64
}

// SettingsFromConfig reads navigation settings from a tuning config.
func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		StepSize:         c.GetStepSize(),
		AutoStepSize:     c.GetAutoStepSize(),
		ClippingDistance: c.GetClippingDistance(),
		AutoRecenter:     c.GetAutoRecenter(),
		ShowGrid:         c.GetShowGrid(),
		VerticalClipping: c.GetVerticalClipping(),
		LookAtBack:       c.GetLookAtBack(),
		LookAtHeight:     c.GetLookAtHeight(),
	}
}

// DefaultSettings returns the settings of an empty config.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Empty())
}

// State is the navigation state of a follow session.
type State struct {
	Active           bool        `json:"active"`
	ObjectIDs        []string    `json:"object_ids,omitempty"`
	Bounds           curve.Range `json:"bounds"`
	Profile          float64     `json:"profile"`
	CurrentCenter    *r3.Vec     `json:"current_center,omitempty"`
	View2D           bool        `json:"view2d"`
	ShowGrid         bool        `json:"show_grid"`
	AutoRecenter     bool        `json:"auto_recenter"`
	VerticalClipping bool        `json:"vertical_clipping"`
	AutoStepSize     bool        `json:"auto_step_size"`
	ClippingDistance float64     `json:"clipping_distance"`
	StepSize         float64     `json:"step_size"`
}

func (s Settings) state() State {
	return State{
		ShowGrid:         s.ShowGrid,
		AutoRecenter:     s.AutoRecenter,
		VerticalClipping: s.VerticalClipping,
		AutoStepSize:     s.AutoStepSize,
		ClippingDistance: s.ClippingDistance,
		StepSize:         s.StepSize,
	}
}

// GoToOptions modify how GoTo places the camera.
type GoToOptions struct {
	// KeepOffset keeps the camera's offset from the previous center.
	KeepOffset bool
	// LookAt places the camera behind and above the sample.
	LookAt bool
}

// Navigator drives the camera along a resolved curve handle.
type Navigator struct {
	mu       sync.Mutex
	sink     render.Sink
	settings Settings

	handle  *curve.Handle
	state   State
	pose    *camera.Pose
	plane   *camera.ClippingPlane
	forward *r3.Vec
}

// New creates a navigator pushing to sink. A nil sink discards states.
func New(sink render.Sink, settings Settings) *Navigator {
	if sink == nil {
		sink = render.Discard
	}
	return &Navigator{sink: sink, settings: settings, state: settings.state()}
}

// SetHandle starts following h. The current center is cleared and the
// camera is placed at the start of the curve with the look-at offset.
// A nil handle ends follow mode.
func (n *Navigator) SetHandle(h *curve.Handle) bool {
	if h == nil {
		n.Exit()
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	prev := n.state
	n.handle = h
	n.state.Active = true
	n.state.ObjectIDs = append([]string(nil), h.ObjectIDs...)
	n.state.Bounds = h.Bounds
	n.state.Profile = h.Bounds.Start
	n.state.CurrentCenter = nil
	n.pose, n.plane, n.forward = nil, nil, nil

	if !n.goToLocked(h.Bounds.Start, GoToOptions{LookAt: !prev.View2D}) {
		logf("initial sample unavailable at %.3f for %v", h.Bounds.Start, h.ObjectIDs)
		return false
	}
	return true
}

// GoTo moves to profile p, clamped to the curve bounds. It reports false
// without pushing anything when no sample is available.
func (n *Navigator) GoTo(p float64, opts GoToOptions) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goToLocked(p, opts)
}

// Step moves one step forward (dir > 0) or backward (dir < 0). The result
// is clamped to the bounds; stepping never wraps.
func (n *Navigator) Step(dir int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil || dir == 0 {
		return false
	}
	step := n.state.StepSize
	if step <= 0 {
		step = 1
	}
	sign := 1.0
	if dir < 0 {
		sign = -1
	}
	next := snapToBounds(n.state.Bounds, n.state.Profile+sign*step)
	return n.goToLocked(next, GoToOptions{KeepOffset: !n.state.AutoRecenter})
}

// snapToBounds clamps p and removes accumulated float error next to a bound.
func snapToBounds(b curve.Range, p float64) float64 {
	eps := boundSnapEpsilon * math.Max(1, math.Abs(b.Span()))
	switch {
	case math.Abs(p-b.End) <= eps:
		return b.End
	case math.Abs(p-b.Start) <= eps:
		return b.Start
	}
	return b.Clamp(p)
}

func (n *Navigator) goToLocked(p float64, opts GoToOptions) bool {
	if n.handle == nil || math.IsNaN(p) {
		return false
	}
	p = n.state.Bounds.Clamp(p)
	sample, ok := n.handle.At(p)
	if !ok {
		return false
	}

	fo := camera.FrameOptions{
		VerticalClipping: n.state.VerticalClipping,
		LookAt:           opts.LookAt,
		LookAtBack:       n.settings.LookAtBack,
		LookAtHeight:     n.settings.LookAtHeight,
		View2D:           n.state.View2D,
		PreviousForward:  n.forward,
	}
	if opts.KeepOffset && n.pose != nil && n.state.CurrentCenter != nil {
		prevPos, prevCenter := n.pose.Position, *n.state.CurrentCenter
		fo.KeepOffset = true
		fo.PreviousPosition = &prevPos
		fo.PreviousCenter = &prevCenter
	}

	frame := camera.BuildFrame(sample.Position, sample.Tangent, fo)
	pose := frame.Pose(n.mode(), n.state.ClippingDistance)
	plane := camera.NewClippingPlane(frame.Tangent, sample.Position)
	center := sample.Position
	forward := frame.Tangent

	n.pose, n.plane, n.forward = &pose, &plane, &forward
	n.state.Profile = p
	n.state.CurrentCenter = &center
	n.pushLocked()
	return true
}

func (n *Navigator) mode() camera.Mode {
	if n.state.View2D {
		return camera.Orthographic
	}
	return camera.Pinhole
}

func (n *Navigator) pushLocked() {
	if n.pose == nil {
		return
	}
	st := render.State{
		Camera: *n.pose,
		Grid:   render.Grid{Enabled: n.state.View2D && n.state.ShowGrid},
	}
	if n.plane != nil {
		plane := *n.plane
		st.ClippingPlane = &plane
	}
	n.sink.Push(st)
}

// SetView2D switches between the plane-locked orthographic view and the
// perspective view. Enabling rebuilds the frame at the current profile;
// disabling only changes the projection and hides the grid.
func (n *Navigator) SetView2D(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.state.View2D = enabled
	if n.pose == nil {
		return
	}
	if enabled {
		n.goToLocked(n.state.Profile, GoToOptions{KeepOffset: !n.state.AutoRecenter})
		return
	}
	n.pose.Mode = camera.Pinhole
	n.pushLocked()
}

// PreviewClippingDistance shows d on the camera far plane without
// committing it to the navigation state.
func (n *Navigator) PreviewClippingDistance(d float64) {
	if d <= 0 || math.IsNaN(d) {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pose == nil {
		return
	}
	preview := *n.pose
	preview.Far = d
	st := render.State{Camera: preview, Grid: render.Grid{Enabled: n.state.View2D && n.state.ShowGrid}}
	if n.plane != nil {
		plane := *n.plane
		st.ClippingPlane = &plane
	}
	n.sink.Push(st)
}

// SetClippingDistance commits d. With auto step size on, the step size
// follows the clipping distance. Non-positive values are ignored.
func (n *Navigator) SetClippingDistance(d float64) bool {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.state.ClippingDistance = d
	if n.state.AutoStepSize {
		n.state.StepSize = d
	}
	if n.pose != nil {
		n.pose.Far = d
		n.pushLocked()
	}
	return true
}

// SetStepSize sets the step size. Zero leaves it unset.
func (n *Navigator) SetStepSize(s float64) {
	if s < 0 || math.IsNaN(s) {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.StepSize = s
}

// SetAutoStepSize ties the step size to the clipping distance.
func (n *Navigator) SetAutoStepSize(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.AutoStepSize = on
	if on {
		n.state.StepSize = n.state.ClippingDistance
	}
}

// SetAutoRecenter controls whether steps snap the camera onto the curve.
func (n *Navigator) SetAutoRecenter(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.AutoRecenter = on
}

// SetShowGrid controls the grid shown in the 2D view.
func (n *Navigator) SetShowGrid(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.ShowGrid = on
	if n.state.View2D {
		n.pushLocked()
	}
}

// SetVerticalClipping toggles the vertical clipping plane and rebuilds the
// frame at the current profile.
func (n *Navigator) SetVerticalClipping(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.VerticalClipping = on
	if n.pose != nil {
		n.goToLocked(n.state.Profile, GoToOptions{KeepOffset: true})
	}
}

// State returns a copy of the navigation state.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := n.state
	st.ObjectIDs = append([]string(nil), n.state.ObjectIDs...)
	if n.state.CurrentCenter != nil {
		c := *n.state.CurrentCenter
		st.CurrentCenter = &c
	}
	return st
}

// Pose returns the current camera pose.
func (n *Navigator) Pose() (camera.Pose, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pose == nil {
		return camera.Pose{}, false
	}
	return *n.pose, true
}

// ClippingPlane returns the current clipping plane.
func (n *Navigator) ClippingPlane() (camera.ClippingPlane, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.plane == nil {
		return camera.ClippingPlane{}, false
	}
	return *n.plane, true
}

// Exit leaves follow mode, discarding the session state and pushing a
// reset render state.
func (n *Navigator) Exit() {
	n.mu.Lock()
	defer n.mu.Unlock()
	wasActive := n.state.Active
	n.handle = nil
	n.pose, n.plane, n.forward = nil, nil, nil
	n.state = n.settings.state()
	if wasActive {
		n.sink.Push(render.ResetState())
	}
}
