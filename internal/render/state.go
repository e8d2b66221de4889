// Package render defines the render-state contract pushed to the viewport
// and the sinks that receive it.
package render

import (
	"sync"

	"gonum.org/v1/gonum/num/quat"

	"github.com/banshee-data/ridealong/internal/camera"
)

// Grid is the viewport grid overlay.
type Grid struct {
	Enabled bool `json:"enabled"`
}

// State fully specifies what the viewport looks like. Pushes are never
// partial deltas.
type State struct {
	Camera        camera.Pose           `json:"camera"`
	ClippingPlane *camera.ClippingPlane `json:"clipping_plane,omitempty"`
	Grid          Grid                  `json:"grid"`
}

// ResetState is pushed when follow mode ends: a perspective camera with the
// identity rotation, no clipping plane and no grid.
func ResetState() State {
	return State{
		Camera: camera.Pose{Rotation: quat.Number{Real: 1}, Mode: camera.Pinhole},
	}
}

// Sink receives render states. Implementations must not block the caller
// for long; later pushes supersede earlier ones.
type Sink interface {
	Push(State)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(State)

// Push calls f(s).
func (f SinkFunc) Push(s State) { f(s) }

// Discard is a Sink that drops every state.
var Discard Sink = SinkFunc(func(State) {})

// Recorder is an in-memory last-write-wins sink that also keeps every push.
type Recorder struct {
	mu      sync.Mutex
	history []State
}

// Push records s.
func (r *Recorder) Push(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, s)
}

// Last returns the latest state.
func (r *Recorder) Last() (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return State{}, false
	}
	return r.history[len(r.history)-1], true
}

// Count returns the number of pushes seen.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// History returns a copy of every recorded state in push order.
func (r *Recorder) History() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.history...)
}

// Multi pushes to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(s State) {
		for _, sink := range sinks {
			sink.Push(s)
		}
	})
}
