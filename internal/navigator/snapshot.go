package navigator

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/curve"
)

// SelectedPosition is a picked object with the scene position it was
// picked at.
type SelectedPosition struct {
	ID       string `json:"id"`
	Position r3.Vec `json:"pos"`
}

// Selection is either a list of object ids or a list of picked positions.
type Selection struct {
	IDs       []string           `json:"ids,omitempty"`
	Positions []SelectedPosition `json:"positions,omitempty"`
}

// ObjectIDs returns the selected ids, taken from Positions when IDs is empty.
func (s Selection) ObjectIDs() []string {
	if len(s.IDs) > 0 {
		return append([]string(nil), s.IDs...)
	}
	ids := make([]string, 0, len(s.Positions))
	for _, p := range s.Positions {
		ids = append(ids, p.ID)
	}
	return ids
}

// Deviations are the deviation overlay settings saved with a bookmark.
type Deviations struct {
	Prioritization string `json:"prioritization"`
	Line           string `json:"line"`
	LineColor      string `json:"lineColor"`
}

// Snapshot is the persisted form of a follow session.
type Snapshot struct {
	ProfileNumber    float64     `json:"profileNumber"`
	CurrentCenter    *r3.Vec     `json:"currentCenter,omitempty"`
	Selected         Selection   `json:"selected"`
	DrawRoadIDs      []string    `json:"drawRoadIds,omitempty"`
	Deviations       *Deviations `json:"deviations,omitempty"`
	View2D           bool        `json:"view2d"`
	ClippingDistance float64     `json:"clippingDistance,omitempty"`
	StepSize         float64     `json:"stepSize,omitempty"`
}

// Validate rejects snapshots that cannot be restored.
func (s Snapshot) Validate() error {
	if len(s.Selected.ObjectIDs()) == 0 {
		return fmt.Errorf("snapshot has no selected objects")
	}
	if s.ClippingDistance < 0 {
		return fmt.Errorf("clippingDistance must be non-negative, got %f", s.ClippingDistance)
	}
	if s.StepSize < 0 {
		return fmt.Errorf("stepSize must be non-negative, got %f", s.StepSize)
	}
	return nil
}

// Encode returns the JSON form of the snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses and validates a JSON snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return s, nil
}

// FromSnapshot builds the navigation state described by snap on top of
// defaults. It has no side effects.
func FromSnapshot(snap Snapshot, defaults State) State {
	st := defaults
	st.Active = true
	st.ObjectIDs = snap.Selected.ObjectIDs()
	st.Profile = snap.ProfileNumber
	st.View2D = snap.View2D
	st.CurrentCenter = nil
	if snap.CurrentCenter != nil {
		c := *snap.CurrentCenter
		st.CurrentCenter = &c
	}
	if snap.ClippingDistance > 0 {
		st.ClippingDistance = snap.ClippingDistance
	}
	if snap.StepSize > 0 {
		st.StepSize = snap.StepSize
	}
	return st
}

// Snapshot captures the navigation part of a bookmark. The caller fills in
// the selection details it owns.
func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	snap := Snapshot{
		ProfileNumber:    n.state.Profile,
		Selected:         Selection{IDs: append([]string(nil), n.state.ObjectIDs...)},
		View2D:           n.state.View2D,
		ClippingDistance: n.state.ClippingDistance,
		StepSize:         n.state.StepSize,
	}
	if n.state.CurrentCenter != nil {
		c := *n.state.CurrentCenter
		snap.CurrentCenter = &c
	}
	return snap
}

// Restore applies snap to the followed handle, which the caller must have
// set for the snapshot's selection. It reports whether the saved profile
// could be sampled. The saved center is not reused: the center and camera
// are re-derived from the sample at the restored profile.
func (n *Navigator) Restore(snap Snapshot) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.restoreLocked(n.handle, snap)
}

// RestoreHandle follows h and applies snap with a single push, skipping the
// start-of-curve frame SetHandle would push first.
func (n *Navigator) RestoreHandle(h *curve.Handle, snap Snapshot) bool {
	if h == nil {
		n.Exit()
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.restoreLocked(h, snap)
}

func (n *Navigator) restoreLocked(h *curve.Handle, snap Snapshot) bool {
	if h == nil {
		return false
	}
	n.handle = h
	st := FromSnapshot(snap, n.state)
	st.Active = true
	st.Bounds = h.Bounds
	st.ObjectIDs = append([]string(nil), h.ObjectIDs...)
	st.Profile = st.Bounds.Clamp(st.Profile)
	st.CurrentCenter = nil
	n.state = st
	n.pose, n.plane, n.forward = nil, nil, nil
	return n.goToLocked(st.Profile, GoToOptions{LookAt: !st.View2D})
}
