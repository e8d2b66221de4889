// Package crosssection loads the geometry slice orthogonal to the followed
// curve at the current profile.
package crosssection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/async"
	"github.com/banshee-data/ridealong/internal/monitoring"
	"github.com/banshee-data/ridealong/internal/timeutil"
)

var logf = monitoring.Component("CrossSection")

// ErrNotFound is returned by a Backend when no cross-section exists at the
// requested station.
var ErrNotFound = errors.New("crosssection: not found")

// CrossSection is one slice of one road at a profile.
type CrossSection struct {
	RoadID  string   `json:"road_id"`
	Profile float64  `json:"profile"`
	Points  []r3.Vec `json:"points"`
}

// Backend computes cross-sections.
type Backend interface {
	CrossSections(ctx context.Context, roadIDs []string, profile float64) ([]CrossSection, error)
}

// Status is the load state.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{StatusIdle, StatusPending, StatusReady, StatusFailed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// FailureKind tells "nothing at this station" apart from a failed fetch.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNotFound
	FailureError
)

func (k FailureKind) String() string {
	switch k {
	case FailureNotFound:
		return "not_found"
	case FailureError:
		return "error"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FailureKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FailureKind) UnmarshalText(b []byte) error {
	for _, v := range []FailureKind{FailureNone, FailureNotFound, FailureError} {
		if v.String() == string(b) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", b)
}

// State is a snapshot of the provider.
type State struct {
	RoadIDs  []string       `json:"road_ids,omitempty"`
	Profile  *float64       `json:"profile,omitempty"`
	Status   Status         `json:"status"`
	Sections []CrossSection `json:"sections"`
	Failure  FailureKind    `json:"failure"`
	Err      error          `json:"-"`
	Error    string         `json:"error,omitempty"`
}

// Options configure a Provider. A zero Debounce loads immediately.
type Options struct {
	Clock    timeutil.Clock
	Debounce time.Duration
}

// Provider keeps the cross-sections for the latest (roads, profile) pair.
type Provider struct {
	backend  Backend
	debounce *async.Debouncer

	mu     sync.Mutex
	state  State
	gen    async.Generation
	closed bool
	wg     sync.WaitGroup

	// latest request, which may still be waiting on the debouncer
	wantRoads   []string
	wantProfile *float64
}

// NewProvider creates a provider on backend.
func NewProvider(backend Backend, opts Options) *Provider {
	p := &Provider{backend: backend, state: State{Sections: []CrossSection{}}}
	if opts.Debounce > 0 {
		p.debounce = async.NewDebouncer(opts.Clock, opts.Debounce)
	}
	return p
}

// Load requests the cross-sections of roadIDs at profile. Empty roads or
// a nil profile give an immediate empty result. A request equal to the
// current one is skipped unless it failed.
func (p *Provider) Load(roadIDs []string, profile *float64) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if len(roadIDs) == 0 || profile == nil {
		p.cancelLocked()
		p.wantRoads, p.wantProfile = nil, nil
		p.state = State{RoadIDs: slices.Clone(roadIDs), Status: StatusReady, Sections: []CrossSection{}}
		if profile != nil {
			v := *profile
			p.state.Profile = &v
		}
		p.mu.Unlock()
		return
	}
	if p.sameLocked(roadIDs, *profile) && p.state.Status != StatusFailed {
		p.mu.Unlock()
		return
	}
	roads := slices.Clone(roadIDs)
	station := *profile
	p.wantRoads, p.wantProfile = roads, &station
	p.mu.Unlock()

	if p.debounce == nil {
		p.issue(roads, station)
		return
	}
	p.debounce.Trigger(func() { p.issue(roads, station) })
}

// Retry re-issues the last request after a failure.
func (p *Provider) Retry() bool {
	p.mu.Lock()
	if p.state.Status != StatusFailed || p.state.Profile == nil {
		p.mu.Unlock()
		return false
	}
	roads, station := slices.Clone(p.state.RoadIDs), *p.state.Profile
	p.mu.Unlock()
	p.issue(roads, station)
	return true
}

// State returns a snapshot.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.RoadIDs = slices.Clone(p.state.RoadIDs)
	if p.state.Profile != nil {
		v := *p.state.Profile
		st.Profile = &v
	}
	if st.Err != nil {
		st.Error = st.Err.Error()
	}
	return st
}

// Close cancels outstanding work and waits for in-flight fetches.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	p.cancelLocked()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Provider) cancelLocked() {
	if p.debounce != nil {
		p.debounce.Cancel()
	}
	p.gen.Invalidate()
}

func (p *Provider) sameLocked(roadIDs []string, profile float64) bool {
	return p.wantProfile != nil && *p.wantProfile == profile && slices.Equal(p.wantRoads, roadIDs)
}

func (p *Provider) issue(roads []string, station float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	tok, ctx := p.gen.Next(context.Background())
	p.state = State{RoadIDs: roads, Profile: &station, Status: StatusPending, Sections: []CrossSection{}}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		sections, err := p.backend.CrossSections(ctx, roads, station)
		p.complete(tok, station, sections, err)
	}()
}

func (p *Provider) complete(tok async.Token, station float64, sections []CrossSection, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.gen.Current(tok) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		p.state.Status = StatusFailed
		p.state.Failure = FailureNotFound
		p.state.Err = err
	case err != nil:
		logf("load at %.3f failed: %v", station, err)
		p.state.Status = StatusFailed
		p.state.Failure = FailureError
		p.state.Err = err
	default:
		if sections == nil {
			sections = []CrossSection{}
		}
		p.state.Status = StatusReady
		p.state.Sections = sections
	}
}
