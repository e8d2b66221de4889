package deviation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/ridealong/internal/async"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/monitoring"
	"github.com/banshee-data/ridealong/internal/timeutil"
)

var logf = monitoring.Component("Distribution")

// DefaultDebounce coalesces range changes driven by camera movement.
const DefaultDebounce = 500 * time.Millisecond

// Status is the lifecycle of the distribution data.
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

// State is a read-only snapshot of the distribution for the selected curve.
// ParameterBounds is the range currently queried; FullEffectiveBounds is
// the effective range of the first, unrestricted query.
type State struct {
	CurveID             string            `json:"curve_id"`
	CurveBounds         curve.Range       `json:"curve_bounds"`
	ParameterBounds     curve.Range       `json:"parameter_bounds"`
	FullEffectiveBounds *curve.Range      `json:"full_effective_bounds,omitempty"`
	Status              Status            `json:"status"`
	Profile             []ProfileBucket   `json:"profile,omitempty"`
	Histogram           []HistogramBucket `json:"histogram,omitempty"`
	Err                 error             `json:"-"`
	Error               string            `json:"error,omitempty"`
}

// Options configure an Aggregator.
type Options struct {
	Clock    timeutil.Clock
	Debounce time.Duration
	// OnChange is called with every new state while the aggregator lock is
	// held. It must not call back into the Aggregator.
	OnChange func(State)
}

// Aggregator requests and caches distribution statistics for one selected
// curve. Only the latest request's result is ever applied.
type Aggregator struct {
	backend  Backend
	onChange func(State)
	debounce *async.Debouncer

	mu        sync.Mutex
	state     State
	gen       async.Generation
	selection uint64 // bumped by every Select
	closed    bool
	wg        sync.WaitGroup
}

// New creates an aggregator querying backend.
func New(backend Backend, opts Options) *Aggregator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Aggregator{
		backend:  backend,
		onChange: opts.OnChange,
		debounce: async.NewDebouncer(opts.Clock, opts.Debounce),
	}
}

// Select switches to a new curve and issues the first query over its full
// parameter bounds. An empty id clears the selection.
func (a *Aggregator) Select(curveID string, bounds curve.Range) {
	a.debounce.Cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.selectLocked(curveID, bounds)
}

func (a *Aggregator) selectLocked(curveID string, bounds curve.Range) {
	if a.closed {
		return
	}
	a.selection++
	a.gen.Invalidate()
	a.state = State{CurveID: curveID, CurveBounds: bounds, ParameterBounds: bounds}
	if curveID == "" || !bounds.Valid() {
		a.notifyLocked()
		return
	}
	a.issueLocked(bounds)
}

// Request queries rng immediately. A range equal to the one already
// pending or ready is a no-op. The range is clamped into the full bounds.
func (a *Aggregator) Request(rng curve.Range) {
	a.debounce.Cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requestLocked(rng)
}

// RequestDebounced queries rng once no further range change has arrived
// for the debounce interval. It is dropped if another curve is selected
// in the meantime.
func (a *Aggregator) RequestDebounced(rng curve.Range) {
	a.mu.Lock()
	sel := a.selection
	a.mu.Unlock()

	a.debounce.Trigger(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.selection != sel {
			return
		}
		a.requestLocked(rng)
	})
}

// SetRange narrows the queried range to r, or resets it to the full
// effective bounds when r is nil.
func (a *Aggregator) SetRange(r *curve.Range) {
	a.debounce.Cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	if r == nil {
		a.requestLocked(a.fullLocked())
		return
	}
	a.requestLocked(*r)
}

// Retry re-issues the failed request. It reports whether a request was issued.
func (a *Aggregator) Retry() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.state.Status != StatusFailed {
		return false
	}
	a.issueLocked(a.state.ParameterBounds)
	return true
}

// State returns the current snapshot.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Close cancels outstanding work and waits for in-flight queries to return.
func (a *Aggregator) Close() {
	a.debounce.Cancel()
	a.mu.Lock()
	a.closed = true
	a.gen.Invalidate()
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Aggregator) fullLocked() curve.Range {
	if a.state.FullEffectiveBounds != nil {
		return *a.state.FullEffectiveBounds
	}
	return a.state.CurveBounds
}

func (a *Aggregator) requestLocked(rng curve.Range) {
	if a.closed || a.state.CurveID == "" || !finite(rng.Start) || !finite(rng.End) {
		return
	}
	rng = a.fullLocked().ClampRange(rng)
	if rng.Equal(a.state.ParameterBounds) &&
		(a.state.Status == StatusPending || a.state.Status == StatusReady) {
		return
	}
	a.issueLocked(rng)
}

func (a *Aggregator) issueLocked(rng curve.Range) {
	// only an unrestricted query may define the full effective bounds
	first := a.state.FullEffectiveBounds == nil && rng.Equal(a.state.CurveBounds)
	a.state.ParameterBounds = rng
	a.state.Status = StatusPending
	a.state.Profile, a.state.Histogram = nil, nil
	a.state.Err = nil

	tok, ctx := a.gen.Next(context.Background())
	q := Query{CurveID: a.state.CurveID, Range: rng}
	a.notifyLocked()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		res, err := a.backend.QueryDistribution(ctx, q)
		a.complete(tok, q, first, res, err)
	}()
}

func (a *Aggregator) complete(tok async.Token, q Query, first bool, res *Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.gen.Current(tok) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logf("discarding stale failure for %s [%.1f, %.1f]: %v", q.CurveID, q.Range.Start, q.Range.End, err)
		}
		return
	}
	if err == nil && res == nil {
		err = fmt.Errorf("backend returned no result")
	}
	if err != nil {
		logf("query %s [%.1f, %.1f] failed: %v", q.CurveID, q.Range.Start, q.Range.End, err)
		a.state.Status = StatusFailed
		a.state.Err = err
		a.notifyLocked()
		return
	}

	if first {
		eff := q.Range
		if res.EffectiveRange.Valid() {
			eff = q.Range.ClampRange(res.EffectiveRange)
		}
		a.state.FullEffectiveBounds = &eff
		a.state.ParameterBounds = eff
	}
	a.state.Status = StatusReady
	a.state.Profile = res.Profile
	a.state.Histogram = res.Histogram
	a.notifyLocked()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (a *Aggregator) snapshotLocked() State {
	st := a.state
	if st.FullEffectiveBounds != nil {
		b := *st.FullEffectiveBounds
		st.FullEffectiveBounds = &b
	}
	if st.Err != nil {
		st.Error = st.Err.Error()
	}
	return st
}

func (a *Aggregator) notifyLocked() {
	if a.onChange != nil {
		a.onChange(a.snapshotLocked())
	}
}
