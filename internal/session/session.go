// Package session runs one follow session: it resolves the selected curve,
// drives the navigator, and keeps the cross-section and distribution
// overlays in step with the camera and the brush.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/ridealong/internal/async"
	"github.com/banshee-data/ridealong/internal/brush"
	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/crosssection"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation"
	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/monitoring"
	"github.com/banshee-data/ridealong/internal/navigator"
	"github.com/banshee-data/ridealong/internal/render"
	"github.com/banshee-data/ridealong/internal/scene"
	"github.com/banshee-data/ridealong/internal/timeutil"
)

var logf = monitoring.Component("Session")

var (
	// ErrSuperseded is returned when a newer selection replaced the one
	// being resolved.
	ErrSuperseded = errors.New("session: selection superseded")
	// ErrNotActive is returned by operations that need a followed curve.
	ErrNotActive = errors.New("session: not following a curve")
	// ErrNoBookmarks is returned when the session has no bookmark store.
	ErrNoBookmarks = errors.New("session: bookmarks unavailable")
)

// BookmarkStore persists bookmarks.
type BookmarkStore interface {
	SaveBookmark(ctx context.Context, b *store.Bookmark) error
	GetBookmark(ctx context.Context, id string) (*store.Bookmark, error)
}

// Backends are the services a session queries.
type Backends struct {
	Curves        curve.Service
	Distribution  deviation.Backend
	CrossSections crosssection.Backend
	Bookmarks     BookmarkStore
}

// Options configure a session.
type Options struct {
	Config   *config.Config
	Sink     render.Sink
	Clock    timeutil.Clock
	Viewport scene.Viewport
	// BrushWidthPx is the pixel width of the brush widget.
	BrushWidthPx float64
	// OnDistribution receives every distribution state change. It is called
	// with the aggregator lock held and must not call back into the session.
	OnDistribution func(deviation.State)
}

// Session is one follow session.
type Session struct {
	id        string
	curves    curve.Service
	bookmarks BookmarkStore
	nav       *navigator.Navigator
	agg       *deviation.Aggregator
	cross     *crosssection.Provider
	projector scene.Projector
	brushOpts brush.Options
	stops     []deviation.ColorStop

	resolve async.Generation

	mu          sync.Mutex
	brushWidth  float64
	mode        curve.SampleMode
	selection   navigator.Selection
	drawRoadIDs []string
	deviations  *navigator.Deviations
	trackCamera bool
}

// New creates a session. Missing options take their defaults.
func New(b Backends, opts Options) *Session {
	c := opts.Config
	if c == nil {
		c = config.Empty()
	}
	if opts.Viewport.Width == 0 {
		opts.Viewport = scene.DefaultViewport()
	}
	if opts.BrushWidthPx <= 0 {
		opts.BrushWidthPx = 1000
	}
	if b.Distribution == nil {
		b.Distribution = deviation.BackendFunc(func(_ context.Context, q deviation.Query) (*deviation.Result, error) {
			return &deviation.Result{EffectiveRange: q.Range}, nil
		})
	}

	s := &Session{
		id:         uuid.New().String(),
		curves:     b.Curves,
		bookmarks:  b.Bookmarks,
		nav:        navigator.New(opts.Sink, navigator.SettingsFromConfig(c)),
		projector:  scene.Projector{Viewport: opts.Viewport},
		brushOpts:  brush.OptionsFromConfig(c),
		stops:      deviation.ColorStopsFromConfig(c),
		brushWidth: opts.BrushWidthPx,
	}
	s.agg = deviation.New(b.Distribution, deviation.Options{
		Clock:    opts.Clock,
		Debounce: c.GetDistributionDebounce(),
		OnChange: opts.OnDistribution,
	})
	if b.CrossSections != nil {
		s.cross = crosssection.NewProvider(b.CrossSections, crosssection.Options{
			Clock:    opts.Clock,
			Debounce: c.GetCrossSectionDebounce(),
		})
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SelectCurve resolves sel and starts following it. When a newer selection
// arrives while sel is being resolved, sel is dropped with ErrSuperseded.
func (s *Session) SelectCurve(ctx context.Context, sel navigator.Selection, mode curve.SampleMode) error {
	return s.selectCurve(ctx, sel, mode, nil)
}

// selectCurve resolves sel and follows it, starting at the curve start or
// at restore when given.
func (s *Session) selectCurve(ctx context.Context, sel navigator.Selection, mode curve.SampleMode, restore *navigator.Snapshot) error {
	ids := sel.ObjectIDs()
	if len(ids) == 0 {
		s.Exit()
		return nil
	}
	if s.curves == nil {
		return curve.ErrNotResolved
	}

	tok, rctx := s.resolve.Next(ctx)
	h, err := s.curves.Resolve(rctx, ids, mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolve.Current(tok) {
		return ErrSuperseded
	}
	if err != nil {
		logf("resolve %v failed: %v", ids, err)
		return fmt.Errorf("resolve %v: %w", ids, err)
	}

	s.mode = mode
	s.selection = sel
	if restore != nil {
		s.drawRoadIDs = append([]string(nil), restore.DrawRoadIDs...)
		s.deviations = nil
		if restore.Deviations != nil {
			d := *restore.Deviations
			s.deviations = &d
		}
		if !s.nav.RestoreHandle(h, *restore) {
			return fmt.Errorf("no sample at profile %.3f: %w", restore.ProfileNumber, curve.ErrNotResolved)
		}
	} else if !s.nav.SetHandle(h) {
		return fmt.Errorf("no sample at the start of %v: %w", ids, curve.ErrNotResolved)
	}
	s.agg.Select(CurveID(h.ObjectIDs), h.Bounds)
	s.loadCrossSectionLocked()
	return nil
}

// CurveID is the statistics key of a selection.
func CurveID(objectIDs []string) string {
	return strings.Join(objectIDs, "+")
}

// SetDrawRoads selects the roads cross-sections are computed for. An empty
// list uses the followed objects.
func (s *Session) SetDrawRoads(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawRoadIDs = append([]string(nil), ids...)
	s.loadCrossSectionLocked()
}

// SetDeviations records the deviation overlay settings saved with bookmarks.
func (s *Session) SetDeviations(d *navigator.Deviations) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == nil {
		s.deviations = nil
		return
	}
	cp := *d
	s.deviations = &cp
}

// SetTrackCamera makes the distribution follow the window ahead of the
// camera, re-queried after each move once movement settles.
func (s *Session) SetTrackCamera(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackCamera = on
}

// Step moves one step forward (dir > 0) or backward.
func (s *Session) Step(dir int) bool {
	if !s.nav.Step(dir) {
		return false
	}
	s.afterMove()
	return true
}

// GoTo jumps to profile p, keeping the camera offset unless auto recenter
// is on.
func (s *Session) GoTo(p float64) bool {
	st := s.nav.State()
	if !s.nav.GoTo(p, navigator.GoToOptions{KeepOffset: !st.AutoRecenter}) {
		return false
	}
	s.afterMove()
	return true
}

func (s *Session) afterMove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCrossSectionLocked()
	if s.trackCamera {
		st := s.nav.State()
		s.agg.RequestDebounced(curve.Range{Start: st.Profile, End: st.Profile + st.ClippingDistance})
	}
}

func (s *Session) loadCrossSectionLocked() {
	if s.cross == nil {
		return
	}
	st := s.nav.State()
	if !st.Active {
		s.cross.Load(nil, nil)
		return
	}
	roads := s.drawRoadIDs
	if len(roads) == 0 {
		roads = st.ObjectIDs
	}
	p := st.Profile
	s.cross.Load(roads, &p)
}

// SetView2D switches between the 2D and 3D views.
func (s *Session) SetView2D(on bool) { s.nav.SetView2D(on) }

// SetClippingDistance previews d on the camera, committing it when commit
// is set (slider release).
func (s *Session) SetClippingDistance(d float64, commit bool) bool {
	if !commit {
		s.nav.PreviewClippingDistance(d)
		return d > 0
	}
	return s.nav.SetClippingDistance(d)
}

// SettingsPatch changes navigation settings; nil fields are left alone.
type SettingsPatch struct {
	StepSize         *float64 `json:"step_size,omitempty"`
	AutoStepSize     *bool    `json:"auto_step_size,omitempty"`
	AutoRecenter     *bool    `json:"auto_recenter,omitempty"`
	ShowGrid         *bool    `json:"show_grid,omitempty"`
	VerticalClipping *bool    `json:"vertical_clipping,omitempty"`
	TrackCamera      *bool    `json:"track_camera,omitempty"`
}

// ApplySettings applies p.
func (s *Session) ApplySettings(p SettingsPatch) {
	if p.StepSize != nil {
		s.nav.SetStepSize(*p.StepSize)
	}
	if p.AutoStepSize != nil {
		s.nav.SetAutoStepSize(*p.AutoStepSize)
	}
	if p.AutoRecenter != nil {
		s.nav.SetAutoRecenter(*p.AutoRecenter)
	}
	if p.ShowGrid != nil {
		s.nav.SetShowGrid(*p.ShowGrid)
	}
	if p.VerticalClipping != nil {
		s.nav.SetVerticalClipping(*p.VerticalClipping)
	}
	if p.TrackCamera != nil {
		s.SetTrackCamera(*p.TrackCamera)
	}
}

// SetBrushRange narrows the distribution to r, or resets it to the full
// effective bounds when r is nil. Bounds are widened to integers.
func (s *Session) SetBrushRange(r *curve.Range) {
	if r == nil || math.IsNaN(r.Start) || math.IsNaN(r.End) {
		s.agg.SetRange(nil)
		return
	}
	c := s.brush()
	rng := c.Full().ClampRange(curve.Range{Start: math.Floor(math.Min(r.Start, r.End)), End: math.Ceil(math.Max(r.Start, r.End))})
	if c.IsFull(rng) {
		s.agg.SetRange(nil)
		return
	}
	s.agg.SetRange(&rng)
}

// BrushEnd applies a finished brush gesture in widget pixels. An empty
// gesture leaves the range unchanged.
func (s *Session) BrushEnd(x0, x1 float64) (curve.Range, bool) {
	c := s.brush()
	r, ok := c.End(x0, x1)
	if !ok {
		return curve.Range{}, false
	}
	if c.IsFull(r) {
		s.agg.SetRange(nil)
	} else {
		s.agg.SetRange(&r)
	}
	return r, true
}

// BrushPixels returns the pixel extent of the current range on the brush.
func (s *Session) BrushPixels() (x0, x1 float64) {
	st := s.agg.State()
	r := st.ParameterBounds
	return s.brush().Pixels(&r)
}

// SetBrushWidth sets the pixel width of the brush widget.
func (s *Session) SetBrushWidth(px float64) {
	if px <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brushWidth = px
}

// brush renders against the full effective bounds once known, otherwise
// against the curve bounds.
func (s *Session) brush() *brush.Controller {
	st := s.agg.State()
	full := st.CurveBounds
	if st.FullEffectiveBounds != nil {
		full = *st.FullEffectiveBounds
	}
	s.mu.Lock()
	w := s.brushWidth
	s.mu.Unlock()
	return brush.NewController(full, w, s.brushOpts)
}

// RetryDistribution re-issues a failed distribution query.
func (s *Session) RetryDistribution() bool { return s.agg.Retry() }

// RetryCrossSection re-issues a failed cross-section load.
func (s *Session) RetryCrossSection() bool {
	if s.cross == nil {
		return false
	}
	return s.cross.Retry()
}

// Snapshot captures the session for a bookmark.
func (s *Session) Snapshot() (navigator.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.nav.State().Active {
		return navigator.Snapshot{}, ErrNotActive
	}
	snap := s.nav.Snapshot()
	if len(s.selection.Positions) > 0 {
		snap.Selected = navigator.Selection{Positions: append([]navigator.SelectedPosition(nil), s.selection.Positions...)}
	}
	if len(s.drawRoadIDs) > 0 {
		snap.DrawRoadIDs = append([]string(nil), s.drawRoadIDs...)
	}
	if s.deviations != nil {
		d := *s.deviations
		snap.Deviations = &d
	}
	return snap, nil
}

// Bookmark saves the session under name.
func (s *Session) Bookmark(ctx context.Context, name string) (*store.Bookmark, error) {
	if s.bookmarks == nil {
		return nil, ErrNoBookmarks
	}
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	b := &store.Bookmark{Name: name, Snapshot: snap}
	if err := s.bookmarks.SaveBookmark(ctx, b); err != nil {
		return nil, fmt.Errorf("save bookmark: %w", err)
	}
	logf("saved bookmark %s at %.3f", b.ID, snap.ProfileNumber)
	return b, nil
}

// Restore loads the bookmark with id.
func (s *Session) Restore(ctx context.Context, id string) error {
	if s.bookmarks == nil {
		return ErrNoBookmarks
	}
	b, err := s.bookmarks.GetBookmark(ctx, id)
	if err != nil {
		return err
	}
	return s.RestoreSnapshot(ctx, b.Snapshot)
}

// RestoreSnapshot re-selects the snapshot's objects and restores its
// profile and view mode with a single render push.
func (s *Session) RestoreSnapshot(ctx context.Context, snap navigator.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	return s.selectCurve(ctx, snap.Selected, mode, &snap)
}

// Exit leaves follow mode and clears the overlays.
func (s *Session) Exit() {
	s.resolve.Invalidate()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = navigator.Selection{}
	s.drawRoadIDs = nil
	s.nav.Exit()
	s.agg.Select("", curve.Range{})
	s.loadCrossSectionLocked()
}

// Close exits and waits for outstanding queries.
func (s *Session) Close() {
	s.Exit()
	s.agg.Close()
	if s.cross != nil {
		s.cross.Close()
	}
}
