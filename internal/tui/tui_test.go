package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/render"
	"github.com/banshee-data/ridealong/internal/session"
	"github.com/banshee-data/ridealong/internal/timeutil"
)

func newModel(t *testing.T) (Model, *session.Session) {
	t.Helper()
	curves := curve.NewMemoryService()
	pl, err := curve.NewPolyline([]r3.Vec{{}, {X: 50}}, 0)
	require.NoError(t, err)
	curves.Add(curve.Centerline{ID: "road-1", Polyline: pl})

	sess := session.New(session.Backends{Curves: curves}, session.Options{
		Sink:  &render.Recorder{},
		Clock: timeutil.NewMockClock(time.Unix(0, 0)),
	})
	t.Cleanup(sess.Close)

	m := New(sess, curves.IDs(), nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), sess
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func follow(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, selectedMsg{}, msg)
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_FollowAndStep(t *testing.T) {
	m, sess := newModel(t)
	assert.Contains(t, m.View(), "not following")

	m = follow(t, m)
	assert.Equal(t, "following road-1", m.status)
	assert.True(t, sess.Navigation().Active)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, runes("l"))
	assert.Equal(t, 2.0, sess.Navigation().Profile)
	m, _ = press(t, m, runes("h"))
	assert.Equal(t, 1.0, sess.Navigation().Profile)
	assert.Contains(t, m.View(), "profile 1.00")
}

func TestModel_GoToInput(t *testing.T) {
	m, sess := newModel(t)
	m = follow(t, m)

	m, _ = press(t, m, runes("g"))
	require.Equal(t, inputGoTo, m.mode)
	m.input.SetValue("30")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, inputNone, m.mode)
	assert.Equal(t, 30.0, sess.Navigation().Profile)

	m, _ = press(t, m, runes("g"))
	m.input.SetValue("abc")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.err, "invalid profile")
}

func TestModel_Toggles(t *testing.T) {
	m, sess := newModel(t)
	m = follow(t, m)

	m, _ = press(t, m, runes("v"))
	assert.True(t, sess.Navigation().View2D)
	clip := sess.Navigation().ClippingDistance
	m, _ = press(t, m, runes("+"))
	assert.Equal(t, clip+1, sess.Navigation().ClippingDistance)
	m, _ = press(t, m, runes("t"))
	assert.True(t, sess.View().TrackCamera)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, sess.Navigation().Active)
	assert.Equal(t, "follow mode off", m.status)
}

func TestModel_BookmarksUnavailable(t *testing.T) {
	m, _ := newModel(t)
	m, cmd := press(t, m, runes("b"))
	assert.Nil(t, cmd)
	assert.Equal(t, "bookmarks unavailable", m.err)
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderBrush(t *testing.T) {
	s := renderBrush(session.BrushView{X0: 0, X1: 50, Width: 100}, 10)
	assert.Contains(t, s, "━━━━━")
	assert.Empty(t, renderBrush(session.BrushView{}, 10))
}
