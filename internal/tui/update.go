package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/navigator"
	"github.com/banshee-data/ridealong/internal/session"
)

const commandTimeout = 10 * time.Second

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.l.SetSize(sidebarWidth-2, max(4, m.height-6))
		m.help.Width = msg.Width
		m.sess.SetBrushWidth(float64(max(10, m.width-sidebarWidth-8)))
		return m, nil

	case tickMsg:
		return m, tick()

	case selectedMsg:
		if msg.err != nil {
			m.err = fmt.Sprintf("follow %s: %v", msg.id, msg.err)
		} else {
			m.err = ""
			m.status = "following " + msg.id
		}
		return m, nil

	case bookmarkSavedMsg:
		if msg.err != nil {
			m.err = "bookmark: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("saved bookmark %q at %.2f", msg.b.Name, msg.b.Snapshot.ProfileNumber)
		}
		return m, nil

	case bookmarksMsg:
		if msg.err != nil {
			m.err = "bookmarks: " + msg.err.Error()
			return m, nil
		}
		m.showBookmarks(msg.list)
		m.status = fmt.Sprintf("%d bookmarks", len(msg.list))
		return m, nil

	case restoredMsg:
		if msg.err != nil {
			m.err = "restore: " + msg.err.Error()
		} else {
			m.err = ""
			m.status = "restored " + msg.name
		}
		m.showCurves()
		return m, nil

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		// keys go to the list while it is filtering
		if m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.l, cmd = m.l.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nav := m.sess.Navigation()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Select):
		return m, m.choose()
	case key.Matches(msg, m.keys.Forward):
		m.step(+1)
	case key.Matches(msg, m.keys.Back):
		m.step(-1)
	case key.Matches(msg, m.keys.GoTo):
		if nav.Active {
			m.beginInput(inputGoTo, "profile: ", strconv.FormatFloat(nav.Profile, 'f', -1, 64))
		}
	case key.Matches(msg, m.keys.View2D):
		m.sess.SetView2D(!nav.View2D)
	case key.Matches(msg, m.keys.Grid):
		grid := !nav.ShowGrid
		m.sess.ApplySettings(session.SettingsPatch{ShowGrid: &grid})
	case key.Matches(msg, m.keys.Farther):
		m.sess.SetClippingDistance(nav.ClippingDistance+1, true)
	case key.Matches(msg, m.keys.Nearer):
		if nav.ClippingDistance > 1 {
			m.sess.SetClippingDistance(nav.ClippingDistance-1, true)
		}
	case key.Matches(msg, m.keys.Track):
		on := !m.sess.View().TrackCamera
		m.sess.SetTrackCamera(on)
		m.status = fmt.Sprintf("track camera: %v", on)
	case key.Matches(msg, m.keys.Narrow):
		if nav.Active {
			r := curve.Range{Start: nav.Profile, End: nav.Profile + nav.ClippingDistance}
			m.sess.SetBrushRange(&r)
		}
	case key.Matches(msg, m.keys.Reset):
		m.sess.SetBrushRange(nil)
	case key.Matches(msg, m.keys.Retry):
		d := m.sess.RetryDistribution()
		c := m.sess.RetryCrossSection()
		m.status = fmt.Sprintf("retry distribution=%v cross-section=%v", d, c)
	case key.Matches(msg, m.keys.Bookmark):
		if nav.Active {
			m.beginInput(inputBookmark, "name: ", "")
		}
	case key.Matches(msg, m.keys.Bookmarks):
		if m.listMode == listBookmarks {
			m.showCurves()
			return m, nil
		}
		return m, m.loadBookmarks()
	case key.Matches(msg, m.keys.Exit):
		if m.listMode == listBookmarks {
			m.showCurves()
			return m, nil
		}
		m.sess.Exit()
		m.status = "follow mode off"
	default:
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) step(dir int) {
	if !m.sess.Step(dir) {
		m.status = "no sample there"
	}
}

func (m *Model) beginInput(mode inputMode, prompt, value string) {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case "enter":
		mode, v := m.mode, strings.TrimSpace(m.input.Value())
		m.mode = inputNone
		m.input.Blur()
		return m, m.submit(mode, v)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(mode inputMode, v string) tea.Cmd {
	switch mode {
	case inputGoTo:
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			m.err = fmt.Sprintf("invalid profile %q", v)
			return nil
		}
		if !m.sess.GoTo(p) {
			m.status = "no sample there"
		}
	case inputBookmark:
		if v == "" {
			v = fmt.Sprintf("profile %.2f", m.sess.Navigation().Profile)
		}
		sess := m.sess
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			b, err := sess.Bookmark(ctx, v)
			return bookmarkSavedMsg{b: b, err: err}
		}
	}
	return nil
}

// choose follows the highlighted curve or restores the highlighted bookmark.
func (m *Model) choose() tea.Cmd {
	sess := m.sess
	switch it := m.l.SelectedItem().(type) {
	case curveItem:
		id := string(it)
		m.status = "resolving " + id
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			err := sess.SelectCurve(ctx, navigator.Selection{IDs: []string{id}}, curve.SampleCenter)
			return selectedMsg{id: id, err: err}
		}
	case bookmarkItem:
		b := it.b
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			return restoredMsg{name: b.Name, err: sess.Restore(ctx, b.ID)}
		}
	}
	return nil
}

func (m *Model) loadBookmarks() tea.Cmd {
	if m.bookmarks == nil {
		m.err = "bookmarks unavailable"
		return nil
	}
	bs := m.bookmarks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		saved, err := bs.ListBookmarks(ctx)
		return bookmarksMsg{list: saved, err: err}
	}
}
