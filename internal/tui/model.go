// Package tui is a terminal front end for a follow session.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	list "github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/session"
)

const sidebarWidth = 28

// refreshInterval polls the session for async overlay updates.
const refreshInterval = 100 * time.Millisecond

// BookmarkLister lists saved bookmarks.
type BookmarkLister interface {
	ListBookmarks(ctx context.Context) ([]*store.Bookmark, error)
}

type inputMode int

const (
	inputNone inputMode = iota
	inputGoTo
	inputBookmark
)

type listMode int

const (
	listCurves listMode = iota
	listBookmarks
)

type curveItem string

func (c curveItem) Title() string       { return string(c) }
func (c curveItem) Description() string { return "" }
func (c curveItem) FilterValue() string { return string(c) }

type bookmarkItem struct{ b *store.Bookmark }

func (b bookmarkItem) Title() string       { return b.b.Name }
func (b bookmarkItem) Description() string { return b.b.ID }
func (b bookmarkItem) FilterValue() string { return b.b.Name }

type tickMsg time.Time

type selectedMsg struct {
	id  string
	err error
}

type bookmarkSavedMsg struct {
	b   *store.Bookmark
	err error
}

type bookmarksMsg struct {
	list []*store.Bookmark
	err  error
}

type restoredMsg struct {
	name string
	err  error
}

type Model struct {
	sess      *session.Session
	bookmarks BookmarkLister
	curves    []string

	width  int
	height int

	keys     keyMap
	help     help.Model
	l        list.Model
	listMode listMode
	input    textinput.Model
	mode     inputMode

	status string
	err    string
}

// New creates a model driving sess. curveIDs populate the picker and
// bookmarks may be nil.
func New(sess *session.Session, curveIDs []string, bookmarks BookmarkLister) Model {
	m := Model{
		sess:      sess,
		bookmarks: bookmarks,
		curves:    curveIDs,
		keys:      defaultKeys(),
		help:      help.New(),
		status:    "pick a curve to follow",
	}
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	m.showCurves()

	m.input = textinput.New()
	m.input.CharLimit = 64
	m.input.Width = 24
	return m
}

func (m *Model) showCurves() {
	items := make([]list.Item, 0, len(m.curves))
	for _, id := range m.curves {
		items = append(items, curveItem(id))
	}
	m.l.Title = "Curves"
	m.l.SetItems(items)
	m.listMode = listCurves
}

func (m *Model) showBookmarks(bs []*store.Bookmark) {
	items := make([]list.Item, 0, len(bs))
	for _, b := range bs {
		items = append(items, bookmarkItem{b: b})
	}
	m.l.Title = "Bookmarks"
	m.l.SetItems(items)
	m.listMode = listBookmarks
}

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
