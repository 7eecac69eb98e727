// Package updates is the terminal view of the updates center.
package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitrix/updates-center/internal/action"
	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/keys"
	"github.com/vitrix/updates-center/internal/model"
	appsync "github.com/vitrix/updates-center/internal/sync"
	"github.com/vitrix/updates-center/internal/theme"
)

// actionTimeout bounds a single action, including any reload it triggers.
const actionTimeout = 45 * time.Second

// Center is the session facade the view drives.
type Center interface {
	Load(ctx context.Context) (*cache.Entry, error)
	Refresh(ctx context.Context) (*cache.Entry, error)
	Retry(ctx context.Context) (*cache.Entry, error)
	Act(ctx context.Context, id string, expanded bool) (action.Effect, error)
	Feed() []model.Notification
	FailedSources() []string
	Viewer() model.Viewer
}

// loadedMsg is sent when a foreground load, refresh or retry completes.
type loadedMsg struct {
	err error
}

// actedMsg is sent when an action completes.
type actedMsg struct {
	id     string
	effect action.Effect
	err    error
}

// Model is the root Bubble Tea model of the updates center.
type Model struct {
	center    Center
	refresher *appsync.Refresher
	keys      *keys.KeyMap
	help      help.Model
	spinner   spinner.Model

	items    []model.Notification
	cursor   int
	expanded map[string]bool

	// collapsedLines bounds the detail text of collapsed notifications.
	collapsedLines int

	loading  bool
	err      error
	failed   []string
	notice   string
	showHelp bool

	now    func() time.Time
	width  int
	height int
}

// New creates the view. refresher may be nil to disable background loads.
func New(c Center, r *appsync.Refresher, k *keys.KeyMap, collapsedLines int) Model {
	if collapsedLines <= 0 {
		collapsedLines = 2
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.HelpStyle

	return Model{
		center:         c,
		refresher:      r,
		keys:           k,
		help:           help.New(),
		spinner:        sp,
		expanded:       make(map[string]bool),
		collapsedLines: collapsedLines,
		loading:        true,
		now:            time.Now,
		width:          80,
		height:         24,
	}
}

// Init starts the first load, the spinner and the background refresher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.load(m.center.Load)}
	if m.refresher != nil {
		cmds = append(cmds, m.refresher.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the updates view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.loading = false
		m.applyLoad(msg.err)
		return m, nil

	case appsync.FeedLoadedMsg:
		// Background failures keep the feed already on screen.
		if msg.Err == nil || len(m.items) == 0 {
			m.applyLoad(msg.Err)
		}
		return m, m.refresher.WaitForNextResult()

	case actedMsg:
		m.applyAction(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.refresher != nil {
			m.refresher.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		if m.err == nil || m.loading {
			return m, nil
		}
		m.loading = true
		m.notice = ""
		return m, tea.Batch(m.spinner.Tick, m.load(m.center.Retry))

	case key.Matches(msg, m.keys.Refresh):
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.notice = ""
		return m, tea.Batch(m.spinner.Tick, m.load(m.center.Refresh))
	}

	if m.err != nil || len(m.items) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Expand):
		id := m.items[m.cursor].ID
		m.expanded[id] = !m.expanded[id]
	case key.Matches(msg, m.keys.Act):
		n := m.items[m.cursor]
		expanded := m.expanded[n.ID]
		if action.RequiresExpanded(n.Kind) && !expanded {
			m.notice = "Expand the message to acknowledge it"
			return m, nil
		}
		m.notice = ""
		return m, m.act(n.ID, expanded)
	}
	return m, nil
}

func (m *Model) applyLoad(err error) {
	m.err = err
	if err != nil {
		return
	}
	m.failed = m.center.FailedSources()
	m.setItems(m.center.Feed())
}

func (m *Model) applyAction(msg actedMsg) {
	switch {
	case msg.err != nil:
		m.notice = fmt.Sprintf("Action failed: %v", msg.err)
	case msg.effect.Navigate != "":
		m.notice = "Opening " + msg.effect.Navigate
	case msg.effect.Removed:
		m.notice = ""
	}
	delete(m.expanded, msg.id)
	m.failed = m.center.FailedSources()
	m.setItems(m.center.Feed())
}

func (m *Model) setItems(items []model.Notification) {
	m.items = items
	if m.cursor >= len(items) {
		m.cursor = len(items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) load(fn func(context.Context) (*cache.Entry, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := fn(ctx)
		return loadedMsg{err: err}
	}
}

func (m Model) act(id string, expanded bool) tea.Cmd {
	c := m.center
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		eff, err := c.Act(ctx, id, expanded)
		return actedMsg{id: id, effect: eff, err: err}
	}
}
