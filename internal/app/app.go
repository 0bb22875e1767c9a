// Package app is the bubbletea TUI. It presents the catalog as a stack
// of wheel-scrolled menus plus a now-playing screen, and forwards every
// transport key to the playback engine.
package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clickwheel/clickwheel/internal/catalog"
	"github.com/clickwheel/clickwheel/internal/config"
	"github.com/clickwheel/clickwheel/internal/engine"
	"github.com/clickwheel/clickwheel/internal/scroll"
	"github.com/clickwheel/clickwheel/internal/ui"
)

// volumeStep is the per-keypress volume delta.
const volumeStep = 0.05

// Catalog is the combined backend surface the TUI consumes: stream
// resolution for playback plus listing for the menu screens.
type Catalog interface {
	catalog.Client
	catalog.Browser
}

type screenKind int

const (
	screenMenu screenKind = iota
	screenNowPlaying
)

// menuScreen is one mounted level of the menu stack.
type menuScreen struct {
	title  string
	viewID string
	list   *scroll.List
}

// Model is the bubbletea model. All mutation happens inside Update;
// background work arrives as messages through channels re-armed by
// watch commands.
type Model struct {
	cfg   *config.Config
	cat   Catalog
	eng   *engine.Engine
	theme ui.Theme
	keys  keymap
	log   *slog.Logger

	screen screenKind
	stack  []*menuScreen

	snap      engine.Snapshot
	snapCh    chan engine.Snapshot
	previewCh chan previewNote

	width, height int
	status        string
	errText       string
	preview       string
	popup         string
	loading       bool
}

type snapshotMsg engine.Snapshot

// previewNote fires after the wheel settles on a row.
type previewNote struct {
	index int
	item  scroll.Item
}

// itemsMsg carries an asynchronously loaded menu level.
type itemsMsg struct {
	viewID string
	title  string
	items  []scroll.Item
	err    error
}

type errorMsg struct{ err error }

type clearStatusMsg struct{}

// New builds the model and subscribes it to engine snapshots.
func New(cfg *config.Config, cat Catalog, eng *engine.Engine, theme ui.Theme, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		cfg:       cfg,
		cat:       cat,
		eng:       eng,
		theme:     theme,
		keys:      newKeymap(cfg.Keybindings),
		log:       logger,
		snapCh:    make(chan engine.Snapshot, 8),
		previewCh: make(chan previewNote, 8),
	}
	m.snap = eng.Snapshot()
	eng.Subscribe(func(s engine.Snapshot) {
		select {
		case m.snapCh <- s:
		default:
		}
	})
	m.stack = []*menuScreen{m.newScreen("Clickwheel", "main", m.staticItems("main"))}
	return m
}

func (m *Model) newScreen(title, viewID string, items []scroll.Item) *menuScreen {
	delay := time.Duration(m.cfg.UI.PreviewDelay) * time.Millisecond
	list := scroll.NewList(items, 1, m.cfg.UI.VisibleRows,
		scroll.WithPreviewDelay(delay),
		scroll.WithPreview(func(index int, item scroll.Item) {
			select {
			case m.previewCh <- previewNote{index: index, item: item}:
			default:
			}
		}))
	return &menuScreen{title: title, viewID: viewID, list: list}
}

func (m *Model) top() *menuScreen {
	return m.stack[len(m.stack)-1]
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.watchSnapshots(), m.watchPreviews())
}

func (m *Model) watchSnapshots() tea.Cmd {
	return func() tea.Msg { return snapshotMsg(<-m.snapCh) }
}

func (m *Model) watchPreviews() tea.Cmd {
	return func() tea.Msg { return <-m.previewCh }
}

func (m *Model) clearStatusLater() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snap = engine.Snapshot(msg)
		return m, m.watchSnapshots()

	case previewNote:
		if m.screen == screenMenu {
			m.preview = previewLabel(msg.item)
		}
		return m, m.watchPreviews()

	case itemsMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, m.clearStatusLater()
		}
		m.stack = append(m.stack, m.newScreen(msg.title, msg.viewID, msg.items))
		m.preview = ""
		return m, nil

	case errorMsg:
		m.errText = msg.err.Error()
		return m, m.clearStatusLater()

	case clearStatusMsg:
		m.status = ""
		m.errText = ""
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	act, ok := m.keys[msg.String()]
	if !ok {
		return m, nil
	}
	switch act {
	case actQuit:
		return m, tea.Quit

	case actMenu:
		m.back()

	case actWheelForward:
		if m.screen == screenNowPlaying {
			m.setVolume(m.snap.Settings.Volume - volumeStep)
			break
		}
		m.preview = ""
		m.top().list.StepForward()

	case actWheelBackward:
		if m.screen == screenNowPlaying {
			m.setVolume(m.snap.Settings.Volume + volumeStep)
			break
		}
		m.preview = ""
		m.top().list.StepBackward()

	case actSelect:
		if m.screen == screenNowPlaying {
			m.transport(m.eng.TogglePlayPause)
			break
		}
		d := &dispatcher{m: m}
		m.top().list.Confirm(d)
		return m, tea.Batch(d.cmds...)

	case actLongPress:
		if m.screen != screenMenu {
			break
		}
		d := &dispatcher{m: m}
		m.top().list.LongPress(d)
		return m, tea.Batch(d.cmds...)

	case actPlayPause:
		m.transport(m.eng.TogglePlayPause)

	case actNextTrack:
		m.transport(m.eng.SkipNext)

	case actPrevTrack:
		m.transport(m.eng.SkipPrevious)

	case actVolumeUp:
		m.setVolume(m.snap.Settings.Volume + volumeStep)

	case actVolumeDown:
		m.setVolume(m.snap.Settings.Volume - volumeStep)
	}
	return m, nil
}

// back closes the popup, leaves the now-playing screen, or pops one
// menu level. The root menu stays mounted.
func (m *Model) back() {
	if m.popup != "" {
		m.popup = ""
		return
	}
	if m.screen == screenNowPlaying {
		m.screen = screenMenu
		return
	}
	if len(m.stack) > 1 {
		m.top().list.CancelPreview()
		m.stack = m.stack[:len(m.stack)-1]
		m.preview = ""
	}
}

func (m *Model) transport(op func() error) {
	if err := op(); err != nil {
		m.errText = err.Error()
	}
}

func (m *Model) setVolume(v float64) {
	m.eng.SetVolume(context.Background(), v)
	m.snap = m.eng.Snapshot()
}

func previewLabel(item scroll.Item) string {
	if t, ok := item.(scroll.TrackItem); ok && t.Song.ArtistName != "" {
		return t.Song.ArtistName + " · " + t.Label()
	}
	return item.Label()
}

// action identifies a bound key's effect.
type action int

const (
	actWheelForward action = iota
	actWheelBackward
	actSelect
	actLongPress
	actMenu
	actPlayPause
	actNextTrack
	actPrevTrack
	actVolumeUp
	actVolumeDown
	actQuit
)

type keymap map[string]action

// newKeymap expands the comma-separated key specs into a lookup table.
// The literal "space" maps to the space rune bubbletea reports.
func newKeymap(kb config.KeybindConfig) keymap {
	km := keymap{}
	bind := func(spec string, act action) {
		for _, k := range strings.Split(spec, ",") {
			k = strings.TrimSpace(k)
			if k == "space" {
				k = " "
			}
			if k != "" {
				km[k] = act
			}
		}
	}
	bind(kb.WheelForward, actWheelForward)
	bind(kb.WheelBackward, actWheelBackward)
	bind(kb.Select, actSelect)
	bind(kb.LongPress, actLongPress)
	bind(kb.Menu, actMenu)
	bind(kb.PlayPause, actPlayPause)
	bind(kb.NextTrack, actNextTrack)
	bind(kb.PrevTrack, actPrevTrack)
	bind(kb.VolumeUp, actVolumeUp)
	bind(kb.VolumeDown, actVolumeDown)
	bind(kb.Quit, actQuit)
	return km
}
