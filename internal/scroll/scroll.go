// Package scroll is the deterministic list-scroll engine behind the
// menus. It maintains a selection index and a pixel scroll offset over
// a dynamically-sized item list, keeping the selected row fully inside
// the viewport at all times.
package scroll

import (
	"slices"
	"sync"
	"time"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

// DefaultPreviewDelay is how long scrolling must settle before the
// preview notification fires.
const DefaultPreviewDelay = 750 * time.Millisecond

// Item is the tagged union of menu entry kinds. Confirm dispatch
// switches exhaustively over the concrete type.
type Item interface {
	isItem()
	Label() string
}

// TrackItem plays a song, optionally in the context of a surrounding
// song list (select a song in an album, play the album from there).
type TrackItem struct {
	Name     string
	Song     catalog.Track
	Songs    []catalog.Track
	Position int
}

// ViewItem navigates to a sub-list.
type ViewItem struct {
	Name   string
	ViewID string
}

// LinkItem opens an external locator.
type LinkItem struct {
	Name string
	URL  string
}

// ActionItem runs an inline side effect.
type ActionItem struct {
	Name string
	Run  func()
}

// ActionSheetItem opens a modal action sheet.
type ActionSheetItem struct {
	Name    string
	SheetID string
}

// PopupItem opens a modal popup.
type PopupItem struct {
	Name    string
	PopupID string
}

func (TrackItem) isItem()       {}
func (ViewItem) isItem()        {}
func (LinkItem) isItem()        {}
func (ActionItem) isItem()      {}
func (ActionSheetItem) isItem() {}
func (PopupItem) isItem()       {}

func (i TrackItem) Label() string       { return i.Name }
func (i ViewItem) Label() string        { return i.Name }
func (i LinkItem) Label() string        { return i.Name }
func (i ActionItem) Label() string      { return i.Name }
func (i ActionSheetItem) Label() string { return i.Name }
func (i PopupItem) Label() string       { return i.Name }

// Dispatcher receives the side effect of a confirmed or long-pressed
// item. Implemented by the app layer.
type Dispatcher interface {
	PlayTrack(item TrackItem)
	OpenView(item ViewItem)
	OpenLink(item LinkItem)
	RunAction(item ActionItem)
	OpenActionSheet(item ActionSheetItem)
	OpenPopup(item PopupItem)

	// Context handles a long-press on any item kind.
	Context(item Item)
}

// State is the observable scroll position.
type State struct {
	SelectedIndex int
	ScrollOffset  int // pixels
}

// List holds the scroll state for one mounted menu.
type List struct {
	mu           sync.Mutex
	items        []Item
	itemHeight   int
	visibleCount int
	state        State

	previewDelay time.Duration
	previewTimer *time.Timer
	onPreview    func(index int, item Item)
}

type Option func(*List)

// WithPreview registers the debounced preview callback.
func WithPreview(fn func(index int, item Item)) Option {
	return func(l *List) { l.onPreview = fn }
}

// WithPreviewDelay overrides the settle delay. Used by tests.
func WithPreviewDelay(d time.Duration) Option {
	return func(l *List) { l.previewDelay = d }
}

func NewList(items []Item, itemHeight, visibleCount int, opts ...Option) *List {
	l := &List{
		items:        items,
		itemHeight:   itemHeight,
		visibleCount: visibleCount,
		previewDelay: DefaultPreviewDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current selection and offset.
func (l *List) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Len returns the item count.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Selected returns the item under the cursor, or nil when empty.
func (l *List) Selected() Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil
	}
	return l.items[l.state.SelectedIndex]
}

// Window returns the items currently inside the viewport and the index
// of the first one.
func (l *List) Window() ([]Item, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 || l.itemHeight <= 0 {
		return nil, 0
	}
	first := l.state.ScrollOffset / l.itemHeight
	last := first + l.visibleCount
	if last > len(l.items) {
		last = len(l.items)
	}
	return slices.Clone(l.items[first:last]), first
}

// SetItems swaps the item list. If the selection falls out of range,
// both the selection and the offset reset to 0; otherwise the offset
// is recomputed against the new list size.
func (l *List) SetItems(items []Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
	if l.state.SelectedIndex >= len(items) {
		l.state = State{}
		return
	}
	l.recomputeLocked()
}

// StepForward advances the selection one row.
func (l *List) StepForward() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.SelectedIndex < len(l.items)-1 {
		l.state.SelectedIndex++
		l.recomputeLocked()
		l.schedulePreviewLocked()
	}
	return l.state
}

// StepBackward moves the selection one row up.
func (l *List) StepBackward() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.SelectedIndex > 0 {
		l.state.SelectedIndex--
		l.recomputeLocked()
		l.schedulePreviewLocked()
	}
	return l.state
}

// recomputeLocked scrolls just enough to keep the selected row fully
// inside the viewport, then clamps into [0, maxScroll].
func (l *List) recomputeLocked() {
	maxScroll := (len(l.items) - l.visibleCount) * l.itemHeight
	if maxScroll <= 0 {
		l.state.ScrollOffset = 0
		return
	}
	top := l.state.SelectedIndex * l.itemHeight
	bottom := top + l.itemHeight
	viewport := l.visibleCount * l.itemHeight
	switch {
	case top < l.state.ScrollOffset:
		l.state.ScrollOffset = top
	case bottom > l.state.ScrollOffset+viewport:
		l.state.ScrollOffset = bottom - viewport
	}
	if l.state.ScrollOffset < 0 {
		l.state.ScrollOffset = 0
	}
	if l.state.ScrollOffset > maxScroll {
		l.state.ScrollOffset = maxScroll
	}
}

// Confirm dispatches the selected item by kind. A pending preview is
// cancelled: confirmation navigates away from the list.
func (l *List) Confirm(d Dispatcher) {
	l.mu.Lock()
	l.cancelPreviewLocked()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return
	}
	item := l.items[l.state.SelectedIndex]
	l.mu.Unlock()

	switch it := item.(type) {
	case TrackItem:
		d.PlayTrack(it)
	case ViewItem:
		d.OpenView(it)
	case LinkItem:
		d.OpenLink(it)
	case ActionItem:
		d.RunAction(it)
	case ActionSheetItem:
		d.OpenActionSheet(it)
	case PopupItem:
		d.OpenPopup(it)
	}
}

// LongPress dispatches a context event for the selected item.
func (l *List) LongPress(d Dispatcher) {
	l.mu.Lock()
	l.cancelPreviewLocked()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return
	}
	item := l.items[l.state.SelectedIndex]
	l.mu.Unlock()
	d.Context(item)
}

// CancelPreview drops any pending preview notification.
func (l *List) CancelPreview() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelPreviewLocked()
}

func (l *List) cancelPreviewLocked() {
	if l.previewTimer != nil {
		l.previewTimer.Stop()
		l.previewTimer = nil
	}
}

// schedulePreviewLocked (re)starts the settle timer. Scrolling again
// before it fires replaces the pending notification.
func (l *List) schedulePreviewLocked() {
	if l.onPreview == nil {
		return
	}
	l.cancelPreviewLocked()
	idx := l.state.SelectedIndex
	item := l.items[idx]
	l.previewTimer = time.AfterFunc(l.previewDelay, func() {
		l.onPreview(idx, item)
	})
}
