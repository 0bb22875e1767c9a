// Package engine is the playback core. It owns the queue, the current
// position, and the single output handle, and sequences every track
// change so that output events arriving asynchronously always observe
// consistent state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/clickwheel/clickwheel/internal/catalog"
	"github.com/clickwheel/clickwheel/internal/fade"
	"github.com/clickwheel/clickwheel/internal/output"
	"github.com/clickwheel/clickwheel/internal/preload"
	"github.com/clickwheel/clickwheel/internal/queue"
	"github.com/clickwheel/clickwheel/internal/scrobble"
	"github.com/clickwheel/clickwheel/internal/settings"
)

// nowPlayingArtworkPx is the artwork size resolved into the snapshot.
const nowPlayingArtworkPx = 512

// restartThresholdMs: skip-previous beyond this restarts the current
// track instead of moving the pointer.
const restartThresholdMs = 3000

// PlaybackInfo is the observed playback snapshot, recomputed from
// output events.
type PlaybackInfo struct {
	IsPlaying     bool
	IsPaused      bool
	IsLoading     bool
	CurrentTimeMs int
	DurationMs    int
	Percent       float64
}

// NowPlayingItem is the track currently bound to the output handle,
// enriched with a resolved artwork locator.
type NowPlayingItem struct {
	catalog.Track
	ArtworkURL string
}

// Snapshot is the read-only projection handed to the UI and the media
// bridge.
type Snapshot struct {
	Info       PlaybackInfo
	Now        *NowPlayingItem
	Queue      []catalog.Track
	QueueIndex int
	Settings   settings.Playback
}

// HasNext reports whether a next-track command would do anything.
func (s Snapshot) HasNext() bool {
	if len(s.Queue) == 0 {
		return false
	}
	return s.QueueIndex < len(s.Queue)-1 || s.Settings.LoopQueue
}

// Options carries the engine's collaborators. Catalog and Output are
// required; the rest degrade gracefully when nil.
type Options struct {
	Catalog  catalog.Client
	Output   output.Handle
	Store    *settings.Store
	Preload  *preload.Manager
	Notifier *scrobble.Notifier
	Logger   *slog.Logger

	// PreloadAhead is how many upcoming tracks to warm. Zero means the
	// default of two.
	PreloadAhead int
}

// Engine is the single stateful owner of queue and playback state. All
// mutation happens inside engine operations or the output event loop,
// serialized by one mutex.
type Engine struct {
	log      *slog.Logger
	catalog  catalog.Client
	out      output.Handle
	store    *settings.Store
	preload  *preload.Manager
	ahead    int
	notifier *scrobble.Notifier
	fades    *fade.Controller

	mu       sync.Mutex
	q        *queue.Queue
	playback settings.Playback
	info     PlaybackInfo
	now      *catalog.Track

	// per-track-instance flags, reset on every arm
	scrobbled      bool
	fadeOutStarted bool
	pendingFadeIn  bool

	// source-swap race guard: output pause/position events generated
	// by the swap itself must not be mistaken for user actions
	swapping    bool
	resumePause bool

	// removeFromQueue at the playing index pins playback to the
	// removed track until its natural end
	pinned bool

	subs []func(Snapshot)
}

// New builds an engine with settings loaded from the store (or
// defaults when no store is given).
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("engine: catalog client is required")
	}
	if opts.Output == nil {
		return nil, errors.New("engine: output handle is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		log:      logger,
		catalog:  opts.Catalog,
		out:      opts.Output,
		store:    opts.Store,
		preload:  opts.Preload,
		ahead:    opts.PreloadAhead,
		notifier: opts.Notifier,
		fades:    fade.New(),
		q:        queue.New(),
	}
	if e.ahead <= 0 {
		e.ahead = 2
	}
	e.playback = settings.Playback{Volume: 0.5, Quality: catalog.QualityRaw}
	if opts.Store != nil {
		pb, err := opts.Store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load playback settings: %w", err)
		}
		e.playback = pb
	}
	return e, nil
}

// Start begins consuming output events until ctx is cancelled or the
// event stream closes.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		events := e.out.Events()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				e.handleEvent(ev)
			}
		}
	}()
}

// Subscribe registers fn to run after every state change. Callbacks
// run outside the engine lock, so they may call back into operations.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// Snapshot returns the current projection.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Info:       e.info,
		Queue:      e.q.Items(),
		QueueIndex: e.q.CurrentIndex(),
		Settings:   e.playback,
	}
	if e.now != nil {
		snap.Now = &NowPlayingItem{
			Track:      *e.now,
			ArtworkURL: e.catalog.ArtworkURL(e.now.ArtworkRef, nowPlayingArtworkPx),
		}
	}
	return snap
}

func (e *Engine) publish() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	subs := slices.Clone(e.subs)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// resolve flattens a selection. The ok result is false for the silent
// no-op cases: unauthenticated, or an empty resolution.
func (e *Engine) resolve(ctx context.Context, sel catalog.Selection) ([]catalog.Track, bool, error) {
	if !e.catalog.IsAuthenticated() {
		e.log.Debug("transport op ignored, not authenticated")
		return nil, false, nil
	}
	tracks, err := e.catalog.Resolve(ctx, sel)
	if err != nil {
		return nil, false, fmt.Errorf("resolve selection: %w", err)
	}
	if len(tracks) == 0 {
		return nil, false, nil
	}
	return tracks, true, nil
}

// Play replaces the queue with the selection and starts the track at
// its start position. A hard replace: whatever was playing stops.
func (e *Engine) Play(ctx context.Context, sel catalog.Selection) error {
	tracks, ok, err := e.resolve(ctx, sel)
	if !ok {
		return err
	}
	e.mu.Lock()
	e.q.Replace(tracks, sel.StartPosition)
	t, _ := e.q.Current()
	e.armLocked(t, 0, false)
	e.mu.Unlock()
	e.publish()
	return nil
}

// PlayNext inserts the selection right after the current track. Falls
// back to Play when the queue is empty.
func (e *Engine) PlayNext(ctx context.Context, sel catalog.Selection) error {
	tracks, ok, err := e.resolve(ctx, sel)
	if !ok {
		return err
	}
	e.mu.Lock()
	if e.q.Len() == 0 {
		e.q.Replace(tracks, sel.StartPosition)
		t, _ := e.q.Current()
		e.armLocked(t, 0, false)
	} else {
		e.q.InsertAfterCurrent(tracks...)
		e.schedulePreloadLocked()
	}
	e.mu.Unlock()
	e.publish()
	return nil
}

// AddToQueue appends the selection to the tail. Falls back to Play
// when the queue is empty.
func (e *Engine) AddToQueue(ctx context.Context, sel catalog.Selection) error {
	tracks, ok, err := e.resolve(ctx, sel)
	if !ok {
		return err
	}
	e.mu.Lock()
	if e.q.Len() == 0 {
		e.q.Replace(tracks, sel.StartPosition)
		t, _ := e.q.Current()
		e.armLocked(t, 0, false)
	} else {
		e.q.Append(tracks...)
		e.schedulePreloadLocked()
	}
	e.mu.Unlock()
	e.publish()
	return nil
}

// TogglePlayPause flips the output paused state. The resulting state
// is observed through output events, not asserted here.
func (e *Engine) TogglePlayPause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.now == nil {
		return nil
	}
	return e.out.Pause(!e.info.IsPaused)
}

// SkipNext advances to the next track, wrapping to the head when
// queue-loop is on. No-op at the tail otherwise.
func (e *Engine) SkipNext() error {
	e.mu.Lock()
	if e.now == nil {
		e.mu.Unlock()
		return nil
	}
	switch {
	case e.q.HasNext():
		_ = e.q.SetCurrent(e.q.CurrentIndex() + 1)
	case e.playback.LoopQueue && e.q.Len() > 0:
		_ = e.q.SetCurrent(0)
	default:
		e.mu.Unlock()
		return nil
	}
	t, _ := e.q.Current()
	e.armLocked(t, 0, false)
	e.mu.Unlock()
	e.publish()
	return nil
}

// SkipPrevious restarts the current track when more than three seconds
// have elapsed, otherwise steps the pointer back. At the head it
// restarts from zero.
func (e *Engine) SkipPrevious() error {
	e.mu.Lock()
	if e.now == nil {
		e.mu.Unlock()
		return nil
	}
	if e.info.CurrentTimeMs > restartThresholdMs {
		err := e.out.SeekTo(0)
		e.mu.Unlock()
		return err
	}
	if idx := e.q.CurrentIndex(); idx > 0 && !e.pinned {
		_ = e.q.SetCurrent(idx - 1)
		t, _ := e.q.Current()
		e.armLocked(t, 0, false)
		e.mu.Unlock()
		e.publish()
		return nil
	}
	err := e.out.SeekTo(0)
	e.mu.Unlock()
	return err
}

// SeekToTime jumps to an absolute position. No state transition.
func (e *Engine) SeekToTime(ms int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.now == nil {
		return nil
	}
	return e.out.SeekTo(float64(ms) / 1000)
}

// RemoveFromQueue deletes the track at idx. Removing the playing index
// pins playback to the removed track until its natural end; the next
// arm then plays the new occupant of that slot.
func (e *Engine) RemoveFromQueue(idx int) error {
	e.mu.Lock()
	cur := e.q.CurrentIndex()
	if err := e.q.Remove(idx); err != nil {
		e.mu.Unlock()
		return err
	}
	if idx == cur && e.now != nil {
		e.pinned = true
	}
	e.schedulePreloadLocked()
	e.mu.Unlock()
	e.publish()
	return nil
}

// ClearQueue empties the queue, drops the now-playing item, and quiets
// the output.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	e.q.Clear()
	e.now = nil
	e.pinned = false
	e.pendingFadeIn = false
	e.fades.Cancel()
	if e.preload != nil {
		e.preload.Cancel()
	}
	_ = e.out.Pause(true)
	e.info = PlaybackInfo{}
	e.mu.Unlock()
	e.publish()
}

// ToggleLoop flips single-track loop.
func (e *Engine) ToggleLoop(ctx context.Context) {
	e.mu.Lock()
	e.playback.LoopTrack = !e.playback.LoopTrack
	on := e.playback.LoopTrack
	e.persistLocked(ctx, "loop_track", func() error { return e.store.SetLoopTrack(ctx, on) })
	e.mu.Unlock()
	e.publish()
}

// ToggleQueueLoop flips whole-queue loop.
func (e *Engine) ToggleQueueLoop(ctx context.Context) {
	e.mu.Lock()
	e.playback.LoopQueue = !e.playback.LoopQueue
	on := e.playback.LoopQueue
	e.persistLocked(ctx, "loop_queue", func() error { return e.store.SetLoopQueue(ctx, on) })
	e.mu.Unlock()
	e.publish()
}

// SetVolume sets the configured volume and applies it unless a fade is
// in flight (the fade ramps toward or away from the new value on its
// own schedule).
func (e *Engine) SetVolume(ctx context.Context, v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.mu.Lock()
	e.playback.Volume = v
	e.persistLocked(ctx, "volume", func() error { return e.store.SetVolume(ctx, v) })
	if !e.fades.FadingIn() && !e.fades.FadingOut() {
		_ = e.out.SetVolume(v)
	}
	e.mu.Unlock()
	e.publish()
}

// SetQuality switches the stream format. With a track active this is a
// seamless re-source: position and pause state carry over, fade timers
// are cancelled and the configured volume restored first.
func (e *Engine) SetQuality(ctx context.Context, q catalog.Quality) {
	e.mu.Lock()
	if q == e.playback.Quality {
		e.mu.Unlock()
		return
	}
	e.playback.Quality = q
	e.persistLocked(ctx, "quality", func() error { return e.store.SetQuality(ctx, q) })
	if e.now != nil {
		e.resourceLocked()
	}
	e.mu.Unlock()
	e.publish()
}

// SetFadeIn sets the fade-in window in seconds.
func (e *Engine) SetFadeIn(ctx context.Context, seconds int) error {
	if !settings.ValidFadeDuration(seconds) {
		return fmt.Errorf("invalid fade duration %d", seconds)
	}
	e.mu.Lock()
	e.playback.FadeInSec = seconds
	e.persistLocked(ctx, "fade_in", func() error { return e.store.SetFadeIn(ctx, seconds) })
	e.mu.Unlock()
	e.publish()
	return nil
}

// SetFadeOut sets the fade-out window in seconds.
func (e *Engine) SetFadeOut(ctx context.Context, seconds int) error {
	if !settings.ValidFadeDuration(seconds) {
		return fmt.Errorf("invalid fade duration %d", seconds)
	}
	e.mu.Lock()
	e.playback.FadeOutSec = seconds
	e.persistLocked(ctx, "fade_out", func() error { return e.store.SetFadeOut(ctx, seconds) })
	e.mu.Unlock()
	e.publish()
	return nil
}

// persistLocked writes one setting through the store. Persistence
// failures never fail the operation.
func (e *Engine) persistLocked(ctx context.Context, key string, write func() error) {
	if e.store == nil {
		return
	}
	if err := write(); err != nil {
		e.log.Warn("persist setting failed", slog.String("key", key), slog.Any("err", err))
	}
}

// armLocked binds t to the output and starts it. All per-track state
// is reset before the load is issued, so events arriving afterward
// observe a consistent new-track view.
func (e *Engine) armLocked(t catalog.Track, startAt float64, resumePaused bool) {
	e.fades.Cancel()
	e.scrobbled = false
	e.fadeOutStarted = false
	e.pinned = false
	e.now = &t
	e.swapping = true
	e.resumePause = resumePaused
	e.pendingFadeIn = e.playback.FadeInSec > 0 && !resumePaused
	e.info = PlaybackInfo{IsLoading: true, DurationMs: t.DurationMs}

	if e.pendingFadeIn {
		_ = e.out.SetVolume(0)
	} else {
		_ = e.out.SetVolume(e.playback.Volume)
	}
	url := e.catalog.StreamURL(t.ID, e.playback.Quality)
	if err := e.out.Load(url, startAt); err != nil {
		e.log.Error("load track failed", slog.String("track_id", t.ID), slog.Any("err", err))
		e.info.IsLoading = false
		e.info.IsPaused = true
		return
	}
	if e.notifier != nil {
		e.notifier.NowPlaying(t.ID)
	}
	e.schedulePreloadLocked()
}

// resourceLocked reloads the current track at the configured quality,
// preserving position and pause state. The scrobble flag deliberately
// survives: a quality switch is not a new track instance.
func (e *Engine) resourceLocked() {
	t := *e.now
	pos := float64(e.info.CurrentTimeMs) / 1000
	e.fades.Cancel()
	e.pendingFadeIn = false
	e.fadeOutStarted = false
	_ = e.out.SetVolume(e.playback.Volume)
	e.swapping = true
	e.resumePause = e.info.IsPaused
	e.info.IsLoading = true
	url := e.catalog.StreamURL(t.ID, e.playback.Quality)
	if err := e.out.Load(url, pos); err != nil {
		e.log.Error("quality re-source failed", slog.String("track_id", t.ID), slog.Any("err", err))
		e.info.IsLoading = false
		e.info.IsPaused = true
	}
	e.schedulePreloadLocked()
}

// schedulePreloadLocked (re)schedules warming of the next queue
// entries. Any change to the queue or position replaces the schedule.
func (e *Engine) schedulePreloadLocked() {
	if e.preload == nil {
		return
	}
	next := e.q.Upcoming(e.ahead)
	urls := make([]string, 0, len(next))
	for _, t := range next {
		urls = append(urls, e.catalog.StreamURL(t.ID, e.playback.Quality))
	}
	e.preload.Schedule(urls)
}

func (e *Engine) handleEvent(ev output.Event) {
	e.mu.Lock()
	changed := false

	if ev.Err != nil {
		e.log.Warn("output error", slog.Any("err", ev.Err))
		e.info.IsLoading = false
		e.info.IsPlaying = false
		e.info.IsPaused = true
		changed = true
	}

	if ev.Loaded {
		e.swapping = false
		e.info.IsLoading = false
		if e.resumePause {
			e.resumePause = false
			_ = e.out.Pause(true)
			e.info.IsPaused = true
			e.info.IsPlaying = false
		} else {
			e.info.IsPaused = false
			e.info.IsPlaying = true
			if e.pendingFadeIn {
				e.pendingFadeIn = false
				d := time.Duration(e.playback.FadeInSec) * time.Second
				e.fades.FadeIn(e.out, d, e.playback.Volume)
			}
		}
		changed = true
	}

	if ev.Duration != nil && !e.swapping {
		e.info.DurationMs = int(*ev.Duration * 1000)
		changed = true
	}

	if ev.TimePos != nil && !e.swapping {
		e.info.CurrentTimeMs = int(*ev.TimePos * 1000)
		if e.info.DurationMs > 0 {
			e.info.Percent = float64(e.info.CurrentTimeMs) / float64(e.info.DurationMs) * 100
		}
		e.checkScrobbleLocked()
		e.checkFadeOutLocked()
		changed = true
	}

	if ev.Paused != nil && !e.swapping {
		e.info.IsPaused = *ev.Paused
		e.info.IsPlaying = e.now != nil && !*ev.Paused && !e.info.IsLoading
		changed = true
	}

	if ev.Ended {
		e.advanceLocked()
		changed = true
	}

	e.mu.Unlock()
	if changed {
		e.publish()
	}
}

// checkScrobbleLocked submits the play-count record the first time the
// position crosses half the duration. The per-instance flag makes
// re-crossing the mark (seek back and forth) a no-op.
func (e *Engine) checkScrobbleLocked() {
	if e.scrobbled || e.notifier == nil || e.now == nil || e.info.DurationMs <= 0 {
		return
	}
	if e.info.CurrentTimeMs*2 >= e.info.DurationMs {
		e.scrobbled = true
		e.notifier.Scrobble(e.now.ID)
	}
}

// checkFadeOutLocked starts the one-shot fade-out once the remaining
// time falls inside the configured window. Never while a fade-in is
// still ramping, never twice per track.
func (e *Engine) checkFadeOutLocked() {
	if e.fadeOutStarted || e.playback.FadeOutSec <= 0 || e.info.DurationMs <= 0 {
		return
	}
	if e.fades.FadingIn() {
		return
	}
	remaining := e.info.DurationMs - e.info.CurrentTimeMs
	if remaining <= e.playback.FadeOutSec*1000 {
		e.fadeOutStarted = true
		e.fades.FadeOut(e.out, time.Duration(e.playback.FadeOutSec)*time.Second, nil)
	}
}

// advanceLocked handles natural end-of-stream. Check order: track
// loop, pinned-slot successor, next track, queue-loop wrap, terminal
// paused state with the queue left intact.
func (e *Engine) advanceLocked() {
	if e.now == nil {
		return
	}
	switch {
	case e.playback.LoopTrack:
		e.armLocked(*e.now, 0, false)
	case e.pinned && e.q.Len() > 0:
		t, _ := e.q.Current()
		e.armLocked(t, 0, false)
	case e.q.HasNext():
		_ = e.q.SetCurrent(e.q.CurrentIndex() + 1)
		t, _ := e.q.Current()
		e.armLocked(t, 0, false)
	case e.playback.LoopQueue && e.q.Len() > 0:
		_ = e.q.SetCurrent(0)
		t, _ := e.q.Current()
		e.armLocked(t, 0, false)
	default:
		e.pinned = false
		e.info.IsPlaying = false
		e.info.IsLoading = false
		e.info.IsPaused = true
	}
}
