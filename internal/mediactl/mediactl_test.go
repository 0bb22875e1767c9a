package mediactl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/clickwheel/clickwheel/internal/artwork"
	"github.com/clickwheel/clickwheel/internal/catalog"
	"github.com/clickwheel/clickwheel/internal/engine"
	"github.com/clickwheel/clickwheel/internal/settings"
)

type fakeSurface struct {
	mu        sync.Mutex
	handlers  map[Command]Handler
	withdrawn map[Command]bool
	metadata  []Metadata
	states    []PlaybackState
	positions []Position
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		handlers:  make(map[Command]Handler),
		withdrawn: make(map[Command]bool),
	}
}

func (s *fakeSurface) SetMetadata(md Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = append(s.metadata, md)
}

func (s *fakeSurface) SetPlaybackState(state PlaybackState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *fakeSurface) SetPosition(pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, pos)
}

func (s *fakeSurface) RegisterHandler(cmd Command, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[cmd] = fn
	delete(s.withdrawn, cmd)
}

func (s *fakeSurface) Withdraw(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, cmd)
	s.withdrawn[cmd] = true
}

func (s *fakeSurface) handler(cmd Command) (Handler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, ok := s.handlers[cmd]
	return fn, ok
}

func (s *fakeSurface) isWithdrawn(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withdrawn[cmd]
}

type fakeTransport struct {
	toggles int
	seeks   []int
	nexts   int
	prevs   int
}

func (f *fakeTransport) TogglePlayPause() error { f.toggles++; return nil }
func (f *fakeTransport) SeekToTime(ms int) error {
	f.seeks = append(f.seeks, ms)
	return nil
}
func (f *fakeTransport) SkipNext() error     { f.nexts++; return nil }
func (f *fakeTransport) SkipPrevious() error { f.prevs++; return nil }

type staticArtwork struct{}

func (staticArtwork) ArtworkURL(ref string, sizePx int) string {
	return fmt.Sprintf("art://%s?size=%d", ref, sizePx)
}

func newBridge(t *testing.T) (*Bridge, *fakeSurface, *fakeTransport) {
	t.Helper()
	surface := newFakeSurface()
	transport := &fakeTransport{}
	art, err := artwork.NewResolver(staticArtwork{}, 16)
	if err != nil {
		t.Fatalf("artwork resolver: %v", err)
	}
	return New(surface, transport, art, nil), surface, transport
}

func playingSnapshot(queue []catalog.Track, index int) engine.Snapshot {
	now := engine.NowPlayingItem{Track: queue[index], ArtworkURL: "art://x"}
	return engine.Snapshot{
		Info: engine.PlaybackInfo{
			IsPlaying:     true,
			CurrentTimeMs: 12000,
			DurationMs:    200000,
		},
		Now:        &now,
		Queue:      queue,
		QueueIndex: index,
		Settings:   settings.Playback{Volume: 0.5},
	}
}

func tracks(ids ...string) []catalog.Track {
	out := make([]catalog.Track, len(ids))
	for i, id := range ids {
		out[i] = catalog.Track{ID: id, Title: id, ArtistName: "artist", AlbumName: "album", ArtworkRef: "ref-" + id}
	}
	return out
}

func TestNewDisablesCoarseSeek(t *testing.T) {
	_, surface, _ := newBridge(t)
	if !surface.isWithdrawn(CmdSeekForward) || !surface.isWithdrawn(CmdSeekBackward) {
		t.Fatal("coarse seek affordances not withdrawn")
	}
	for _, cmd := range []Command{CmdPlay, CmdPause, CmdSeekTo} {
		if _, ok := surface.handler(cmd); !ok {
			t.Fatalf("%s handler missing", cmd)
		}
	}
}

func TestUpdateMirrorsMetadataAndPosition(t *testing.T) {
	b, surface, _ := newBridge(t)
	b.Update(playingSnapshot(tracks("a", "b"), 0))

	surface.mu.Lock()
	defer surface.mu.Unlock()
	if len(surface.metadata) != 1 {
		t.Fatalf("metadata pushes = %d", len(surface.metadata))
	}
	md := surface.metadata[0]
	if md.Title != "a" || md.Artist != "artist" || md.Album != "album" {
		t.Fatalf("metadata = %+v", md)
	}
	if len(md.Artwork) != len(artwork.MediaSurfaceSizes) {
		t.Fatalf("artwork variants = %d, want %d", len(md.Artwork), len(artwork.MediaSurfaceSizes))
	}
	if surface.states[len(surface.states)-1] != StatePlaying {
		t.Fatalf("state = %s", surface.states[len(surface.states)-1])
	}
	pos := surface.positions[len(surface.positions)-1]
	if pos.PositionSec != 12 || pos.DurationSec != 200 || pos.Rate != 1 {
		t.Fatalf("position = %+v", pos)
	}
}

func TestNextWithdrawnAtTailWithoutQueueLoop(t *testing.T) {
	b, surface, _ := newBridge(t)

	b.Update(playingSnapshot(tracks("a", "b"), 0))
	if _, ok := surface.handler(CmdNext); !ok {
		t.Fatal("next unavailable with a following track")
	}

	b.Update(playingSnapshot(tracks("a", "b"), 1))
	if !surface.isWithdrawn(CmdNext) {
		t.Fatal("next still registered at the tail")
	}

	snap := playingSnapshot(tracks("a", "b"), 1)
	snap.Settings.LoopQueue = true
	b.Update(snap)
	if _, ok := surface.handler(CmdNext); !ok {
		t.Fatal("queue-loop should re-enable next at the tail")
	}
}

func TestPreviousWithdrawnOnlyWhenQueueEmpty(t *testing.T) {
	b, surface, _ := newBridge(t)

	b.Update(playingSnapshot(tracks("a"), 0))
	if _, ok := surface.handler(CmdPrevious); !ok {
		t.Fatal("previous unavailable with a non-empty queue")
	}

	b.Update(engine.Snapshot{})
	if !surface.isWithdrawn(CmdPrevious) {
		t.Fatal("previous still registered with an empty queue")
	}
}

func TestCommandsForwardToTransport(t *testing.T) {
	b, surface, transport := newBridge(t)
	b.Update(playingSnapshot(tracks("a", "b"), 0))

	if fn, ok := surface.handler(CmdSeekTo); ok {
		fn(42.5)
	}
	if len(transport.seeks) != 1 || transport.seeks[0] != 42500 {
		t.Fatalf("seeks = %v", transport.seeks)
	}

	if fn, ok := surface.handler(CmdNext); ok {
		fn(0)
	}
	if transport.nexts != 1 {
		t.Fatalf("nexts = %d", transport.nexts)
	}
	if fn, ok := surface.handler(CmdPrevious); ok {
		fn(0)
	}
	if transport.prevs != 1 {
		t.Fatalf("prevs = %d", transport.prevs)
	}
}

func TestPlayPauseRespectObservedState(t *testing.T) {
	b, surface, transport := newBridge(t)
	b.Update(playingSnapshot(tracks("a"), 0))

	// already playing: play is a no-op, pause toggles
	if fn, ok := surface.handler(CmdPlay); ok {
		fn(0)
	}
	if transport.toggles != 0 {
		t.Fatalf("play while playing toggled %d times", transport.toggles)
	}
	if fn, ok := surface.handler(CmdPause); ok {
		fn(0)
	}
	if transport.toggles != 1 {
		t.Fatalf("pause while playing toggled %d times", transport.toggles)
	}

	snap := playingSnapshot(tracks("a"), 0)
	snap.Info.IsPlaying = false
	snap.Info.IsPaused = true
	b.Update(snap)
	if fn, ok := surface.handler(CmdPlay); ok {
		fn(0)
	}
	if transport.toggles != 2 {
		t.Fatalf("play while paused toggled %d times", transport.toggles)
	}
}
