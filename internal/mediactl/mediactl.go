// Package mediactl mirrors playback state into an OS-level now-playing
// surface and relays its transport commands back into the engine. The
// surface is a capability interface so the bridge never touches a
// concrete OS API.
package mediactl

import (
	"log/slog"
	"sync"

	"github.com/clickwheel/clickwheel/internal/artwork"
	"github.com/clickwheel/clickwheel/internal/engine"
)

// Command names a transport affordance on the OS surface.
type Command string

const (
	CmdPlay         Command = "play"
	CmdPause        Command = "pause"
	CmdSeekTo       Command = "seekto"
	CmdPrevious     Command = "previoustrack"
	CmdNext         Command = "nexttrack"
	CmdSeekForward  Command = "seekforward"
	CmdSeekBackward Command = "seekbackward"
)

// PlaybackState is the coarse state shown on the surface.
type PlaybackState string

const (
	StateNone    PlaybackState = "none"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// Metadata is the now-playing record pushed to the surface.
type Metadata struct {
	Title   string
	Artist  string
	Album   string
	Artwork []artwork.Image
}

// Position carries the scrub-bar projection.
type Position struct {
	DurationSec float64
	PositionSec float64
	Rate        float64
}

// Handler receives a surface command. The argument is the seek target
// in seconds for CmdSeekTo, zero otherwise.
type Handler func(arg float64)

// Surface is the OS now-playing capability the bridge drives.
type Surface interface {
	SetMetadata(md Metadata)
	SetPlaybackState(state PlaybackState)
	SetPosition(pos Position)
	RegisterHandler(cmd Command, fn Handler)
	Withdraw(cmd Command)
}

// Transport is the slice of the engine the bridge forwards commands to.
type Transport interface {
	TogglePlayPause() error
	SeekToTime(ms int) error
	SkipNext() error
	SkipPrevious() error
}

// Bridge keeps one Surface synchronized with engine snapshots.
type Bridge struct {
	surface   Surface
	transport Transport
	art       *artwork.Resolver
	log       *slog.Logger

	mu        sync.Mutex
	last      engine.Snapshot
	nextAvail bool
	prevAvail bool
}

// New wires the always-available handlers and explicitly disables the
// coarse seek-forward/seek-backward affordances: transport here is
// queue-based, not scrub-based.
func New(surface Surface, transport Transport, art *artwork.Resolver, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		surface:   surface,
		transport: transport,
		art:       art,
		log:       logger,
	}
	surface.RegisterHandler(CmdPlay, func(float64) { b.play() })
	surface.RegisterHandler(CmdPause, func(float64) { b.pause() })
	surface.RegisterHandler(CmdSeekTo, func(seconds float64) {
		if err := transport.SeekToTime(int(seconds * 1000)); err != nil {
			b.log.Debug("surface seek failed", slog.Any("err", err))
		}
	})
	surface.Withdraw(CmdSeekForward)
	surface.Withdraw(CmdSeekBackward)
	return b
}

// Update mirrors a snapshot onto the surface. Wire it to
// engine.Subscribe.
func (b *Bridge) Update(snap engine.Snapshot) {
	b.mu.Lock()
	b.last = snap
	b.mu.Unlock()

	if snap.Now != nil {
		md := Metadata{
			Title:  snap.Now.Title,
			Artist: snap.Now.ArtistName,
			Album:  snap.Now.AlbumName,
		}
		if b.art != nil {
			md.Artwork = b.art.SurfaceSet(snap.Now.ArtworkRef)
		}
		b.surface.SetMetadata(md)
	} else {
		b.surface.SetMetadata(Metadata{})
	}

	b.surface.SetPlaybackState(stateFor(snap))
	rate := 0.0
	if snap.Info.IsPlaying {
		rate = 1
	}
	b.surface.SetPosition(Position{
		DurationSec: float64(snap.Info.DurationMs) / 1000,
		PositionSec: float64(snap.Info.CurrentTimeMs) / 1000,
		Rate:        rate,
	})

	b.syncHandlers(snap)
}

func stateFor(snap engine.Snapshot) PlaybackState {
	switch {
	case snap.Now == nil:
		return StateNone
	case snap.Info.IsPlaying:
		return StatePlaying
	default:
		return StatePaused
	}
}

// syncHandlers registers or withdraws previous/next as their
// availability changes. Next needs a next track or queue-loop;
// previous only needs a non-empty queue (it can always restart).
func (b *Bridge) syncHandlers(snap engine.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := snap.HasNext()
	if next != b.nextAvail {
		b.nextAvail = next
		if next {
			b.surface.RegisterHandler(CmdNext, func(float64) {
				if err := b.transport.SkipNext(); err != nil {
					b.log.Debug("surface next failed", slog.Any("err", err))
				}
			})
		} else {
			b.surface.Withdraw(CmdNext)
		}
	}

	prev := len(snap.Queue) > 0
	if prev != b.prevAvail {
		b.prevAvail = prev
		if prev {
			b.surface.RegisterHandler(CmdPrevious, func(float64) {
				if err := b.transport.SkipPrevious(); err != nil {
					b.log.Debug("surface previous failed", slog.Any("err", err))
				}
			})
		} else {
			b.surface.Withdraw(CmdPrevious)
		}
	}
}

func (b *Bridge) play() {
	b.mu.Lock()
	paused := !b.last.Info.IsPlaying && b.last.Now != nil
	b.mu.Unlock()
	if !paused {
		return
	}
	if err := b.transport.TogglePlayPause(); err != nil {
		b.log.Debug("surface play failed", slog.Any("err", err))
	}
}

func (b *Bridge) pause() {
	b.mu.Lock()
	playing := b.last.Info.IsPlaying
	b.mu.Unlock()
	if !playing {
		return
	}
	if err := b.transport.TogglePlayPause(); err != nil {
		b.log.Debug("surface pause failed", slog.Any("err", err))
	}
}
