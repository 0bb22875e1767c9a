// Package scrobble reports play events to the catalog backend. All calls
// are fire-and-forget: network errors are logged and swallowed so they
// never block or fail playback.
package scrobble

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Backend is the slice of the catalog client the notifier needs.
type Backend interface {
	NowPlaying(ctx context.Context, trackID string) error
	Scrobble(ctx context.Context, trackID string) error
}

// Notifier fans play events out to the backend on background goroutines.
type Notifier struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(backend Backend, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		backend: backend,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// NowPlaying reports that a track was armed. Best-effort.
func (n *Notifier) NowPlaying(trackID string) {
	n.submit(trackID, "now playing", n.backend.NowPlaying)
}

// Scrobble submits a play-count record. Best-effort.
func (n *Notifier) Scrobble(trackID string) {
	n.submit(trackID, "scrobble", n.backend.Scrobble)
}

func (n *Notifier) submit(trackID, kind string, fn func(context.Context, string) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := fn(ctx, trackID); err != nil {
			n.logger.Debug("scrobble report failed",
				slog.String("kind", kind),
				slog.String("track_id", trackID),
				slog.Any("err", err))
		}
	}()
}

// Wait blocks until in-flight reports finish or ctx is cancelled.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
