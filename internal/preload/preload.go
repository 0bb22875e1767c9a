// Package preload opportunistically warms upcoming stream locators so the
// next track starts without a network stall. Fetches are headers-only and
// best-effort; failures never disturb playback.
package preload

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultSettleDelay is how long the queue must stay stable after a track
// change before preloading starts.
const DefaultSettleDelay = 2 * time.Second

// Fetcher warms a single locator.
type Fetcher interface {
	Warm(ctx context.Context, url string) error
}

// HTTPFetcher warms locators with a HEAD request, pulling headers into
// connection caches without downloading audio.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Warm(ctx context.Context, url string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Manager owns at most one pending preload schedule. Scheduling replaces
// and cancels any earlier schedule, fired or not.
type Manager struct {
	fetcher Fetcher
	logger  *slog.Logger
	settle  time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

type Option func(*Manager)

// WithSettleDelay overrides the settle delay. Used by tests.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

func New(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		fetcher: fetcher,
		logger:  logger,
		settle:  DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schedule arranges for urls to be warmed once the settle delay elapses.
// Any earlier schedule and its in-flight fetches are cancelled first.
func (m *Manager) Schedule(urls []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	if len(urls) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.timer = time.AfterFunc(m.settle, func() {
		m.warm(ctx, urls)
	})
}

// Cancel drops the pending schedule and aborts in-flight fetches.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *Manager) cancelLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) warm(ctx context.Context, urls []string) {
	for _, u := range urls {
		if ctx.Err() != nil {
			return
		}
		if err := m.fetcher.Warm(ctx, u); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Debug("preload failed", slog.String("url", u), slog.Any("err", err))
		}
	}
}
