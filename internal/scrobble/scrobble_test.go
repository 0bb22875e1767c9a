package scrobble

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeBackend struct {
	mu         sync.Mutex
	nowPlaying []string
	scrobbled  []string
	err        error
}

func (f *fakeBackend) NowPlaying(ctx context.Context, trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, trackID)
	return f.err
}

func (f *fakeBackend) Scrobble(ctx context.Context, trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbled = append(f.scrobbled, trackID)
	return f.err
}

func TestNotifierReports(t *testing.T) {
	b := &fakeBackend{}
	n := NewNotifier(b, nil)
	n.NowPlaying("t1")
	n.Scrobble("t1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.nowPlaying) != 1 || b.nowPlaying[0] != "t1" {
		t.Fatalf("now playing = %v", b.nowPlaying)
	}
	if len(b.scrobbled) != 1 || b.scrobbled[0] != "t1" {
		t.Fatalf("scrobbled = %v", b.scrobbled)
	}
}

func TestNotifierSwallowsErrors(t *testing.T) {
	b := &fakeBackend{err: errors.New("server down")}
	n := NewNotifier(b, nil)
	n.Scrobble("t1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
