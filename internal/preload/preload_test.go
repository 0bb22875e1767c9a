package preload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingFetcher struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *recordingFetcher) Warm(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return f.err
}

func (f *recordingFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}

func TestScheduleWarmsAfterSettle(t *testing.T) {
	f := &recordingFetcher{}
	m := New(f, nil, WithSettleDelay(20*time.Millisecond))
	m.Schedule([]string{"u1", "u2"})

	if got := f.fetched(); len(got) != 0 {
		t.Fatalf("fetched before settle: %v", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.fetched()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := f.fetched()
	if len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Fatalf("fetched = %v", got)
	}
}

func TestCancelBeforeSettle(t *testing.T) {
	f := &recordingFetcher{}
	m := New(f, nil, WithSettleDelay(30*time.Millisecond))
	m.Schedule([]string{"u1"})
	m.Cancel()
	time.Sleep(80 * time.Millisecond)
	if got := f.fetched(); len(got) != 0 {
		t.Fatalf("cancelled schedule still fetched: %v", got)
	}
}

func TestRescheduleReplacesPending(t *testing.T) {
	f := &recordingFetcher{}
	m := New(f, nil, WithSettleDelay(30*time.Millisecond))
	m.Schedule([]string{"old"})
	m.Schedule([]string{"new"})
	time.Sleep(100 * time.Millisecond)
	got := f.fetched()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("fetched = %v, want only the replacement", got)
	}
}

func TestFetchErrorsAreSwallowed(t *testing.T) {
	f := &recordingFetcher{err: errors.New("boom")}
	m := New(f, nil, WithSettleDelay(10*time.Millisecond))
	m.Schedule([]string{"u1", "u2"})
	time.Sleep(80 * time.Millisecond)
	if got := f.fetched(); len(got) != 2 {
		t.Fatalf("errors stopped the warm loop: %v", got)
	}
}

func TestHTTPFetcherUsesHead(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))
	defer server.Close()

	f := &HTTPFetcher{Client: server.Client()}
	if err := f.Warm(context.Background(), server.URL); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if method != http.MethodHead {
		t.Fatalf("method = %s, want HEAD", method)
	}
}
