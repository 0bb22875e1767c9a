package queue

import (
	"fmt"
	"testing"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

func sampleTracks(n int) []catalog.Track {
	var out []catalog.Track
	for i := 0; i < n; i++ {
		out = append(out, catalog.Track{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("Track %d", i)})
	}
	return out
}

func checkInvariant(t *testing.T, q *Queue) {
	t.Helper()
	if q.Len() == 0 {
		return
	}
	if q.CurrentIndex() < 0 || q.CurrentIndex() >= q.Len() {
		t.Fatalf("current index %d out of range [0,%d)", q.CurrentIndex(), q.Len())
	}
}

func TestReplaceStartPosition(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(3), 1)
	cur, err := q.Current()
	if err != nil || cur.ID != "t1" {
		t.Fatalf("expected t1, got %v err %v", cur, err)
	}
	checkInvariant(t, q)

	q.Replace(sampleTracks(2), 7)
	if q.CurrentIndex() != 1 {
		t.Fatalf("start clamped: expected 1, got %d", q.CurrentIndex())
	}
	checkInvariant(t, q)
}

func TestInsertAfterCurrent(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(3), 1)
	q.InsertAfterCurrent(catalog.Track{ID: "x"}, catalog.Track{ID: "y"})
	items := q.Items()
	want := []string{"t0", "t1", "x", "y", "t2"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("items[%d] = %s, want %s (all: %v)", i, items[i].ID, id, items)
		}
	}
	if q.CurrentIndex() != 1 {
		t.Fatalf("current moved to %d", q.CurrentIndex())
	}
}

func TestRemoveBeforeCurrent(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(4), 2)
	if err := q.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if q.CurrentIndex() != 1 {
		t.Fatalf("expected current 1, got %d", q.CurrentIndex())
	}
	cur, _ := q.Current()
	if cur.ID != "t2" {
		t.Fatalf("expected current track t2, got %s", cur.ID)
	}
	checkInvariant(t, q)
}

func TestRemoveAtCurrent(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(3), 1)
	if err := q.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Index stays put so the shifted-in track occupies the slot.
	if q.CurrentIndex() != 1 {
		t.Fatalf("expected current 1, got %d", q.CurrentIndex())
	}
	cur, _ := q.Current()
	if cur.ID != "t2" {
		t.Fatalf("expected t2 in slot, got %s", cur.ID)
	}
	checkInvariant(t, q)
}

func TestRemoveLastClampsCurrent(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(2), 1)
	if err := q.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if q.CurrentIndex() != 0 {
		t.Fatalf("expected clamp to 0, got %d", q.CurrentIndex())
	}
	checkInvariant(t, q)
}

func TestRemoveAfterCurrent(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(3), 0)
	if err := q.Remove(2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if q.CurrentIndex() != 0 {
		t.Fatalf("expected current unchanged, got %d", q.CurrentIndex())
	}
	checkInvariant(t, q)
}

func TestUpcoming(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(5), 1)
	next := q.Upcoming(2)
	if len(next) != 2 || next[0].ID != "t2" || next[1].ID != "t3" {
		t.Fatalf("upcoming = %v", next)
	}
	q.SetCurrent(4)
	if got := q.Upcoming(2); len(got) != 0 {
		t.Fatalf("expected no upcoming at tail, got %v", got)
	}
}

func TestClear(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(3), 2)
	q.Clear()
	if q.Len() != 0 || q.CurrentIndex() != 0 {
		t.Fatalf("clear left len=%d current=%d", q.Len(), q.CurrentIndex())
	}
	if _, err := q.Current(); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
