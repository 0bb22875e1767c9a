// Package queue holds the ordered play queue and the current position.
// Insertion order is playback order; the playback engine is the only
// writer.
package queue

import (
	"errors"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

var ErrEmpty = errors.New("queue is empty")

// Queue maintains an ordered list of tracks and the current index.
// Whenever the queue is non-empty, 0 <= CurrentIndex() < Len().
type Queue struct {
	items   []catalog.Track
	current int
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Items() []catalog.Track {
	out := make([]catalog.Track, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) CurrentIndex() int { return q.current }

func (q *Queue) Current() (catalog.Track, error) {
	if len(q.items) == 0 {
		return catalog.Track{}, ErrEmpty
	}
	return q.items[q.current], nil
}

// At returns the track at idx.
func (q *Queue) At(idx int) (catalog.Track, error) {
	if idx < 0 || idx >= len(q.items) {
		return catalog.Track{}, errors.New("index out of range")
	}
	return q.items[idx], nil
}

// Replace swaps the whole queue and points at start. Out-of-range start
// positions clamp into bounds.
func (q *Queue) Replace(tracks []catalog.Track, start int) {
	q.items = make([]catalog.Track, len(tracks))
	copy(q.items, tracks)
	if start < 0 {
		start = 0
	}
	if start >= len(q.items) {
		start = max(0, len(q.items)-1)
	}
	q.current = start
}

// InsertAfterCurrent places tracks immediately after the current index,
// leaving the current position untouched.
func (q *Queue) InsertAfterCurrent(tracks ...catalog.Track) {
	if len(tracks) == 0 {
		return
	}
	idx := q.current + 1
	if idx > len(q.items) {
		idx = len(q.items)
	}
	rest := make([]catalog.Track, len(q.items[idx:]))
	copy(rest, q.items[idx:])
	q.items = append(q.items[:idx], append(tracks, rest...)...)
}

// Append adds tracks to the tail.
func (q *Queue) Append(tracks ...catalog.Track) {
	q.items = append(q.items, tracks...)
}

// Remove deletes the track at idx. Removing a track before the current
// one shifts the current index down with it; removing the current track
// leaves the index in place (re-clamped into bounds) so the next arm
// plays the new occupant of that slot.
func (q *Queue) Remove(idx int) error {
	if idx < 0 || idx >= len(q.items) {
		return errors.New("index out of range")
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	if idx < q.current {
		q.current--
	}
	if q.current >= len(q.items) {
		q.current = max(0, len(q.items)-1)
	}
	return nil
}

// SetCurrent moves the pointer to idx.
func (q *Queue) SetCurrent(idx int) error {
	if idx < 0 || idx >= len(q.items) {
		return errors.New("index out of range")
	}
	q.current = idx
	return nil
}

// HasNext reports whether a track follows the current one.
func (q *Queue) HasNext() bool {
	return q.current < len(q.items)-1
}

// Upcoming returns up to n tracks following the current one.
func (q *Queue) Upcoming(n int) []catalog.Track {
	var out []catalog.Track
	for i := q.current + 1; i < len(q.items) && len(out) < n; i++ {
		out = append(out, q.items[i])
	}
	return out
}

func (q *Queue) Clear() {
	q.items = nil
	q.current = 0
}
