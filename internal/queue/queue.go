// Package queue provides the per-player playback queue.
//
// Queue operations are orders of magnitude less frequent than anything on
// the audio path, so a single mutex per queue is plenty.
package queue

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/glizzus/tempo/internal/track"
)

// ErrNilTrack is returned when a nil track is enqueued.
var ErrNilTrack = fmt.Errorf("cannot enqueue a nil track")

// ErrEmpty is returned by Peek when the queue has no items.
var ErrEmpty = fmt.Errorf("queue is empty")

// RangeError reports an out-of-bounds RemoveRange call.
type RangeError struct {
	Index int
	Count int
	Size  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range [%d, %d) is out of bounds for queue of size %d", e.Index, e.Index+e.Count, e.Size)
}

var _ error = (*RangeError)(nil)

// Queue is a thread-safe FIFO of track descriptors.
// Duplicates are permitted; nil entries are not.
type Queue struct {
	mu    sync.Mutex
	items []*track.Track
}

func New() *Queue {
	return &Queue{}
}

// Enqueue appends a track to the tail of the queue.
func (q *Queue) Enqueue(t *track.Track) error {
	if t == nil {
		return ErrNilTrack
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, t)
	return nil
}

// EnqueueAll appends the given tracks in order. If any track is nil,
// nothing is enqueued.
func (q *Queue) EnqueueAll(tracks ...*track.Track) error {
	for _, t := range tracks {
		if t == nil {
			return ErrNilTrack
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, tracks...)
	return nil
}

// TryDequeue removes and returns the head of the queue.
// It reports false if the queue is empty.
func (q *Queue) TryDequeue() (*track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() (*track.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, ErrEmpty
	}
	return q.items[0], nil
}

// Remove deletes the first entry with the same descriptor hash as t.
// It is a no-op if no such entry exists.
func (q *Queue) Remove(t *track.Track) {
	if t == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.Hash == t.Hash {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// RemoveRange removes count entries starting at index and returns them
// in order. The relative order of the remaining entries is preserved.
func (q *Queue) RemoveRange(index, count int) ([]*track.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || count < 0 || count > len(q.items)-index {
		return nil, &RangeError{Index: index, Count: count, Size: len(q.items)}
	}
	removed := make([]*track.Track, count)
	copy(removed, q.items[index:index+count])
	q.items = append(q.items[:index], q.items[index+count:]...)
	return removed, nil
}

// Shuffle reorders the queue in place. Queues with fewer than
// two entries are left untouched.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) < 2 {
		return
	}
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

// Clear removes every entry.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Len reports the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queued tracks in order.
func (q *Queue) Snapshot() []*track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := make([]*track.Track, len(q.items))
	copy(cp, q.items)
	return cp
}
