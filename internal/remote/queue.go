package remote

import (
	"errors"
	"sync"

	"github.com/slowverb/slowverb/api"
)

// Queue holds the tracks reachable through next/previous commands.
type Queue struct {
	tracks []*api.Track
	index  int
	mu     sync.RWMutex
}

// NewQueue creates a new empty queue
func NewQueue() *Queue {
	return &Queue{tracks: make([]*api.Track, 0)}
}

// Add adds tracks to the end of the queue
func (q *Queue) Add(tracks ...*api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, tracks...)
}

// Set replaces the entire queue with new tracks
func (q *Queue) Set(tracks []*api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]*api.Track, len(tracks))
	copy(q.tracks, tracks)
	q.index = 0
}

// Current returns the current track
func (q *Queue) Current() *api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.tracks) == 0 || q.index < 0 || q.index >= len(q.tracks) {
		return nil
	}
	return q.tracks[q.index]
}

// Next moves to the next track and returns it, or nil at the end
func (q *Queue) Next() *api.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 || q.index >= len(q.tracks)-1 {
		return nil
	}
	q.index++
	return q.tracks[q.index]
}

// Previous moves to the previous track and returns it
func (q *Queue) Previous() *api.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}
	if q.index > 0 {
		q.index--
	}
	return q.tracks[q.index]
}

// JumpTo jumps to a specific index
func (q *Queue) JumpTo(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return errors.New("index out of bounds")
	}
	q.index = index
	return nil
}

// Len returns the number of tracks in the queue
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Index returns the current index
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

// All returns a copy of all tracks in the queue
func (q *Queue) All() []*api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*api.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}
