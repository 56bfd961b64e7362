// internal/store/memory.go
//
// In-memory registry of live learner sessions.
// Sessions own goroutines and timers, so they only ever live in memory; what
// survives restarts is the progress snapshot (see internal/progress).
//
// Characteristics:
//   - Stores *activity.Session keyed by session ID.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Sweep evicts idle sessions; the caller closes what was evicted.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/wholepart/internal/activity"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("store: session not found")

// Store defines the registry interface for sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *activity.Session) error

	// Get retrieves a session by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*activity.Session, error)

	// Delete removes a session; unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Sweep removes and returns sessions idle since before cutoff.
	Sweep(cutoff time.Time) []*activity.Session

	// Len reports the number of live sessions.
	Len() int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*activity.Session
}

func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*activity.Session)}
}

func (m *memory) Save(ctx context.Context, s *activity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*activity.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Sweep(cutoff time.Time) []*activity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var idle []*activity.Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	return idle
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunSweeper closes sessions idle for longer than ttl, checking every
// interval, until ctx is done.
func RunSweeper(ctx context.Context, st Store, ttl, interval time.Duration, onEvict func(*activity.Session)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, s := range st.Sweep(now.Add(-ttl)) {
				onEvict(s)
			}
		}
	}
}
