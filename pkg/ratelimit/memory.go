package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowKey struct {
	userID string
	action string
}

type Window struct {
	RequestCount int
	WindowStart  time.Time
}

// MemoryStore keeps windows in process. Suitable for a single instance and tests.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[windowKey]*Window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[windowKey]*Window)}
}

func (s *MemoryStore) Hit(_ context.Context, userID, action string, maxRequests int, window time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey{userID: userID, action: action}
	w, ok := s.windows[key]
	if !ok || w.WindowStart.Before(now.Add(-window)) {
		s.windows[key] = &Window{RequestCount: 1, WindowStart: now}
		return true, nil
	}

	if w.RequestCount >= maxRequests {
		return false, nil
	}
	w.RequestCount++
	return true, nil
}

// Window returns a copy of the current window for (userID, action).
func (s *MemoryStore) Window(userID, action string) (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[windowKey{userID: userID, action: action}]
	if !ok {
		return Window{}, false
	}
	return *w, true
}
