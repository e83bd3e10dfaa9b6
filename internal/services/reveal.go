package services

import (
	"sync"
	"time"
)

// RevealService tracks temporary reveal windows for sensitive card fields
// (CVV/PIN). A window is keyed by session token and card id so a reveal never
// leaks across sessions. Opening an already-open window restarts the
// countdown; on expiry the window closes itself.
type RevealService struct {
	mu     sync.Mutex
	window time.Duration
	open   map[string]*revealEntry
}

type revealEntry struct {
	timer     *time.Timer
	expiresAt time.Time
}

func NewRevealService(window time.Duration) *RevealService {
	return &RevealService{
		window: window,
		open:   map[string]*revealEntry{},
	}
}

func revealKey(sessionToken, cardID string) string {
	return sessionToken + "|" + cardID
}

// Reveal opens (or restarts) the reveal window and returns its expiry time.
func (s *RevealService) Reveal(sessionToken, cardID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := revealKey(sessionToken, cardID)
	if entry, ok := s.open[key]; ok {
		entry.timer.Stop()
	}

	entry := &revealEntry{expiresAt: time.Now().Add(s.window)}
	entry.timer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Stop returns false once the callback is in flight, so a restart
		// can race a stale callback. Only the owning entry closes the window.
		if s.open[key] == entry {
			delete(s.open, key)
		}
	})
	s.open[key] = entry
	return entry.expiresAt
}

// Hide closes the window immediately.
func (s *RevealService) Hide(sessionToken, cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := revealKey(sessionToken, cardID)
	if entry, ok := s.open[key]; ok {
		entry.timer.Stop()
		delete(s.open, key)
	}
}

// Revealed reports whether the window is currently open.
func (s *RevealService) Revealed(sessionToken, cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.open[revealKey(sessionToken, cardID)]
	if !ok {
		return false
	}
	// The timer callback may not have fired yet.
	return time.Now().Before(entry.expiresAt)
}

// ExpiresAt returns the window's deadline, or false if none is open.
func (s *RevealService) ExpiresAt(sessionToken, cardID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.open[revealKey(sessionToken, cardID)]
	if !ok {
		return time.Time{}, false
	}
	return entry.expiresAt, true
}

// Stop cancels every pending window. Called on shutdown so no timer callback
// runs against a torn-down service.
func (s *RevealService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.open {
		entry.timer.Stop()
		delete(s.open, key)
	}
}
