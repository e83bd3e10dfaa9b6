package services

import (
	"strings"
	"sync"
	"time"

	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
)

// Candidate entry is capped at six digits regardless of the stored PIN length.
const pinCandidateMax = 6

// PinLockService is the per-session lock gate in front of the vault. A session
// starts locked exactly when the profile has PIN protection enabled; entering
// the correct PIN digit by digit unlocks it. A wrong full-length candidate is
// rejected with a short feedback delay during which input is ignored, after
// which the candidate resets.
//
// The stored PIN is encrypted at rest; if it cannot be decrypted the gate
// fails open rather than stranding the user behind a lock they cannot satisfy.
// There is intentionally no attempt limiting or backoff.
type PinLockService struct {
	mu         sync.Mutex
	clearDelay time.Duration
	maxIdle    time.Duration
	sessions   map[string]*pinSession
	now        func() time.Time
}

type pinSession struct {
	unlocked      bool
	candidate     string
	rejectedUntil time.Time
	lastSeen      time.Time
}

// PinPressResult describes the gate after a digit press.
type PinPressResult struct {
	Unlocked  bool `json:"unlocked"`
	Rejected  bool `json:"rejected"`
	Entered   int  `json:"entered"`
	PinLength int  `json:"pinLength"`
}

func NewPinLockService(clearDelay, maxIdle time.Duration) *PinLockService {
	return &PinLockService{
		clearDelay: clearDelay,
		maxIdle:    maxIdle,
		sessions:   map[string]*pinSession{},
		now:        time.Now,
	}
}

// storedPin decrypts the profile PIN. The second return is false when the
// gate should fail open (no pin stored or decryption failed).
func storedPin(user *models.User) (string, bool) {
	if user.AppPin == nil || *user.AppPin == "" {
		return "", false
	}
	pin, err := utils.DecryptAESGCM(*user.AppPin)
	if err != nil {
		logger.Warn("pin_decrypt_failed_fail_open", map[string]interface{}{
			"user_id": user.ID.String(),
		})
		return "", false
	}
	return pin, true
}

func (s *PinLockService) session(token string, user *models.User) *pinSession {
	sess, ok := s.sessions[token]
	if !ok {
		unlocked := true
		if user.PinProtectionEnabled {
			if _, ok := storedPin(user); ok {
				unlocked = false
			}
		}
		sess = &pinSession{unlocked: unlocked}
		s.sessions[token] = sess
	}
	sess.lastSeen = s.now()
	return sess
}

// Unlocked reports whether the session may pass the gate.
func (s *PinLockService) Unlocked(token string, user *models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(token, user).unlocked
}

// PinLength exposes the stored PIN's length so a client can render the right
// number of entry slots. Zero when the gate is open.
func (s *PinLockService) PinLength(user *models.User) int {
	pin, ok := storedPin(user)
	if !ok {
		return 0
	}
	return len(pin)
}

// Press feeds one digit into the session's candidate. When the candidate
// reaches the stored PIN's length it is compared: a match unlocks, a mismatch
// rejects and clears the candidate after the configured delay.
func (s *PinLockService) Press(token string, user *models.User, digit string) PinPressResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(token, user)
	pin, ok := storedPin(user)
	if !ok || !user.PinProtectionEnabled {
		sess.unlocked = true
	}

	result := PinPressResult{PinLength: len(pin)}
	if sess.unlocked {
		result.Unlocked = true
		return result
	}

	now := s.now()
	if now.Before(sess.rejectedUntil) {
		// Feedback pulse still showing; ignore input.
		result.Rejected = true
		result.Entered = len(sess.candidate)
		return result
	}
	if !sess.rejectedUntil.IsZero() {
		sess.rejectedUntil = time.Time{}
		sess.candidate = ""
	}

	if len(digit) == 1 && strings.ContainsAny(digit, "0123456789") && len(sess.candidate) < pinCandidateMax {
		sess.candidate += digit
	}

	if len(sess.candidate) == len(pin) {
		if sess.candidate == pin {
			sess.unlocked = true
			sess.candidate = ""
			result.Unlocked = true
			return result
		}
		sess.rejectedUntil = now.Add(s.clearDelay)
		result.Rejected = true
	}

	result.Entered = len(sess.candidate)
	return result
}

// Backspace drops the candidate's last digit.
func (s *PinLockService) Backspace(token string, user *models.User) PinPressResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(token, user)
	pin, _ := storedPin(user)
	if len(sess.candidate) > 0 && !s.now().Before(sess.rejectedUntil) {
		sess.candidate = sess.candidate[:len(sess.candidate)-1]
	}
	return PinPressResult{
		Unlocked:  sess.unlocked,
		Entered:   len(sess.candidate),
		PinLength: len(pin),
	}
}

// Forget drops a session (sign-out); the next request starts locked again.
func (s *PinLockService) Forget(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// StartCleanup prunes idle sessions so the map does not grow unbounded. The
// returned stop function ends the goroutine; main calls it on shutdown.
func (s *PinLockService) StartCleanup(interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.prune()
			}
		}
	}()
	return func() { close(done) }
}

func (s *PinLockService) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxIdle)
	for token, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, token)
		}
	}
}
