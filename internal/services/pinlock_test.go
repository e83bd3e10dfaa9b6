package services

import (
	"sync"
	"testing"
	"time"

	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/pkg/utils"
)

var pinTestCryptoOnce sync.Once

func pinProtectedUser(t *testing.T, pin string) *models.User {
	t.Helper()
	pinTestCryptoOnce.Do(func() {
		utils.ConfigureEncryption("pinlock-test-secret")
	})

	encrypted, err := utils.EncryptAESGCM(pin)
	if err != nil {
		t.Fatalf("failed encrypting pin: %v", err)
	}
	return &models.User{
		Email:                "pin@test.com",
		PasswordHash:         "hash",
		FullName:             "Pin User",
		Role:                 models.UserRoleUser,
		AppPin:               &encrypted,
		PinProtectionEnabled: true,
	}
}

func pressSequence(s *PinLockService, token string, user *models.User, digits string) PinPressResult {
	var result PinPressResult
	for _, d := range digits {
		result = s.Press(token, user, string(d))
	}
	return result
}

func TestPinLockUnlockFlow(t *testing.T) {
	user := pinProtectedUser(t, "4321")
	svc := NewPinLockService(50*time.Millisecond, time.Hour)

	if svc.Unlocked("session-a", user) {
		t.Fatalf("expected session locked with pin protection enabled")
	}
	if got := svc.PinLength(user); got != 4 {
		t.Fatalf("expected pin length 4, got %d", got)
	}

	result := pressSequence(svc, "session-a", user, "432")
	if result.Unlocked || result.Rejected {
		t.Fatalf("partial candidate must neither unlock nor reject: %+v", result)
	}
	if result.Entered != 3 {
		t.Fatalf("expected three entered digits, got %d", result.Entered)
	}

	result = svc.Press("session-a", user, "1")
	if !result.Unlocked {
		t.Fatalf("expected unlock on full correct pin")
	}
	if !svc.Unlocked("session-a", user) {
		t.Fatalf("expected session to stay unlocked")
	}

	// Other sessions of the same user stay locked.
	if svc.Unlocked("session-b", user) {
		t.Fatalf("unlock leaked across sessions")
	}
}

func TestPinLockRejectionWindow(t *testing.T) {
	user := pinProtectedUser(t, "4321")
	svc := NewPinLockService(300*time.Millisecond, time.Hour)

	current := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	result := pressSequence(svc, "s", user, "9999")
	if !result.Rejected {
		t.Fatalf("expected rejection on wrong full-length candidate")
	}

	// Input during the feedback window is swallowed.
	current = current.Add(100 * time.Millisecond)
	result = svc.Press("s", user, "4")
	if !result.Rejected {
		t.Fatalf("expected input ignored during rejection window")
	}
	if result.Entered != 4 {
		t.Fatalf("candidate must not change during rejection window, entered=%d", result.Entered)
	}

	// After the window the candidate clears and entry restarts.
	current = current.Add(300 * time.Millisecond)
	result = svc.Press("s", user, "4")
	if result.Rejected {
		t.Fatalf("expected fresh entry after rejection window")
	}
	if result.Entered != 1 {
		t.Fatalf("expected candidate reset to one digit, got %d", result.Entered)
	}

	result = pressSequence(svc, "s", user, "321")
	if !result.Unlocked {
		t.Fatalf("expected unlock after retry with correct pin")
	}
}

func TestPinLockInputRules(t *testing.T) {
	user := pinProtectedUser(t, "123456")
	svc := NewPinLockService(50*time.Millisecond, time.Hour)

	// Non-digit input is ignored.
	result := svc.Press("s", user, "x")
	if result.Entered != 0 {
		t.Fatalf("non-digit input must be ignored, entered=%d", result.Entered)
	}

	// The candidate caps at six digits even before comparison.
	result = pressSequence(svc, "s", user, "11111")
	if result.Entered != 5 {
		t.Fatalf("expected five entered, got %d", result.Entered)
	}
	result = svc.Press("s", user, "1")
	if !result.Rejected {
		t.Fatalf("expected comparison at stored length")
	}

	// Backspace edits the candidate.
	svc.Forget("s")
	pressSequence(svc, "s", user, "129")
	result = svc.Backspace("s", user)
	if result.Entered != 2 {
		t.Fatalf("expected backspace to drop a digit, entered=%d", result.Entered)
	}
	result = pressSequence(svc, "s", user, "3456")
	if !result.Unlocked {
		t.Fatalf("expected unlock after backspace correction")
	}
}

func TestPinLockFailsOpen(t *testing.T) {
	svc := NewPinLockService(50*time.Millisecond, time.Hour)

	// No pin stored: protection flag alone cannot lock anyone out.
	noPin := &models.User{
		Email:                "nopin@test.com",
		PasswordHash:         "hash",
		FullName:             "No Pin",
		Role:                 models.UserRoleUser,
		PinProtectionEnabled: true,
	}
	if !svc.Unlocked("s1", noPin) {
		t.Fatalf("expected fail open with no stored pin")
	}

	// Undecryptable pin: same fail-open behavior.
	garbage := "not-a-ciphertext"
	badPin := &models.User{
		Email:                "badpin@test.com",
		PasswordHash:         "hash",
		FullName:             "Bad Pin",
		Role:                 models.UserRoleUser,
		AppPin:               &garbage,
		PinProtectionEnabled: true,
	}
	if !svc.Unlocked("s2", badPin) {
		t.Fatalf("expected fail open with undecryptable pin")
	}

	// Protection disabled: always open.
	user := pinProtectedUser(t, "4321")
	user.PinProtectionEnabled = false
	if !svc.Unlocked("s3", user) {
		t.Fatalf("expected open session when protection disabled")
	}
}

func TestPinLockForgetRelocks(t *testing.T) {
	user := pinProtectedUser(t, "4321")
	svc := NewPinLockService(50*time.Millisecond, time.Hour)

	pressSequence(svc, "s", user, "4321")
	if !svc.Unlocked("s", user) {
		t.Fatalf("expected unlocked session")
	}

	svc.Forget("s")
	if svc.Unlocked("s", user) {
		t.Fatalf("expected fresh session to start locked after forget")
	}
}

func TestPinLockCleanupPrunesIdleSessions(t *testing.T) {
	user := pinProtectedUser(t, "4321")
	svc := NewPinLockService(50*time.Millisecond, 20*time.Millisecond)

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	svc.Unlocked("idle", user)
	current = current.Add(time.Minute)
	svc.Unlocked("fresh", user)

	svc.prune()

	svc.mu.Lock()
	_, idleKept := svc.sessions["idle"]
	_, freshKept := svc.sessions["fresh"]
	svc.mu.Unlock()
	if idleKept {
		t.Fatalf("expected idle session pruned")
	}
	if !freshKept {
		t.Fatalf("expected fresh session kept")
	}
}

func TestPinLockCleanupStops(t *testing.T) {
	user := pinProtectedUser(t, "4321")
	svc := NewPinLockService(50*time.Millisecond, time.Nanosecond)

	stop := svc.StartCleanup(5 * time.Millisecond)
	stop()

	svc.Unlocked("s", user)
	time.Sleep(30 * time.Millisecond)

	svc.mu.Lock()
	_, kept := svc.sessions["s"]
	svc.mu.Unlock()
	if !kept {
		t.Fatalf("expected no pruning after stop")
	}
}
