package utils

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("walletpass123")
	if err != nil {
		t.Fatalf("expected hashing to succeed, got error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}

	// Salting makes every hash of the same input distinct.
	again, err := HashPassword("walletpass123")
	if err != nil {
		t.Fatalf("expected second hash to succeed, got error: %v", err)
	}
	if hash == again {
		t.Fatal("expected distinct hashes for repeated input")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("walletpass123")
	if err != nil {
		t.Fatalf("failed to hash password for test: %v", err)
	}

	emptyHash, err := HashPassword("")
	if err != nil {
		t.Fatalf("failed to hash empty password for test: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"matching password", "walletpass123", hash, true},
		{"wrong password", "walletpass124", hash, false},
		{"empty password against its own hash", "", emptyHash, true},
		{"non-empty password against empty-password hash", "walletpass123", emptyHash, false},
		{"malformed hash", "walletpass123", "not-a-valid-bcrypt-hash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Fatalf("CheckPassword(%q, ...) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}
