package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, err := manager.Issue(userID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	got, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if got != userID {
		t.Errorf("Verify returned %s, want %s", got, userID)
	}
}

func TestTokenManager_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		token, err := NewTokenManager("other-secret", time.Hour).Issue(userID)
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		if _, err := manager.Verify(token); err == nil {
			t.Error("expected verification to fail for a token signed with another secret")
		}
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		token, err := NewTokenManager("test-secret", time.Nanosecond).Issue(userID)
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		if _, err := manager.Verify(token); err == nil {
			t.Error("expected verification to fail for an expired token")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		if _, err := manager.Verify("not-a-token"); err == nil {
			t.Error("expected verification to fail for a malformed token")
		}
	})

	t.Run("tampered", func(t *testing.T) {
		t.Parallel()
		token, err := manager.Issue(userID)
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		parts := strings.Split(token, ".")
		tampered := parts[0] + ".eyJzdWIiOiJvdGhlciJ9." + parts[2]
		if _, err := manager.Verify(tampered); err == nil {
			t.Error("expected verification to fail for a tampered token")
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals the plaintext password")
	}

	if !CheckPassword(hash, "correct horse battery staple") {
		t.Error("CheckPassword rejected the correct password")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("CheckPassword accepted a wrong password")
	}
}
