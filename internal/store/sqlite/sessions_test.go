package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func makeTestSession(id, userID, tokenHash string, expiresAt time.Time) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: tokenHash,
		ExpiresAt:        expiresAt,
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        "10.0.0.1",
		UserAgent:        "shelfwise-test",
	}
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndBook(t, s)

	session := makeTestSession("session-1", userID, "hash-abc", time.Now().Add(time.Hour))
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.GetSessionByRefreshToken(ctx, "hash-abc")
	if err != nil {
		t.Fatalf("GetSessionByRefreshToken: %v", err)
	}
	if got.ID != "session-1" || got.UserID != userID {
		t.Errorf("got %s/%s", got.ID, got.UserID)
	}
	if got.IPAddress != "10.0.0.1" {
		t.Errorf("IPAddress: got %q", got.IPAddress)
	}
}

func TestGetSessionByRefreshToken_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSessionByRefreshToken(context.Background(), "hash-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSession_RotatesToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndBook(t, s)

	session := makeTestSession("session-1", userID, "hash-old", time.Now().Add(time.Hour))
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	session.RefreshTokenHash = "hash-new"
	session.Touch()
	if err := s.UpdateSession(ctx, session); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	if _, err := s.GetSessionByRefreshToken(ctx, "hash-old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old token should be gone, got %v", err)
	}
	if _, err := s.GetSessionByRefreshToken(ctx, "hash-new"); err != nil {
		t.Errorf("new token should resolve: %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndBook(t, s)

	session := makeTestSession("session-1", userID, "hash-abc", time.Now().Add(time.Hour))
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := s.DeleteSession(ctx, "session-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := s.DeleteSession(ctx, "session-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAllUserSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndBook(t, s)

	for i, hash := range []string{"hash-1", "hash-2"} {
		session := makeTestSession("session-"+string(rune('a'+i)), userID, hash, time.Now().Add(time.Hour))
		if err := s.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	if err := s.DeleteAllUserSessions(ctx, userID); err != nil {
		t.Fatalf("DeleteAllUserSessions: %v", err)
	}

	for _, hash := range []string{"hash-1", "hash-2"} {
		if _, err := s.GetSessionByRefreshToken(ctx, hash); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("session with %s should be gone, got %v", hash, err)
		}
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID, _ := seedUserAndBook(t, s)

	expired := makeTestSession("session-1", userID, "hash-expired", time.Now().Add(-time.Hour))
	valid := makeTestSession("session-2", userID, "hash-valid", time.Now().Add(time.Hour))
	for _, session := range []*domain.Session{expired, valid} {
		if err := s.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	n, err := s.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}

	if _, err := s.GetSessionByRefreshToken(ctx, "hash-valid"); err != nil {
		t.Errorf("valid session should remain: %v", err)
	}
}
