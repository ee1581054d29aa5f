package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

func TestVerificationTicketRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tm := NewTokenManager("secret", 60, 30, clock)

	ticket, exp, err := tm.IssueVerificationTicket("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(clock.Now().Add(30 * time.Minute)) {
		t.Fatalf("expiry = %s", exp)
	}
	userID, err := tm.ParseVerificationTicket(ticket)
	if err != nil || userID != "user-1" {
		t.Fatalf("parse = %q, %v", userID, err)
	}

	clock.Advance(31 * time.Minute)
	if _, err := tm.ParseVerificationTicket(ticket); err == nil {
		t.Fatalf("expired ticket accepted")
	}
}

func TestTokenPurposesAreNotInterchangeable(t *testing.T) {
	tm := NewTokenManager("secret", 60, 30, clockwork.NewFakeClock())
	user := &domain.User{ID: "u1", Role: domain.RoleStaff}

	access, _, err := tm.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := tm.ParseVerificationTicket(access); !errors.Is(err, ErrWrongPurpose) {
		t.Fatalf("access token accepted as ticket: %v", err)
	}

	ticket, _, _ := tm.IssueVerificationTicket("u1")
	if _, err := tm.ParseAccessToken(ticket); !errors.Is(err, ErrWrongPurpose) {
		t.Fatalf("ticket accepted as access token: %v", err)
	}

	claims, err := tm.ParseAccessToken(access)
	if err != nil || claims.Role != domain.RoleStaff || claims.Subject != "u1" {
		t.Fatalf("claims = %+v, %v", claims, err)
	}
}

func TestTokenSignedWithOtherSecretRejected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := NewTokenManager("a", 60, 30, clock)
	b := NewTokenManager("b", 60, 30, clock)
	ticket, _, _ := a.IssueVerificationTicket("u1")
	if _, err := b.ParseVerificationTicket(ticket); err == nil {
		t.Fatalf("foreign signature accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}
