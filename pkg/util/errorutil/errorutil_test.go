package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCodeUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("verify: %w", NewExpired("OTP has expired. Please request a new one."))
	if !HasCode(err, CodeExpired) {
		t.Fatalf("expected EXPIRED code in %v", err)
	}
	if HasCode(err, CodeNotFound) {
		t.Fatalf("unexpected NOT_FOUND match")
	}
	if HasCode(errors.New("plain"), CodeExpired) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestToDomainErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewRateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests},
		{NewAttemptsExhausted("done"), CodeAttemptsExhausted, http.StatusForbidden},
		{NewDispatchFailed("mail", errors.New("smtp down")), CodeDispatchFailed, http.StatusBadGateway},
		{errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		de := ToDomainError(tc.err)
		if de.Code != tc.code || de.HTTPStatus != tc.status {
			t.Fatalf("%v: got %s/%d want %s/%d", tc.err, de.Code, de.HTTPStatus, tc.code, tc.status)
		}
	}
	if ToDomainError(nil) != nil {
		t.Fatalf("nil should map to nil")
	}
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := NewDomainError(CodeUnauthorized, "verify email", http.StatusUnauthorized, nil)
	withTicket := base.WithDetail("verification_ticket", "abc")
	if base.Details != nil {
		t.Fatalf("original details mutated: %v", base.Details)
	}
	if withTicket.Details["verification_ticket"] != "abc" {
		t.Fatalf("missing detail: %v", withTicket.Details)
	}
}
