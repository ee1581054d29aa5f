package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !isSixDigits(code) || code[0] == '0' {
			t.Fatalf("code %q outside [100000, 999999]", code)
		}
	}
}

func TestVerifyWrongThenRightCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "meena", domain.RoleCitizen, false)

	if _, err := env.otps.IssueAndSend(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if env.sender.count() != 1 {
		t.Fatalf("expected one otp mail, got %d", env.sender.count())
	}
	code := env.activeCode(t, user.ID)

	_, err := env.otps.Verify(ctx, user.ID, wrongCode(code))
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 attempt(s) remaining") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	res, err := env.otps.Verify(ctx, user.ID, code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.State != domain.ApprovalActive || res.Message != "Email verified successfully! You can now login." {
		t.Fatalf("unexpected result %+v", res)
	}
	stored, _ := env.store.Users().GetByID(ctx, user.ID)
	if !stored.EmailVerified || !stored.IsActive || stored.EmailVerifiedAt == nil {
		t.Fatalf("user not activated: %+v", stored)
	}

	_, err = env.otps.Verify(ctx, user.ID, code)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("second verify should find no otp, got %v", err)
	}
}

func TestVerifyExhaustsAfterThreeAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "kiran", domain.RoleCitizen, false)
	if _, err := env.otps.Issue(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := env.activeCode(t, user.ID)

	for i := 0; i < 3; i++ {
		if _, err := env.otps.Verify(ctx, user.ID, wrongCode(code)); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i+1, err)
		}
	}
	_, err := env.otps.Verify(ctx, user.ID, code)
	if !apperrors.HasCode(err, apperrors.CodeAttemptsExhausted) {
		t.Fatalf("expected exhaustion on 4th attempt, got %v", err)
	}
	records, _ := env.store.OTPs().ListByUser(ctx, user.ID)
	if len(records) != 1 || !records[0].IsUsed || records[0].IsVerified || records[0].VerificationAttempts != 3 {
		t.Fatalf("unexpected record state %+v", records)
	}
	stored, _ := env.store.Users().GetByID(ctx, user.ID)
	if stored.EmailVerified || stored.IsActive {
		t.Fatalf("exhausted otp must not verify the user")
	}
}

func TestVerifyRejectsMalformedCodeWithoutConsumingAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "arun", domain.RoleCitizen, false)
	if _, err := env.otps.Issue(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	for _, code := range []string{"", "12345", "1234567", "12a456", " 12345"} {
		if _, err := env.otps.Verify(ctx, user.ID, code); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("code %q: expected validation error, got %v", code, err)
		}
	}
	otp, _ := env.store.OTPs().LatestActive(ctx, user.ID, false)
	if otp.VerificationAttempts != 0 {
		t.Fatalf("malformed codes consumed %d attempts", otp.VerificationAttempts)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "lata", domain.RoleCitizen, false)
	if _, err := env.otps.Issue(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := env.activeCode(t, user.ID)
	env.clock.Advance(10*time.Minute + time.Second)

	_, err := env.otps.Verify(ctx, user.ID, code)
	if !apperrors.HasCode(err, apperrors.CodeExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
	otp, _ := env.store.OTPs().LatestActive(ctx, user.ID, false)
	if otp.VerificationAttempts != 0 {
		t.Fatalf("expired verify must not mutate the record")
	}
}

func TestVerifyStaffAwaitsApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "officer", domain.RoleStaff, false)
	if _, err := env.otps.Issue(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	res, err := env.otps.Verify(ctx, user.ID, env.activeCode(t, user.ID))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.State != domain.ApprovalPendingAdmin || !strings.Contains(res.Message, "pending administrator approval") {
		t.Fatalf("unexpected result %+v", res)
	}
	stored, _ := env.store.Users().GetByID(ctx, user.ID)
	if !stored.EmailVerified || stored.IsActive {
		t.Fatalf("staff must stay inactive until approved: %+v", stored)
	}
}

func TestResendGapAndSupersede(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "gita", domain.RoleCitizen, false)
	if _, err := env.otps.IssueAndSend(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	first := env.activeCode(t, user.ID)

	env.clock.Advance(30 * time.Second)
	if _, err := env.otps.Resend(ctx, user.ID); !apperrors.HasCode(err, apperrors.CodeRateLimited) {
		t.Fatalf("expected wait message, got %v", err)
	}

	env.clock.Advance(30 * time.Second)
	if _, err := env.otps.Resend(ctx, user.ID); !apperrors.HasCode(err, apperrors.CodeRateLimited) {
		t.Fatalf("resend at exactly one minute should still wait, got %v", err)
	}

	env.clock.Advance(time.Second)
	res, err := env.otps.Resend(ctx, user.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if res.Message != "A new OTP has been sent to gita@example.com" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	records, _ := env.store.OTPs().ListByUser(ctx, user.ID)
	active := 0
	for _, r := range records {
		if !r.IsUsed {
			active++
		}
	}
	if len(records) != 2 || active != 1 {
		t.Fatalf("expected one active of two records, got %+v", records)
	}
	second := env.activeCode(t, user.ID)
	if first != second {
		if _, err := env.otps.Verify(ctx, user.ID, first); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("superseded code must not verify, got %v", err)
		}
	}
	if _, err := env.otps.Verify(ctx, user.ID, second); err != nil {
		t.Fatalf("verify new code: %v", err)
	}
}

func TestResendDispatchFailureKeepsCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "ravi", domain.RoleCitizen, false)
	env.sender.fail = true

	_, err := env.otps.Resend(ctx, user.ID)
	if !apperrors.HasCode(err, apperrors.CodeDispatchFailed) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}
	if _, err := env.otps.Verify(ctx, user.ID, env.activeCode(t, user.ID)); err != nil {
		t.Fatalf("undelivered code should still verify: %v", err)
	}
}

func TestStatusCountdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "usha", domain.RoleCitizen, false)
	if _, err := env.otps.Issue(ctx, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := env.otps.Verify(ctx, user.ID, wrongCode(env.activeCode(t, user.ID))); err == nil {
		t.Fatalf("wrong code accepted")
	}
	env.clock.Advance(4 * time.Minute)

	st, err := env.otps.Status(ctx, user.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Active || st.ExpiresIn != 6*time.Minute || st.AttemptsRemaining != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
}
