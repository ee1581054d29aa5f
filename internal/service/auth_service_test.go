package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

func validRegistration(username string, role domain.Role) RegisterInput {
	return RegisterInput{
		Username:    username,
		Email:       username + "@example.com",
		Password:    "s3cret-pass",
		FirstName:   "Test",
		LastName:    "User",
		PhoneNumber: "9876543210",
		Pincode:     "411001",
		Role:        role,
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, validRegistration("sunita", domain.RoleCitizen))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.IsActive || reg.VerificationTicket == "" || env.sender.count() != 1 {
		t.Fatalf("unexpected registration %+v (mails %d)", reg, env.sender.count())
	}

	_, err = env.auth.Login(ctx, "sunita", "s3cret-pass")
	if !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("unverified login should be refused, got %v", err)
	}
	if ticket, _ := apperrors.ToDomainError(err).Details["verification_ticket"].(string); ticket == "" {
		t.Fatalf("expected a verification ticket in details")
	}

	user, err := env.auth.UserForTicket(ctx, reg.VerificationTicket)
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	if _, err := env.otps.Verify(ctx, user.ID, env.activeCode(t, user.ID)); err != nil {
		t.Fatalf("verify: %v", err)
	}

	session, err := env.auth.Login(ctx, "SUNITA@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login by email: %v", err)
	}
	if session.AccessToken == "" || session.User.ID != user.ID {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"bad username", func(in *RegisterInput) { in.Username = "has space" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "nope" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
		{"bad phone", func(in *RegisterInput) { in.PhoneNumber = "1234567890" }, "phone_number"},
		{"bad aadhar", func(in *RegisterInput) { in.AadharNumber = "1234" }, "aadhar_number"},
		{"bad role", func(in *RegisterInput) { in.Role = "mayor" }, "role"},
	}
	for _, tc := range cases {
		in := validRegistration("valid", domain.RoleCitizen)
		tc.mutate(&in)
		_, err := env.auth.Register(context.Background(), in)
		de := apperrors.ToDomainError(err)
		if de == nil || de.Code != apperrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if _, ok := de.Details[tc.field]; !ok {
			t.Fatalf("%s: expected detail for %s, got %v", tc.name, tc.field, de.Details)
		}
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.auth.Register(ctx, validRegistration("dup", domain.RoleCitizen)); err != nil {
		t.Fatalf("register: %v", err)
	}
	in := validRegistration("dup", domain.RoleCitizen)
	in.Email = "other@example.com"
	if _, err := env.auth.Register(ctx, in); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterKeepsAccountWhenMailFails(t *testing.T) {
	env := newTestEnv(t)
	env.sender.fail = true
	reg, err := env.auth.Register(context.Background(), validRegistration("nomail", domain.RoleCitizen))
	if !apperrors.HasCode(err, apperrors.CodeDispatchFailed) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}
	if reg == nil || reg.VerificationTicket == "" {
		t.Fatalf("expected the registration to be returned")
	}
	if _, err := env.store.Users().GetByUsername(context.Background(), "nomail"); err != nil {
		t.Fatalf("account should be kept: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.auth.Register(ctx, validRegistration("pw", domain.RoleCitizen)); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, id := range []string{"pw", "missing"} {
		if _, err := env.auth.Login(ctx, id, "wrong-password"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", id, err)
		}
	}
}

func TestLoginUnknownAccountSpendsBcryptTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.auth.Register(ctx, validRegistration("timing", domain.RoleCitizen)); err != nil {
		t.Fatalf("register: %v", err)
	}
	fastest := func(id string) time.Duration {
		best := time.Duration(1<<63 - 1)
		for i := 0; i < 5; i++ {
			start := time.Now()
			if _, err := env.auth.Login(ctx, id, "wrong-password"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
				t.Fatalf("%s: expected unauthorized, got %v", id, err)
			}
			if d := time.Since(start); d < best {
				best = d
			}
		}
		return best
	}
	known, unknown := fastest("timing"), fastest("nobody-here")
	if unknown < known/4 {
		t.Fatalf("unknown account answered in %s, wrong password in %s", unknown, known)
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	env := newTestEnv(t)
	in := validRegistration("longpw", domain.RoleCitizen)
	in.Password = strings.Repeat("p", 73)
	_, err := env.auth.Register(context.Background(), in)
	de := apperrors.ToDomainError(err)
	if de == nil || de.Code != apperrors.CodeValidation || de.Details["password"] == nil {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestStaffApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin", domain.RoleAdmin, true)

	reg, err := env.auth.Register(ctx, validRegistration("clerk", domain.RoleStaff))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := env.otps.Verify(ctx, reg.User.ID, env.activeCode(t, reg.User.ID)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := env.auth.Login(ctx, "clerk", "s3cret-pass"); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected pending approval, got %v", err)
	}

	pending, err := env.auth.ListPendingApprovals(ctx, repository.Page{})
	if err != nil || len(pending) != 1 || pending[0].Username != "clerk" {
		t.Fatalf("unexpected pending list %v (%v)", pending, err)
	}

	if _, err := env.auth.ApproveAccount(ctx, reg.User, admin.ID); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("non-admin approval should be forbidden, got %v", err)
	}
	approved, err := env.auth.ApproveAccount(ctx, admin, reg.User.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ApprovalState() != domain.ApprovalActive || !approved.IsActive {
		t.Fatalf("expected active account, got %+v", approved)
	}
	if _, err := env.auth.Login(ctx, "clerk", "s3cret-pass"); err != nil {
		t.Fatalf("login after approval: %v", err)
	}
}

func TestApproveBeforeVerificationStaysInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "root", domain.RoleAdmin, true)
	staff := env.seedUser(t, "early", domain.RoleStaff, false)

	approved, err := env.auth.ApproveAccount(ctx, admin, staff.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.IsActive || approved.ApprovalState() != domain.ApprovalPendingEmail {
		t.Fatalf("unverified account must stay inactive: %+v", approved)
	}
	if _, err := env.auth.ApproveAccount(ctx, admin, "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
