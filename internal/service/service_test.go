package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/auth"
	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
	"github.com/spec-kit/panchayat-portal/internal/repository/memory"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Envelope
	fail bool
}

func (c *captureSender) Send(_ context.Context, env mailer.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("smtp unavailable")
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type testEnv struct {
	store        *memory.Store
	clock        *clockwork.FakeClock
	sender       *captureSender
	dispatcher   events.Dispatcher
	otps         *OTPService
	auth         *AuthService
	applications *ApplicationService
	complaints   *ComplaintService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:      memory.NewStore(),
		clock:      clockwork.NewFakeClockAt(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)),
		sender:     &captureSender{},
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
	}
	renderer := mailer.NewRenderer("Gram Panchayat Portal", "")
	env.otps = NewOTPService(OTPDependencies{
		Store:      env.store,
		Sender:     env.sender,
		Renderer:   renderer,
		Dispatcher: env.dispatcher,
		Clock:      env.clock,
		Settings:   DefaultOTPSettings,
	})
	env.auth = NewAuthService(AuthDependencies{
		Store:      env.store,
		OTPs:       env.otps,
		Tokens:     auth.NewTokenManager("test-secret", 60, 30, env.clock),
		Dispatcher: env.dispatcher,
		Clock:      env.clock,
		BcryptCost: 4,
	})
	env.applications = NewApplicationService(ApplicationDependencies{Store: env.store, Dispatcher: env.dispatcher, Clock: env.clock})
	env.complaints = NewComplaintService(ComplaintDependencies{Store: env.store, Dispatcher: env.dispatcher, Clock: env.clock})
	return env
}

// seedUser stores an account directly, bypassing registration.
func (e *testEnv) seedUser(t *testing.T, username string, role domain.Role, active bool) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         username + "@example.com",
		FirstName:     username,
		Role:          role,
		EmailVerified: active,
		AdminApproved: active && role != domain.RoleCitizen,
		IsActive:      active,
		CreatedAt:     e.clock.Now(),
	}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) activeCode(t *testing.T, userID string) string {
	t.Helper()
	otp, err := e.store.OTPs().LatestActive(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("latest active otp: %v", err)
	}
	return otp.Code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
