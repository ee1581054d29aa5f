package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

func seedUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      domain.RoleCitizen,
		CreatedAt: time.Now(),
	}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repository.Store) error {
		u := &domain.User{ID: uuid.NewString(), Username: "ravi", Email: "ravi@example.com", Role: domain.RoleCitizen}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Users().GetByUsername(ctx, "ravi"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("user survived rollback: %v", err)
	}
}

func TestUserUniqueness(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "asha")
	dup := &domain.User{ID: uuid.NewString(), Username: "other", Email: "ASHA@example.com"}
	if err := s.Users().Create(context.Background(), dup); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict on email, got %v", err)
	}
}

func TestOneActiveOTPPerUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "meena")
	now := time.Now()

	first := &domain.OTPRecord{ID: uuid.NewString(), UserID: u.ID, Code: "111111", CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute)}
	if err := s.OTPs().Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &domain.OTPRecord{ID: uuid.NewString(), UserID: u.ID, Code: "222222", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(11 * time.Minute)}
	if err := s.OTPs().Create(ctx, second); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict while first is active, got %v", err)
	}

	if n, err := s.OTPs().Supersede(ctx, u.ID); err != nil || n != 1 {
		t.Fatalf("supersede: n=%d err=%v", n, err)
	}
	if err := s.OTPs().Create(ctx, second); err != nil {
		t.Fatalf("create after supersede: %v", err)
	}
	active, err := s.OTPs().LatestActive(ctx, u.ID, true)
	if err != nil || active.ID != second.ID {
		t.Fatalf("latest active = %+v err=%v", active, err)
	}
}

func TestIncrementAttemptsIsBoundedUnderConcurrency(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "kiran")
	otp := &domain.OTPRecord{ID: uuid.NewString(), UserID: u.ID, Code: "123456", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute)}
	if err := s.OTPs().Create(ctx, otp); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.OTPs().IncrementAttempts(ctx, otp.ID, 3); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 3 {
		t.Fatalf("expected exactly 3 increments, got %d", ok)
	}
}

func TestMarkUsedIsOneWay(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "dev")
	otp := &domain.OTPRecord{ID: uuid.NewString(), UserID: u.ID, Code: "123456", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute)}
	if err := s.OTPs().Create(ctx, otp); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.OTPs().MarkVerified(ctx, otp.ID, time.Now()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := s.OTPs().MarkUsed(ctx, otp.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("used record accepted another transition: %v", err)
	}
	if _, err := s.OTPs().LatestActive(ctx, u.ID, false); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("verified record still active: %v", err)
	}
}

func TestApplicationNumberConflictAndDetailIsolation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, "lata")
	detail := &domain.BirthDetail{ChildName: "Baby"}
	app := &domain.Application{
		ID: uuid.NewString(), ApplicationNumber: "GPBIRT20250101120000", ApplicantID: u.ID,
		Type: domain.ApplicationBirthCertificate, Status: domain.ApplicationPending, Detail: detail,
	}
	if err := s.Applications().Create(ctx, app); err != nil {
		t.Fatalf("create: %v", err)
	}
	detail.ChildName = "mutated after save"

	got, err := s.Applications().GetByNumber(ctx, app.ApplicationNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Detail.(*domain.BirthDetail).ChildName != "Baby" {
		t.Fatalf("stored detail aliased caller memory")
	}

	clash := *app
	clash.ID = uuid.NewString()
	clash.Detail = &domain.BirthDetail{}
	if err := s.Applications().Create(ctx, &clash); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
