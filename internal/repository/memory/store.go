// Package memory is an in-process repository.Store used when no Postgres DSN
// is configured and by service tests. It enforces the same uniqueness rules
// as the SQL schema and rolls back a failed WithTx.
package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

type state struct {
	users        map[string]domain.User
	otps         map[string]domain.OTPRecord
	otpOrder     []string
	applications map[string]domain.Application
	appOrder     []string
	appHistory   []domain.ApplicationStatusHistory
	complaints   map[string]domain.Complaint
	cmpOrder     []string
	cmpHistory   []domain.ComplaintHistory
}

func newState() *state {
	return &state{
		users:        make(map[string]domain.User),
		otps:         make(map[string]domain.OTPRecord),
		applications: make(map[string]domain.Application),
		complaints:   make(map[string]domain.Complaint),
	}
}

func (s *state) clone() *state {
	cp := &state{
		users:        make(map[string]domain.User, len(s.users)),
		otps:         make(map[string]domain.OTPRecord, len(s.otps)),
		otpOrder:     append([]string(nil), s.otpOrder...),
		applications: make(map[string]domain.Application, len(s.applications)),
		appOrder:     append([]string(nil), s.appOrder...),
		appHistory:   append([]domain.ApplicationStatusHistory(nil), s.appHistory...),
		complaints:   make(map[string]domain.Complaint, len(s.complaints)),
		cmpOrder:     append([]string(nil), s.cmpOrder...),
		cmpHistory:   append([]domain.ComplaintHistory(nil), s.cmpHistory...),
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.otps {
		cp.otps[k] = v
	}
	for k, v := range s.applications {
		cp.applications[k] = cloneApplication(v)
	}
	for k, v := range s.complaints {
		cp.complaints[k] = v
	}
	return cp
}

type db struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

// Store implements repository.Store in memory.
type Store struct {
	db   *db
	inTx bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{db: &db{st: newState()}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) OTPs() repository.OTPRepository { return &otpRepo{s} }
func (s *Store) Applications() repository.ApplicationRepository { return &applicationRepo{s} }
func (s *Store) Complaints() repository.ComplaintRepository { return &complaintRepo{s} }
func (s *Store) ApplicationHistory() repository.ApplicationHistoryRepository {
	return &applicationHistoryRepo{s}
}
func (s *Store) ComplaintHistory() repository.ComplaintHistoryRepository {
	return &complaintHistoryRepo{s}
}

// WithTx serializes units of work and restores the previous state when fn
// returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	snapshot := s.db.st.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.mu.Lock()
		s.db.st = snapshot
		s.db.mu.Unlock()
		return err
	}
	return nil
}

// write runs fn with exclusive access. Writes outside a transaction also wait
// for any running transaction so a rollback cannot discard them.
func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.db.txMu.Lock()
		defer s.db.txMu.Unlock()
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

func (s *Store) read(fn func(st *state) error) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.st)
}

func cloneApplication(app domain.Application) domain.Application {
	app.Detail = cloneDetail(app.Detail)
	return app
}

func cloneDetail(detail domain.ApplicationDetail) domain.ApplicationDetail {
	switch d := detail.(type) {
	case *domain.BirthDetail:
		cp := *d
		return &cp
	case *domain.DeathDetail:
		cp := *d
		return &cp
	case *domain.IncomeDetail:
		cp := *d
		return &cp
	case *domain.TaxDetail:
		cp := *d
		return &cp
	}
	return detail
}
