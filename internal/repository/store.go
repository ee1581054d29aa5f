package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no row matches, or when a conditional
	// update found nothing eligible to change.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned on a uniqueness violation.
	ErrConflict = errors.New("repository: conflict")
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Users() UserRepository
	OTPs() OTPRepository
	Applications() ApplicationRepository
	ApplicationHistory() ApplicationHistoryRepository
	Complaints() ComplaintRepository
	ComplaintHistory() ComplaintHistoryRepository
	// WithTx runs fn against a Store bound to one transaction. Nested calls
	// join the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewPostgresStore returns a Store backed by the pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Users() UserRepository { return &userRepository{db: s.db} }
func (s *pgStore) OTPs() OTPRepository { return &otpRepository{db: s.db} }
func (s *pgStore) Applications() ApplicationRepository { return &applicationRepository{db: s.db} }
func (s *pgStore) Complaints() ComplaintRepository { return &complaintRepository{db: s.db} }
func (s *pgStore) ComplaintHistory() ComplaintHistoryRepository {
	return &complaintHistoryRepository{db: s.db}
}
func (s *pgStore) ApplicationHistory() ApplicationHistoryRepository {
	return &applicationHistoryRepository{db: s.db}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, db: tx, inTx: true})
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
