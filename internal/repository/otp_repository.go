package repository

import (
	"context"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// OTPRepository persists email verification codes. Records are never deleted.
type OTPRepository interface {
	Create(ctx context.Context, otp *domain.OTPRecord) error
	// Supersede marks every unused record of the user as used and returns how
	// many were affected.
	Supersede(ctx context.Context, userID string) (int64, error)
	// LatestActive returns the newest unused record, locking it when forUpdate
	// is set and the store is transactional.
	LatestActive(ctx context.Context, userID string, forUpdate bool) (*domain.OTPRecord, error)
	// LatestIssuedAt returns the creation time of the newest record of any state.
	LatestIssuedAt(ctx context.Context, userID string) (time.Time, error)
	// IncrementAttempts bumps the counter of an unused record whose count is
	// below max and returns the new count. ErrNotFound means nothing qualified.
	IncrementAttempts(ctx context.Context, id string, max int) (int, error)
	MarkUsed(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]domain.OTPRecord, error)
}

type otpRepository struct {
	db DBTX
}

const otpColumns = `id, user_id, email, otp_code, created_at, expires_at, verification_attempts,
       is_used, is_verified, verified_at`

func (r *otpRepository) Create(ctx context.Context, otp *domain.OTPRecord) error {
	const query = `
        INSERT INTO email_otps (id, user_id, email, otp_code, created_at, expires_at,
            verification_attempts, is_used, is_verified, verified_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Exec(ctx, query,
		otp.ID,
		otp.UserID,
		otp.Email,
		otp.Code,
		otp.CreatedAt,
		otp.ExpiresAt,
		otp.VerificationAttempts,
		otp.IsUsed,
		otp.IsVerified,
		otp.VerifiedAt,
	)
	return translate(err)
}

func (r *otpRepository) Supersede(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE email_otps SET is_used=TRUE WHERE user_id=$1 AND NOT is_used AND NOT is_verified`, userID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func (r *otpRepository) LatestActive(ctx context.Context, userID string, forUpdate bool) (*domain.OTPRecord, error) {
	query := `SELECT ` + otpColumns + ` FROM email_otps
        WHERE user_id=$1 AND NOT is_used ORDER BY created_at DESC LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var otp domain.OTPRecord
	if err := r.db.QueryRow(ctx, query, userID).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Email,
		&otp.Code,
		&otp.CreatedAt,
		&otp.ExpiresAt,
		&otp.VerificationAttempts,
		&otp.IsUsed,
		&otp.IsVerified,
		&otp.VerifiedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

func (r *otpRepository) LatestIssuedAt(ctx context.Context, userID string) (time.Time, error) {
	var at *time.Time
	if err := r.db.QueryRow(ctx, `SELECT MAX(created_at) FROM email_otps WHERE user_id=$1`, userID).Scan(&at); err != nil {
		return time.Time{}, translate(err)
	}
	if at == nil {
		return time.Time{}, ErrNotFound
	}
	return *at, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, id string, max int) (int, error) {
	const query = `
        UPDATE email_otps SET verification_attempts = verification_attempts + 1
        WHERE id=$1 AND NOT is_used AND verification_attempts < $2
        RETURNING verification_attempts`
	var attempts int
	if err := r.db.QueryRow(ctx, query, id, max).Scan(&attempts); err != nil {
		return 0, translate(err)
	}
	return attempts, nil
}

func (r *otpRepository) MarkUsed(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE email_otps SET is_used=TRUE WHERE id=$1 AND NOT is_used`, id))
}

func (r *otpRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE email_otps SET is_used=TRUE, is_verified=TRUE, verified_at=$2
        WHERE id=$1 AND NOT is_used`
	return requireAffected(r.db.Exec(ctx, query, id, at))
}

func (r *otpRepository) ListByUser(ctx context.Context, userID string) ([]domain.OTPRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+otpColumns+` FROM email_otps WHERE user_id=$1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OTPRecord
	for rows.Next() {
		var otp domain.OTPRecord
		if err := rows.Scan(
			&otp.ID,
			&otp.UserID,
			&otp.Email,
			&otp.Code,
			&otp.CreatedAt,
			&otp.ExpiresAt,
			&otp.VerificationAttempts,
			&otp.IsUsed,
			&otp.IsVerified,
			&otp.VerifiedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, otp)
	}
	return result, rows.Err()
}
