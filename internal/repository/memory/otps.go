package memory

import (
	"context"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

type otpRepo struct{ s *Store }

func (r *otpRepo) Create(_ context.Context, otp *domain.OTPRecord) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.otps[otp.ID]; ok {
			return repository.ErrConflict
		}
		if !otp.IsUsed {
			for _, id := range st.otpOrder {
				existing := st.otps[id]
				if existing.UserID == otp.UserID && !existing.IsUsed {
					return repository.ErrConflict
				}
			}
		}
		st.otps[otp.ID] = *otp
		st.otpOrder = append(st.otpOrder, otp.ID)
		return nil
	})
}

func (r *otpRepo) Supersede(_ context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.write(func(st *state) error {
		for _, id := range st.otpOrder {
			otp := st.otps[id]
			if otp.UserID == userID && !otp.IsUsed && !otp.IsVerified {
				otp.IsUsed = true
				st.otps[id] = otp
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *otpRepo) LatestActive(_ context.Context, userID string, _ bool) (*domain.OTPRecord, error) {
	var found *domain.OTPRecord
	_ = r.s.read(func(st *state) error {
		for _, id := range st.otpOrder {
			otp := st.otps[id]
			if otp.UserID != userID || otp.IsUsed {
				continue
			}
			if found == nil || !otp.CreatedAt.Before(found.CreatedAt) {
				cp := otp
				found = &cp
			}
		}
		return nil
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *otpRepo) LatestIssuedAt(_ context.Context, userID string) (time.Time, error) {
	var latest time.Time
	seen := false
	_ = r.s.read(func(st *state) error {
		for _, id := range st.otpOrder {
			otp := st.otps[id]
			if otp.UserID == userID && (!seen || otp.CreatedAt.After(latest)) {
				latest = otp.CreatedAt
				seen = true
			}
		}
		return nil
	})
	if !seen {
		return time.Time{}, repository.ErrNotFound
	}
	return latest, nil
}

func (r *otpRepo) IncrementAttempts(_ context.Context, id string, max int) (int, error) {
	var attempts int
	err := r.s.write(func(st *state) error {
		otp, ok := st.otps[id]
		if !ok || otp.IsUsed || otp.VerificationAttempts >= max {
			return repository.ErrNotFound
		}
		otp.VerificationAttempts++
		st.otps[id] = otp
		attempts = otp.VerificationAttempts
		return nil
	})
	return attempts, err
}

func (r *otpRepo) MarkUsed(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		otp, ok := st.otps[id]
		if !ok || otp.IsUsed {
			return repository.ErrNotFound
		}
		otp.IsUsed = true
		st.otps[id] = otp
		return nil
	})
}

func (r *otpRepo) MarkVerified(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(st *state) error {
		otp, ok := st.otps[id]
		if !ok || otp.IsUsed {
			return repository.ErrNotFound
		}
		otp.IsUsed = true
		otp.IsVerified = true
		otp.VerifiedAt = &at
		st.otps[id] = otp
		return nil
	})
}

func (r *otpRepo) ListByUser(_ context.Context, userID string) ([]domain.OTPRecord, error) {
	var out []domain.OTPRecord
	_ = r.s.read(func(st *state) error {
		for _, id := range st.otpOrder {
			if otp := st.otps[id]; otp.UserID == userID {
				out = append(out, otp)
			}
		}
		return nil
	})
	return out, nil
}
