package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.write(func(st *state) error {
		if err := checkUserUnique(st, user); err != nil {
			return err
		}
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		user.Username = existing.Username
		user.CreatedAt = existing.CreatedAt
		if err := checkUserUnique(st, user); err != nil {
			return err
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.users, id)
		kept := st.otpOrder[:0]
		for _, otpID := range st.otpOrder {
			if st.otps[otpID].UserID == id {
				delete(st.otps, otpID)
				continue
			}
			kept = append(kept, otpID)
		}
		st.otpOrder = kept
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	_ = r.s.read(func(st *state) error {
		for _, u := range st.users {
			if filter.Role != nil && u.Role != *filter.Role {
				continue
			}
			if filter.PendingApproval && u.ApprovalState() != domain.ApprovalPendingAdmin {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Page), nil
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	_ = r.s.read(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				cp := u
				found = &cp
				return nil
			}
		}
		return nil
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func checkUserUnique(st *state, user *domain.User) error {
	for id, u := range st.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
		if user.AadharNumber != nil && u.AadharNumber != nil && *u.AadharNumber == *user.AadharNumber {
			return repository.ErrConflict
		}
	}
	return nil
}

func paginate[T any](items []T, page repository.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}
