package memory

import (
	"context"
	"strings"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

type complaintRepo struct{ s *Store }

func (r *complaintRepo) Create(_ context.Context, c *domain.Complaint) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.complaints[c.ID]; ok {
			return repository.ErrConflict
		}
		for _, other := range st.complaints {
			if other.ComplaintNumber == c.ComplaintNumber {
				return repository.ErrConflict
			}
		}
		st.complaints[c.ID] = *c
		st.cmpOrder = append(st.cmpOrder, c.ID)
		return nil
	})
}

func (r *complaintRepo) Update(_ context.Context, c *domain.Complaint) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.complaints[c.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := *c
		updated.ComplaintNumber = existing.ComplaintNumber
		updated.ComplainantID = existing.ComplainantID
		updated.CreatedAt = existing.CreatedAt
		st.complaints[c.ID] = updated
		return nil
	})
}

func (r *complaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	return r.find(func(c domain.Complaint) bool { return c.ID == id })
}

func (r *complaintRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Complaint, error) {
	return r.GetByID(ctx, id)
}

func (r *complaintRepo) GetByNumber(_ context.Context, number string) (*domain.Complaint, error) {
	return r.find(func(c domain.Complaint) bool { return c.ComplaintNumber == number })
}

func (r *complaintRepo) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	statuses := map[domain.ComplaintStatus]bool{}
	for _, s := range filter.Statuses {
		statuses[s] = true
	}
	categories := map[domain.ComplaintCategory]bool{}
	for _, c := range filter.Categories {
		categories[c] = true
	}
	priorities := map[domain.ComplaintPriority]bool{}
	for _, p := range filter.Priorities {
		priorities[p] = true
	}
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	var out []domain.Complaint
	_ = r.s.read(func(st *state) error {
		for i := len(st.cmpOrder) - 1; i >= 0; i-- {
			c := st.complaints[st.cmpOrder[i]]
			switch {
			case filter.ComplainantID != nil && c.ComplainantID != *filter.ComplainantID:
				continue
			case filter.AssigneeID != nil && (c.AssignedToID == nil || *c.AssignedToID != *filter.AssigneeID):
				continue
			case filter.Unassigned && c.AssignedToID != nil:
				continue
			case len(statuses) > 0 && !statuses[c.Status]:
				continue
			case len(categories) > 0 && !categories[c.Category]:
				continue
			case len(priorities) > 0 && !priorities[c.Priority]:
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(c.Subject), search) &&
				!strings.Contains(strings.ToLower(c.Description), search) &&
				!strings.Contains(strings.ToLower(c.ComplaintNumber), search) {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	return paginate(out, filter.Page), nil
}

func (r *complaintRepo) Stats(_ context.Context) (repository.ComplaintStats, error) {
	var s repository.ComplaintStats
	_ = r.s.read(func(st *state) error {
		for _, c := range st.complaints {
			s.Total++
			switch c.Status {
			case domain.ComplaintOpen:
				s.Open++
			case domain.ComplaintInProgress:
				s.InProgress++
			case domain.ComplaintResolved:
				s.Resolved++
			case domain.ComplaintClosed:
				s.Closed++
			}
			if c.AssignedToID == nil {
				s.Unassigned++
			}
			if c.Priority == domain.PriorityUrgent && (c.Status == domain.ComplaintOpen || c.Status == domain.ComplaintInProgress) {
				s.UrgentOpen++
			}
		}
		return nil
	})
	return s, nil
}

func (r *complaintRepo) find(match func(domain.Complaint) bool) (*domain.Complaint, error) {
	var found *domain.Complaint
	_ = r.s.read(func(st *state) error {
		for _, c := range st.complaints {
			if match(c) {
				cp := c
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

type complaintHistoryRepo struct{ s *Store }

func (r *complaintHistoryRepo) Append(_ context.Context, entry *domain.ComplaintHistory) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.complaints[entry.ComplaintID]; !ok {
			return repository.ErrNotFound
		}
		st.cmpHistory = append(st.cmpHistory, *entry)
		return nil
	})
}

func (r *complaintHistoryRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	var out []domain.ComplaintHistory
	_ = r.s.read(func(st *state) error {
		for _, h := range st.cmpHistory {
			if h.ComplaintID == complaintID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, nil
}
