package memory

import (
	"context"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

type applicationRepo struct{ s *Store }

func (r *applicationRepo) Create(_ context.Context, app *domain.Application) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.applications[app.ID]; ok {
			return repository.ErrConflict
		}
		if err := checkApplicationUnique(st, app); err != nil {
			return err
		}
		st.applications[app.ID] = cloneApplication(*app)
		st.appOrder = append(st.appOrder, app.ID)
		return nil
	})
}

func (r *applicationRepo) Update(_ context.Context, app *domain.Application) error {
	return r.s.write(func(st *state) error {
		existing, ok := st.applications[app.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkApplicationUnique(st, app); err != nil {
			return err
		}
		updated := cloneApplication(*app)
		updated.ApplicationNumber = existing.ApplicationNumber
		updated.ApplicantID = existing.ApplicantID
		updated.Type = existing.Type
		updated.AppliedAt = existing.AppliedAt
		st.applications[app.ID] = updated
		return nil
	})
}

func (r *applicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	return r.find(func(a domain.Application) bool { return a.ID == id })
}

func (r *applicationRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepo) GetByNumber(_ context.Context, number string) (*domain.Application, error) {
	return r.find(func(a domain.Application) bool { return a.ApplicationNumber == number })
}

func (r *applicationRepo) List(_ context.Context, filter repository.ApplicationFilter) ([]domain.Application, error) {
	statuses := make(map[domain.ApplicationStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}
	types := make(map[domain.ApplicationType]bool, len(filter.Types))
	for _, t := range filter.Types {
		types[t] = true
	}

	var out []domain.Application
	_ = r.s.read(func(st *state) error {
		// newest first
		for i := len(st.appOrder) - 1; i >= 0; i-- {
			app := st.applications[st.appOrder[i]]
			if filter.ApplicantID != nil && app.ApplicantID != *filter.ApplicantID {
				continue
			}
			if len(statuses) > 0 && !statuses[app.Status] {
				continue
			}
			if len(types) > 0 && !types[app.Type] {
				continue
			}
			out = append(out, cloneApplication(app))
		}
		return nil
	})
	return paginate(out, filter.Page), nil
}

func (r *applicationRepo) CountByStatus(_ context.Context, applicantID *string) (map[domain.ApplicationStatus]int, error) {
	counts := make(map[domain.ApplicationStatus]int)
	_ = r.s.read(func(st *state) error {
		for _, app := range st.applications {
			if applicantID != nil && app.ApplicantID != *applicantID {
				continue
			}
			counts[app.Status]++
		}
		return nil
	})
	return counts, nil
}

func (r *applicationRepo) find(match func(domain.Application) bool) (*domain.Application, error) {
	var found *domain.Application
	_ = r.s.read(func(st *state) error {
		for _, app := range st.applications {
			if match(app) {
				cp := cloneApplication(app)
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

func checkApplicationUnique(st *state, app *domain.Application) error {
	cert, receipt := detailKeys(app.Detail)
	for id, other := range st.applications {
		if id == app.ID {
			continue
		}
		if other.ApplicationNumber == app.ApplicationNumber {
			return repository.ErrConflict
		}
		otherCert, otherReceipt := detailKeys(other.Detail)
		if cert != "" && cert == otherCert {
			return repository.ErrConflict
		}
		if receipt != "" && receipt == otherReceipt {
			return repository.ErrConflict
		}
	}
	return nil
}

func detailKeys(detail domain.ApplicationDetail) (cert, receipt string) {
	if issuer, ok := detail.(domain.CertificateIssuer); ok {
		cert = issuer.Cert().Number
	}
	if tax, ok := detail.(*domain.TaxDetail); ok {
		receipt = tax.ReceiptNumber
	}
	return cert, receipt
}

type applicationHistoryRepo struct{ s *Store }

func (r *applicationHistoryRepo) Append(_ context.Context, entry *domain.ApplicationStatusHistory) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.applications[entry.ApplicationID]; !ok {
			return repository.ErrNotFound
		}
		st.appHistory = append(st.appHistory, *entry)
		return nil
	})
}

func (r *applicationHistoryRepo) ListByApplication(_ context.Context, applicationID string) ([]domain.ApplicationStatusHistory, error) {
	var out []domain.ApplicationStatusHistory
	_ = r.s.read(func(st *state) error {
		for _, h := range st.appHistory {
			if h.ApplicationID == applicationID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, nil
}
