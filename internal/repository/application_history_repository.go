package repository

import (
	"context"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// ApplicationHistoryRepository stores append-only status audit entries.
type ApplicationHistoryRepository interface {
	Append(ctx context.Context, entry *domain.ApplicationStatusHistory) error
	ListByApplication(ctx context.Context, applicationID string) ([]domain.ApplicationStatusHistory, error)
}

type applicationHistoryRepository struct {
	db DBTX
}

func (r *applicationHistoryRepository) Append(ctx context.Context, entry *domain.ApplicationStatusHistory) error {
	const query = `
        INSERT INTO application_status_history (id, application_id, old_status, new_status, changed_by, changed_at, remarks)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.ApplicationID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.ChangedAt,
		entry.Remarks,
	)
	return translate(err)
}

func (r *applicationHistoryRepository) ListByApplication(ctx context.Context, applicationID string) ([]domain.ApplicationStatusHistory, error) {
	const query = `
        SELECT id, application_id, old_status, new_status, changed_by, changed_at, remarks
        FROM application_status_history WHERE application_id=$1 ORDER BY seq ASC`
	rows, err := r.db.Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApplicationStatusHistory
	for rows.Next() {
		var entry domain.ApplicationStatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ApplicationID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.ChangedAt,
			&entry.Remarks,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
