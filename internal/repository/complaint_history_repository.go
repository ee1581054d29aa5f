package repository

import (
	"context"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// ComplaintHistoryRepository stores complaint audit entries.
type ComplaintHistoryRepository interface {
	Append(ctx context.Context, entry *domain.ComplaintHistory) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error)
}

type complaintHistoryRepository struct {
	db DBTX
}

func (r *complaintHistoryRepository) Append(ctx context.Context, entry *domain.ComplaintHistory) error {
	const query = `
        INSERT INTO complaint_history (id, complaint_id, action, old_value, new_value, performed_by, performed_at, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.ComplaintID,
		entry.Action,
		entry.OldValue,
		entry.NewValue,
		entry.PerformedBy,
		entry.PerformedAt,
		entry.Notes,
	)
	return translate(err)
}

func (r *complaintHistoryRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	const query = `
        SELECT id, complaint_id, action, old_value, new_value, performed_by, performed_at, notes
        FROM complaint_history WHERE complaint_id=$1 ORDER BY seq ASC`
	rows, err := r.db.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintHistory
	for rows.Next() {
		var entry domain.ComplaintHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&entry.Notes,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
