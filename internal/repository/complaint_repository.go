package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// ComplaintFilter captures staff search parameters.
type ComplaintFilter struct {
	ComplainantID *string
	AssigneeID    *string
	Unassigned    bool
	Statuses      []domain.ComplaintStatus
	Categories    []domain.ComplaintCategory
	Priorities    []domain.ComplaintPriority
	SearchTerm    *string
	Page
}

// ComplaintStats summarizes the grievance queue.
type ComplaintStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
	Unassigned int `json:"unassigned"`
	UrgentOpen int `json:"urgent_open"`
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Complaint, error)
	GetByNumber(ctx context.Context, number string) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	Stats(ctx context.Context) (ComplaintStats, error)
}

type complaintRepository struct {
	db DBTX
}

const complaintColumns = `id, complaint_number, complainant_id, category, subject, description, location,
       priority, status, assigned_to, resolution_remarks, resolved_date, created_at, updated_at`

func (r *complaintRepository) Create(ctx context.Context, c *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (id, complaint_number, complainant_id, category, subject, description,
            location, priority, status, assigned_to, resolution_remarks, resolved_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.ComplaintNumber,
		c.ComplainantID,
		c.Category,
		c.Subject,
		c.Description,
		c.Location,
		c.Priority,
		c.Status,
		c.AssignedToID,
		c.ResolutionRemarks,
		c.ResolvedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return translate(err)
}

func (r *complaintRepository) Update(ctx context.Context, c *domain.Complaint) error {
	const query = `
        UPDATE complaints SET category=$1, subject=$2, description=$3, location=$4, priority=$5,
            status=$6, assigned_to=$7, resolution_remarks=$8, resolved_date=$9, updated_at=$10
        WHERE id=$11`
	return requireAffected(r.db.Exec(ctx, query,
		c.Category,
		c.Subject,
		c.Description,
		c.Location,
		c.Priority,
		c.Status,
		c.AssignedToID,
		c.ResolutionRemarks,
		c.ResolvedAt,
		c.UpdatedAt,
		c.ID,
	))
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id=$1`, id)
}

func (r *complaintRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id=$1 FOR UPDATE`, id)
}

func (r *complaintRepository) GetByNumber(ctx context.Context, number string) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE complaint_number=$1`, number)
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ComplainantID != nil {
		args = append(args, *filter.ComplainantID)
		clauses = append(clauses, fmt.Sprintf("complainant_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s OR LOWER(complaint_number) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	page := filter.Page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, strings.Join(clauses, " AND "), page.Limit, page.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *complaintRepository) Stats(ctx context.Context) (ComplaintStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='in_progress'),
               COUNT(*) FILTER (WHERE status='resolved'),
               COUNT(*) FILTER (WHERE status='closed'),
               COUNT(*) FILTER (WHERE assigned_to IS NULL),
               COUNT(*) FILTER (WHERE priority='urgent' AND status IN ('open','in_progress'))
        FROM complaints`
	var s ComplaintStats
	err := r.db.QueryRow(ctx, query).Scan(&s.Total, &s.Open, &s.InProgress, &s.Resolved, &s.Closed, &s.Unassigned, &s.UrgentOpen)
	return s, translate(err)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	c, err := scanComplaint(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := row.Scan(
		&c.ID,
		&c.ComplaintNumber,
		&c.ComplainantID,
		&c.Category,
		&c.Subject,
		&c.Description,
		&c.Location,
		&c.Priority,
		&c.Status,
		&c.AssignedToID,
		&c.ResolutionRemarks,
		&c.ResolvedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
