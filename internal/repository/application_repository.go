package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// ApplicationFilter captures listing parameters.
type ApplicationFilter struct {
	ApplicantID *string
	Statuses    []domain.ApplicationStatus
	Types       []domain.ApplicationType
	Page
}

// ApplicationRepository persists application envelopes together with their
// 1:1 detail row.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	Update(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Application, error)
	GetByNumber(ctx context.Context, number string) (*domain.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error)
	// CountByStatus counts applications per status, optionally for one applicant.
	CountByStatus(ctx context.Context, applicantID *string) (map[domain.ApplicationStatus]int, error)
}

type applicationRepository struct {
	db DBTX
}

const applicationSelect = `
        SELECT a.id, a.application_number, a.applicant_id, a.application_type, a.status, a.applied_at,
               a.reviewed_at, a.reviewed_by, a.admin_remarks,
               d.payload, d.certificate_number, d.issued_date, d.valid_until, d.receipt_number
        FROM applications a
        JOIN application_details d ON d.application_id = a.id`

// detailRow is the flattened storage form of an ApplicationDetail.
type detailRow struct {
	payload           []byte
	certificateNumber *string
	issuedDate        *time.Time
	validUntil        *time.Time
	receiptNumber     *string
}

func encodeDetail(detail domain.ApplicationDetail) (detailRow, error) {
	var row detailRow
	payload, err := json.Marshal(detail)
	if err != nil {
		return row, fmt.Errorf("encode detail: %w", err)
	}
	row.payload = payload
	if issuer, ok := detail.(domain.CertificateIssuer); ok {
		cert := issuer.Cert()
		if cert.Number != "" {
			row.certificateNumber = &cert.Number
		}
		row.issuedDate = cert.IssuedOn
		row.validUntil = cert.ValidUntil
	}
	if tax, ok := detail.(*domain.TaxDetail); ok && tax.ReceiptNumber != "" {
		row.receiptNumber = &tax.ReceiptNumber
	}
	return row, nil
}

func decodeDetail(t domain.ApplicationType, row detailRow) (domain.ApplicationDetail, error) {
	detail, err := domain.DecodeDetail(t, row.payload)
	if err != nil {
		return nil, err
	}
	if issuer, ok := detail.(domain.CertificateIssuer); ok {
		cert := issuer.Cert()
		if row.certificateNumber != nil {
			cert.Number = *row.certificateNumber
		}
		cert.IssuedOn = row.issuedDate
		cert.ValidUntil = row.validUntil
	}
	if tax, ok := detail.(*domain.TaxDetail); ok && row.receiptNumber != nil {
		tax.ReceiptNumber = *row.receiptNumber
	}
	return detail, nil
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	row, err := encodeDetail(app.Detail)
	if err != nil {
		return err
	}
	const insertApp = `
        INSERT INTO applications (id, application_number, applicant_id, application_type, status,
            applied_at, reviewed_at, reviewed_by, admin_remarks)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := r.db.Exec(ctx, insertApp,
		app.ID,
		app.ApplicationNumber,
		app.ApplicantID,
		app.Type,
		app.Status,
		app.AppliedAt,
		app.ReviewedAt,
		app.ReviewedBy,
		app.AdminRemarks,
	); err != nil {
		return translate(err)
	}
	const insertDetail = `
        INSERT INTO application_details (application_id, payload, certificate_number, issued_date,
            valid_until, receipt_number)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err = r.db.Exec(ctx, insertDetail,
		app.ID,
		row.payload,
		row.certificateNumber,
		row.issuedDate,
		row.validUntil,
		row.receiptNumber,
	)
	return translate(err)
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.Application) error {
	row, err := encodeDetail(app.Detail)
	if err != nil {
		return err
	}
	const updateApp = `
        UPDATE applications SET status=$1, reviewed_at=$2, reviewed_by=$3, admin_remarks=$4
        WHERE id=$5`
	if err := requireAffected(r.db.Exec(ctx, updateApp,
		app.Status,
		app.ReviewedAt,
		app.ReviewedBy,
		app.AdminRemarks,
		app.ID,
	)); err != nil {
		return err
	}
	const updateDetail = `
        UPDATE application_details SET payload=$1, certificate_number=$2, issued_date=$3,
            valid_until=$4, receipt_number=$5
        WHERE application_id=$6`
	return requireAffected(r.db.Exec(ctx, updateDetail,
		row.payload,
		row.certificateNumber,
		row.issuedDate,
		row.validUntil,
		row.receiptNumber,
		app.ID,
	))
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	return r.fetchSingle(ctx, applicationSelect+` WHERE a.id=$1`, id)
}

func (r *applicationRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Application, error) {
	return r.fetchSingle(ctx, applicationSelect+` WHERE a.id=$1 FOR UPDATE OF a, d`, id)
}

func (r *applicationRepository) GetByNumber(ctx context.Context, number string) (*domain.Application, error) {
	return r.fetchSingle(ctx, applicationSelect+` WHERE a.application_number=$1`, number)
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ApplicantID != nil {
		args = append(args, *filter.ApplicantID)
		clauses = append(clauses, fmt.Sprintf("a.applicant_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("a.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("a.application_type IN (%s)", strings.Join(placeholders, ",")))
	}

	page := filter.Page.Normalize()
	query := fmt.Sprintf(`%s WHERE %s ORDER BY a.applied_at DESC LIMIT %d OFFSET %d`,
		applicationSelect, strings.Join(clauses, " AND "), page.Limit, page.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *app)
	}
	return result, rows.Err()
}

func (r *applicationRepository) CountByStatus(ctx context.Context, applicantID *string) (map[domain.ApplicationStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM applications`
	args := []any{}
	if applicantID != nil {
		query += ` WHERE applicant_id=$1`
		args = append(args, *applicantID)
	}
	query += ` GROUP BY status`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ApplicationStatus]int)
	for rows.Next() {
		var status domain.ApplicationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *applicationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Application, error) {
	app, err := scanApplication(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return app, nil
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var app domain.Application
	var detail detailRow
	if err := row.Scan(
		&app.ID,
		&app.ApplicationNumber,
		&app.ApplicantID,
		&app.Type,
		&app.Status,
		&app.AppliedAt,
		&app.ReviewedAt,
		&app.ReviewedBy,
		&app.AdminRemarks,
		&detail.payload,
		&detail.certificateNumber,
		&detail.issuedDate,
		&detail.validUntil,
		&detail.receiptNumber,
	); err != nil {
		return nil, err
	}
	decoded, err := decodeDetail(app.Type, detail)
	if err != nil {
		return nil, err
	}
	app.Detail = decoded
	return &app, nil
}
