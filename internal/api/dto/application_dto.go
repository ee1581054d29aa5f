package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// CreateApplicationRequest payload. Details holds the type-specific form.
type CreateApplicationRequest struct {
	ApplicationType domain.ApplicationType `json:"application_type"`
	Details         json.RawMessage        `json:"details"`
}

// ReviewApplicationRequest payload.
type ReviewApplicationRequest struct {
	Status  domain.ApplicationStatus `json:"status"`
	Remarks string                   `json:"remarks"`
}

// TaxPaymentRequest payload.
type TaxPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

// CertificateResponse describes an issued certificate.
type CertificateResponse struct {
	Number     string     `json:"number"`
	IssuedOn   *time.Time `json:"issued_on,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// ApplicationResponse is the full view of an application.
type ApplicationResponse struct {
	ID                string                   `json:"id"`
	ApplicationNumber string                   `json:"application_number"`
	ApplicantID       string                   `json:"applicant_id"`
	Type              domain.ApplicationType   `json:"application_type"`
	TypeTitle         string                   `json:"type_title"`
	Status            domain.ApplicationStatus `json:"status"`
	AppliedAt         time.Time                `json:"applied_at"`
	ReviewedAt        *time.Time               `json:"reviewed_at,omitempty"`
	AdminRemarks      *string                  `json:"admin_remarks,omitempty"`
	Details           domain.ApplicationDetail `json:"details"`
	Certificate       *CertificateResponse     `json:"certificate,omitempty"`
	ReceiptNumber     string                   `json:"receipt_number,omitempty"`
}

// TrackingResponse is the public status view, free of personal details.
type TrackingResponse struct {
	ApplicationNumber string                   `json:"application_number"`
	TypeTitle         string                   `json:"type_title"`
	Status            domain.ApplicationStatus `json:"status"`
	AppliedAt         time.Time                `json:"applied_at"`
	ReviewedAt        *time.Time               `json:"reviewed_at,omitempty"`
	CertificateNumber string                   `json:"certificate_number,omitempty"`
}

// StatusHistoryResponse is one application history entry.
type StatusHistoryResponse struct {
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy *string   `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	Remarks   *string   `json:"remarks,omitempty"`
}

func NewApplicationResponse(app *domain.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                app.ID,
		ApplicationNumber: app.ApplicationNumber,
		ApplicantID:       app.ApplicantID,
		Type:              app.Type,
		TypeTitle:         app.Type.Title(),
		Status:            app.Status,
		AppliedAt:         app.AppliedAt,
		ReviewedAt:        app.ReviewedAt,
		AdminRemarks:      app.AdminRemarks,
		Details:           app.Detail,
	}
	switch d := app.Detail.(type) {
	case domain.CertificateIssuer:
		if cert := d.Cert(); cert.Assigned() {
			resp.Certificate = &CertificateResponse{Number: cert.Number, IssuedOn: cert.IssuedOn, ValidUntil: cert.ValidUntil}
		}
	case *domain.TaxDetail:
		resp.ReceiptNumber = d.ReceiptNumber
	}
	return resp
}

func NewTrackingResponse(app *domain.Application) TrackingResponse {
	resp := TrackingResponse{
		ApplicationNumber: app.ApplicationNumber,
		TypeTitle:         app.Type.Title(),
		Status:            app.Status,
		AppliedAt:         app.AppliedAt,
		ReviewedAt:        app.ReviewedAt,
	}
	if issuer, ok := app.Detail.(domain.CertificateIssuer); ok {
		resp.CertificateNumber = issuer.Cert().Number
	}
	return resp
}

func NewStatusHistory(entries []domain.ApplicationStatusHistory) []StatusHistoryResponse {
	out := make([]StatusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, StatusHistoryResponse{
			OldStatus: e.OldStatus,
			NewStatus: e.NewStatus,
			ChangedBy: e.ChangedBy,
			ChangedAt: e.ChangedAt,
			Remarks:   e.Remarks,
		})
	}
	return out
}
