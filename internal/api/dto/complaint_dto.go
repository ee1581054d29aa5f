package dto

import (
	"time"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Category    domain.ComplaintCategory `json:"category"`
	Subject     string                   `json:"subject"`
	Description string                   `json:"description"`
	Location    string                   `json:"location"`
	Priority    domain.ComplaintPriority `json:"priority"`
}

// UpdateComplaintRequest payload. Omitted fields stay unchanged; an empty
// assigned_to removes the assignment.
type UpdateComplaintRequest struct {
	Status            *domain.ComplaintStatus   `json:"status"`
	Priority          *domain.ComplaintPriority `json:"priority"`
	AssignedTo        *string                   `json:"assigned_to"`
	ResolutionRemarks *string                   `json:"resolution_remarks"`
}

// ComplaintResponse is the full view of a complaint.
type ComplaintResponse struct {
	ID                string                   `json:"id"`
	ComplaintNumber   string                   `json:"complaint_number"`
	ComplainantID     string                   `json:"complainant_id"`
	Category          domain.ComplaintCategory `json:"category"`
	Subject           string                   `json:"subject"`
	Description       string                   `json:"description"`
	Location          string                   `json:"location"`
	Priority          domain.ComplaintPriority `json:"priority"`
	Status            domain.ComplaintStatus   `json:"status"`
	AssignedTo        *string                  `json:"assigned_to,omitempty"`
	ResolutionRemarks *string                  `json:"resolution_remarks,omitempty"`
	ResolvedAt        *time.Time               `json:"resolved_at,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// ComplaintHistoryResponse is one complaint history entry.
type ComplaintHistoryResponse struct {
	Action      domain.ComplaintAction `json:"action"`
	OldValue    *string                `json:"old_value,omitempty"`
	NewValue    *string                `json:"new_value,omitempty"`
	PerformedBy *string                `json:"performed_by,omitempty"`
	PerformedAt time.Time              `json:"performed_at"`
	Notes       *string                `json:"notes,omitempty"`
}

func NewComplaintResponse(c *domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:                c.ID,
		ComplaintNumber:   c.ComplaintNumber,
		ComplainantID:     c.ComplainantID,
		Category:          c.Category,
		Subject:           c.Subject,
		Description:       c.Description,
		Location:          c.Location,
		Priority:          c.Priority,
		Status:            c.Status,
		AssignedTo:        c.AssignedToID,
		ResolutionRemarks: c.ResolutionRemarks,
		ResolvedAt:        c.ResolvedAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func NewComplaintHistory(entries []domain.ComplaintHistory) []ComplaintHistoryResponse {
	out := make([]ComplaintHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ComplaintHistoryResponse{
			Action:      e.Action,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			PerformedBy: e.PerformedBy,
			PerformedAt: e.PerformedAt,
			Notes:       e.Notes,
		})
	}
	return out
}
