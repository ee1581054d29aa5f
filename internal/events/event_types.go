package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/panchayat-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountVerified      EventType = "account_verified"
	EventAccountApproved      EventType = "account_approved"
	EventApplicationSubmitted EventType = "application_submitted"
	EventApplicationReviewed  EventType = "application_reviewed"
	EventComplaintFiled       EventType = "complaint_filed"
	EventComplaintUpdated     EventType = "complaint_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(t EventType, subjectID string, actorID *string, at time.Time, payload interface{}) Event {
	return Event{ID: uuid.NewString(), Type: t, SubjectID: subjectID, ActorID: actorID, Timestamp: at, Payload: payload}
}

// AccountPayload carries the user whose activation state changed.
type AccountPayload struct {
	UserID string                      `json:"user_id"`
	State  domain.AccountApprovalState `json:"state"`
}

// ApplicationSubmittedPayload payload.
type ApplicationSubmittedPayload struct {
	ApplicationNumber string                 `json:"application_number"`
	Type              domain.ApplicationType `json:"type"`
	ApplicantID       string                 `json:"applicant_id"`
}

// ApplicationReviewedPayload payload.
type ApplicationReviewedPayload struct {
	ApplicationNumber string                   `json:"application_number"`
	Type              domain.ApplicationType   `json:"type"`
	ApplicantID       string                   `json:"applicant_id"`
	OldStatus         domain.ApplicationStatus `json:"old_status"`
	NewStatus         domain.ApplicationStatus `json:"new_status"`
	Remarks           string                   `json:"remarks,omitempty"`
	CertificateNumber string                   `json:"certificate_number,omitempty"`
}

// ComplaintFiledPayload payload.
type ComplaintFiledPayload struct {
	ComplaintNumber string                   `json:"complaint_number"`
	Category        domain.ComplaintCategory `json:"category"`
	Priority        domain.ComplaintPriority `json:"priority"`
	Subject         string                   `json:"subject"`
}

// ComplaintUpdatedPayload payload.
type ComplaintUpdatedPayload struct {
	ComplaintNumber string                   `json:"complaint_number"`
	ComplainantID   string                   `json:"complainant_id"`
	Subject         string                   `json:"subject"`
	OldStatus       domain.ComplaintStatus   `json:"old_status"`
	NewStatus       domain.ComplaintStatus   `json:"new_status"`
	Actions         []domain.ComplaintAction `json:"actions"`
	Remarks         string                   `json:"remarks,omitempty"`
}
