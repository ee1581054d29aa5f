package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

const unassignedLabel = "Unassigned"

// ComplaintInput is the filing form.
type ComplaintInput struct {
	Category    domain.ComplaintCategory
	Subject     string
	Description string
	Location    string
	Priority    domain.ComplaintPriority
}

// ComplaintUpdate lists the fields a staff member wants to change. Nil means
// unchanged; an empty AssigneeID removes the assignment.
type ComplaintUpdate struct {
	Status            *domain.ComplaintStatus
	Priority          *domain.ComplaintPriority
	AssigneeID        *string
	ResolutionRemarks *string
}

// ComplaintService files and progresses citizen grievances.
type ComplaintService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{store: deps.Store, dispatcher: deps.Dispatcher, clock: clock, logger: logger}
}

// File stores an open complaint and its created history entry.
func (s *ComplaintService) File(ctx context.Context, complainant *domain.User, in ComplaintInput) (*domain.Complaint, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	fields := map[string]any{}
	if !in.Category.Valid() {
		fields["category"] = "unknown category"
	}
	if !in.Priority.Valid() {
		fields["priority"] = "must be low, medium, high or urgent"
	}
	if in.Subject == "" || len(in.Subject) > 200 {
		fields["subject"] = "required, at most 200 characters"
	}
	if in.Description == "" {
		fields["description"] = "required"
	}
	if in.Location == "" || len(in.Location) > 200 {
		fields["location"] = "required, at most 200 characters"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("complaint details are invalid", fields)
	}

	var complaint *domain.Complaint
	err := allocateWithRetry(ctx, s.store, func(tx repository.Store, suffix string) error {
		now := s.clock.Now().UTC()
		complaint = &domain.Complaint{
			ID:              uuid.NewString(),
			ComplaintNumber: complaintNumber(now, suffix),
			ComplainantID:   complainant.ID,
			Category:        in.Category,
			Subject:         in.Subject,
			Description:     in.Description,
			Location:        in.Location,
			Priority:        in.Priority,
			Status:          domain.ComplaintOpen,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Complaints().Create(ctx, complaint); err != nil {
			return err
		}
		return tx.ComplaintHistory().Append(ctx, s.entry(complaint, domain.ActionCreated, complainant,
			nil, strPtr(domain.ComplaintOpen.Label()), "Complaint filed: "+complaint.Subject))
	})
	if err != nil {
		return nil, wrapStoreError(err)
	}

	s.logger.Info("complaint filed",
		zap.String("complaint_number", complaint.ComplaintNumber),
		zap.String("category", string(complaint.Category)),
		zap.String("priority", string(complaint.Priority)),
	)
	s.publish(ctx, events.New(events.EventComplaintFiled, complaint.ID, &complainant.ID, complaint.CreatedAt,
		events.ComplaintFiledPayload{
			ComplaintNumber: complaint.ComplaintNumber,
			Category:        complaint.Category,
			Priority:        complaint.Priority,
			Subject:         complaint.Subject,
		}))
	return complaint, nil
}

// Update applies staff changes. Each changed field gets its own history entry,
// written against the pre-update values before the complaint is persisted.
func (s *ComplaintService) Update(ctx context.Context, actor *domain.User, complaintID string, upd ComplaintUpdate) (*domain.Complaint, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("Only staff can update complaints.")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *upd.Status})
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *upd.Priority})
	}

	var (
		complaint *domain.Complaint
		oldStatus domain.ComplaintStatus
		actions   []domain.ComplaintAction
		remarks   string
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		complaint, err = tx.Complaints().GetByIDForUpdate(ctx, complaintID)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		oldStatus = complaint.Status
		actions = actions[:0]
		history := tx.ComplaintHistory()
		appendEntry := func(e *domain.ComplaintHistory) error {
			actions = append(actions, e.Action)
			return history.Append(ctx, e)
		}

		if upd.Status != nil && *upd.Status != complaint.Status {
			next := *upd.Status
			notes := "Status changed from " + complaint.Status.Label() + " to " + next.Label()
			if err := appendEntry(s.entry(complaint, domain.ActionStatusChanged, actor,
				strPtr(string(complaint.Status)), strPtr(string(next)), notes)); err != nil {
				return err
			}
			if next == domain.ComplaintResolved && complaint.ResolvedAt == nil {
				resolvedNotes := "Complaint resolved"
				if upd.ResolutionRemarks != nil && strings.TrimSpace(*upd.ResolutionRemarks) != "" {
					resolvedNotes = strings.TrimSpace(*upd.ResolutionRemarks)
				}
				if err := appendEntry(s.entry(complaint, domain.ActionResolved, actor,
					nil, nil, resolvedNotes)); err != nil {
					return err
				}
				complaint.ResolvedAt = &now
			}
			complaint.Status = next
		}

		if upd.Priority != nil && *upd.Priority != complaint.Priority {
			next := *upd.Priority
			notes := "Priority changed from " + complaint.Priority.Label() + " to " + next.Label()
			if err := appendEntry(s.entry(complaint, domain.ActionPriorityChanged, actor,
				strPtr(string(complaint.Priority)), strPtr(string(next)), notes)); err != nil {
				return err
			}
			complaint.Priority = next
		}

		if upd.AssigneeID != nil && *upd.AssigneeID != deref(complaint.AssignedToID) {
			oldLabel, err := assigneeLabel(ctx, tx, complaint.AssignedToID)
			if err != nil {
				return err
			}
			var next *string
			newLabel := unassignedLabel
			notes := "Assignment removed"
			if *upd.AssigneeID != "" {
				assignee, err := tx.Users().GetByID(ctx, *upd.AssigneeID)
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewValidationError("assignee does not exist", map[string]any{"assigned_to": *upd.AssigneeID})
				}
				if err != nil {
					return err
				}
				if !assignee.Role.IsStaff() {
					return apperrors.NewValidationError("complaints can only be assigned to staff", map[string]any{"assigned_to": assignee.Username})
				}
				next = &assignee.ID
				newLabel = assignee.Username
				notes = "Assigned to " + assignee.FullName()
			}
			if err := appendEntry(s.entry(complaint, domain.ActionAssigned, actor,
				strPtr(oldLabel), strPtr(newLabel), notes)); err != nil {
				return err
			}
			complaint.AssignedToID = next
		}

		if upd.ResolutionRemarks != nil {
			remarks = strings.TrimSpace(*upd.ResolutionRemarks)
			if remarks != "" {
				complaint.ResolutionRemarks = &remarks
			}
		}
		complaint.UpdatedAt = now
		return tx.Complaints().Update(ctx, complaint)
	})
	if err != nil {
		return nil, wrapStoreErrorFor(err, "complaint", complaintID)
	}

	s.logger.Info("complaint updated",
		zap.String("complaint_number", complaint.ComplaintNumber),
		zap.Int("changes", len(actions)),
		zap.String("updated_by", actor.Username),
	)
	if len(actions) > 0 {
		s.publish(ctx, events.New(events.EventComplaintUpdated, complaint.ID, &actor.ID, complaint.UpdatedAt,
			events.ComplaintUpdatedPayload{
				ComplaintNumber: complaint.ComplaintNumber,
				ComplainantID:   complaint.ComplainantID,
				Subject:         complaint.Subject,
				OldStatus:       oldStatus,
				NewStatus:       complaint.Status,
				Actions:         actions,
				Remarks:         remarks,
			}))
	}
	return complaint, nil
}

// Get returns a complaint visible to viewer. Citizens only see their own.
func (s *ComplaintService) Get(ctx context.Context, viewer *domain.User, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.store.Complaints().GetByID(ctx, complaintID)
	if err != nil {
		return nil, wrapStoreErrorFor(err, "complaint", complaintID)
	}
	if !viewer.Role.IsStaff() && complaint.ComplainantID != viewer.ID {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": complaintID})
	}
	return complaint, nil
}

// ListForComplainant lists the caller's own complaints.
func (s *ComplaintService) ListForComplainant(ctx context.Context, complainant *domain.User, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	filter.ComplainantID = &complainant.ID
	return s.List(ctx, filter)
}

// List returns complaints matching filter.
func (s *ComplaintService) List(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	filter.Page = filter.Page.Normalize()
	complaints, err := s.store.Complaints().List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return complaints, nil
}

// History returns the audit trail of a complaint in write order.
func (s *ComplaintService) History(ctx context.Context, viewer *domain.User, complaintID string) ([]domain.ComplaintHistory, error) {
	if _, err := s.Get(ctx, viewer, complaintID); err != nil {
		return nil, err
	}
	entries, err := s.store.ComplaintHistory().ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// Statistics summarizes the complaint queue.
func (s *ComplaintService) Statistics(ctx context.Context) (repository.ComplaintStats, error) {
	stats, err := s.store.Complaints().Stats(ctx)
	if err != nil {
		return repository.ComplaintStats{}, apperrors.NewInternalError(err)
	}
	return stats, nil
}

func (s *ComplaintService) entry(c *domain.Complaint, action domain.ComplaintAction, actor *domain.User, oldValue, newValue *string, notes string) *domain.ComplaintHistory {
	e := &domain.ComplaintHistory{
		ID:          uuid.NewString(),
		ComplaintID: c.ID,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		PerformedBy: &actor.ID,
		PerformedAt: s.clock.Now().UTC(),
	}
	if notes != "" {
		e.Notes = &notes
	}
	return e
}

func (s *ComplaintService) publish(ctx context.Context, ev events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, ev)
}

func assigneeLabel(ctx context.Context, tx repository.Store, id *string) (string, error) {
	if id == nil {
		return unassignedLabel, nil
	}
	user, err := tx.Users().GetByID(ctx, *id)
	if errors.Is(err, repository.ErrNotFound) {
		return unassignedLabel, nil
	}
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
