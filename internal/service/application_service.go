package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/repository"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

const certificateValidity = 365 * 24 * time.Hour

// ApplicationStatistics counts applications by status.
type ApplicationStatistics struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	UnderReview int `json:"under_review"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
}

// ApplicationService drives certificate and tax applications through review.
type ApplicationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
}

// ApplicationDependencies bundles collaborators for the application service.
type ApplicationDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

func NewApplicationService(deps ApplicationDependencies) *ApplicationService {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{store: deps.Store, dispatcher: deps.Dispatcher, clock: clock, logger: logger}
}

// Create validates the type-specific payload and stores a pending application
// with its first history entry.
func (s *ApplicationService) Create(ctx context.Context, applicant *domain.User, appType domain.ApplicationType, payload []byte) (*domain.Application, error) {
	if !appType.Valid() {
		return nil, apperrors.NewValidationError("unknown application type", map[string]any{"application_type": appType})
	}
	detail, err := domain.DecodeDetail(appType, payload)
	if err != nil {
		return nil, apperrors.NewValidationError("application details are malformed", map[string]any{"detail": err.Error()})
	}
	if tax, ok := detail.(*domain.TaxDetail); ok {
		tax.TaxType = appType
		tax.PaymentStatus = domain.PaymentPending
		tax.PaymentMethod = ""
		tax.PaymentDate = nil
		tax.TransactionID = ""
		tax.RecomputeTotal()
	}
	if err := detail.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	remarks := "Application submitted"
	if appType.IsTax() {
		remarks = appType.Title() + " payment application submitted"
	}

	var app *domain.Application
	err = allocateWithRetry(ctx, s.store, func(tx repository.Store, suffix string) error {
		now := s.clock.Now().UTC()
		app = &domain.Application{
			ID:                uuid.NewString(),
			ApplicationNumber: applicationNumber(appType, now, suffix),
			ApplicantID:       applicant.ID,
			Type:              appType,
			Status:            domain.ApplicationPending,
			AppliedAt:         now,
			Detail:            detail,
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return err
		}
		return tx.ApplicationHistory().Append(ctx, &domain.ApplicationStatusHistory{
			ID:            uuid.NewString(),
			ApplicationID: app.ID,
			OldStatus:     "",
			NewStatus:     string(domain.ApplicationPending),
			ChangedBy:     &applicant.ID,
			ChangedAt:     now,
			Remarks:       &remarks,
		})
	})
	if err != nil {
		return nil, wrapStoreError(err)
	}

	s.logger.Info("application submitted",
		zap.String("application_number", app.ApplicationNumber),
		zap.String("type", string(appType)),
	)
	s.publish(ctx, events.New(events.EventApplicationSubmitted, app.ID, &applicant.ID, app.AppliedAt,
		events.ApplicationSubmittedPayload{ApplicationNumber: app.ApplicationNumber, Type: appType, ApplicantID: applicant.ID}))
	return app, nil
}

// Review records a staff decision. History is written only when the status
// changes. Approval assigns a certificate number once.
func (s *ApplicationService) Review(ctx context.Context, reviewer *domain.User, appID string, status domain.ApplicationStatus, remarks string) (*domain.Application, error) {
	if reviewer == nil || !reviewer.Role.IsStaff() {
		return nil, apperrors.NewForbidden("Only staff can review applications.")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	remarks = strings.TrimSpace(remarks)

	var (
		app       *domain.Application
		oldStatus domain.ApplicationStatus
	)
	err := allocateWithRetry(ctx, s.store, func(tx repository.Store, suffix string) error {
		var err error
		app, err = tx.Applications().GetByIDForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		oldStatus = app.Status

		app.Status = status
		app.ReviewedAt = &now
		app.ReviewedBy = &reviewer.ID
		app.AdminRemarks = &remarks

		if oldStatus != status {
			entry := &domain.ApplicationStatusHistory{
				ID:            uuid.NewString(),
				ApplicationID: app.ID,
				OldStatus:     string(oldStatus),
				NewStatus:     string(status),
				ChangedBy:     &reviewer.ID,
				ChangedAt:     now,
			}
			if remarks != "" {
				entry.Remarks = &remarks
			}
			if err := tx.ApplicationHistory().Append(ctx, entry); err != nil {
				return err
			}
			if status == domain.ApplicationApproved {
				issueCertificate(app, now, suffix)
			}
		}
		return tx.Applications().Update(ctx, app)
	})
	if err != nil {
		return nil, wrapStoreErrorFor(err, "application", appID)
	}

	s.logger.Info("application reviewed",
		zap.String("application_number", app.ApplicationNumber),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(status)),
		zap.String("reviewer", reviewer.Username),
	)
	if oldStatus != status {
		payload := events.ApplicationReviewedPayload{
			ApplicationNumber: app.ApplicationNumber,
			Type:              app.Type,
			ApplicantID:       app.ApplicantID,
			OldStatus:         oldStatus,
			NewStatus:         status,
			Remarks:           remarks,
		}
		if issuer, ok := app.Detail.(domain.CertificateIssuer); ok {
			payload.CertificateNumber = issuer.Cert().Number
		}
		s.publish(ctx, events.New(events.EventApplicationReviewed, app.ID, &reviewer.ID, *app.ReviewedAt, payload))
	}
	return app, nil
}

// issueCertificate fills the certificate fields of an approved application
// unless a number was already assigned.
func issueCertificate(app *domain.Application, now time.Time, suffix string) {
	issuer, ok := app.Detail.(domain.CertificateIssuer)
	if !ok {
		return
	}
	cert := issuer.Cert()
	if cert.Assigned() {
		return
	}
	issued := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cert.Number = certificateNumber(app.Type, now, suffix)
	cert.IssuedOn = &issued
	if issuer.HasValidity() {
		until := issued.Add(certificateValidity)
		cert.ValidUntil = &until
	}
}

// RecordTaxPayment marks a tax application paid and assigns its receipt number.
func (s *ApplicationService) RecordTaxPayment(ctx context.Context, actor *domain.User, appID, method, transactionID string) (*domain.Application, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("Only staff can record payments.")
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if !domain.ValidPaymentMethod(method) {
		return nil, apperrors.NewValidationError("payment method must be online, cash, cheque or dd", nil)
	}

	var app *domain.Application
	err := allocateWithRetry(ctx, s.store, func(tx repository.Store, suffix string) error {
		var err error
		app, err = tx.Applications().GetByIDForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		tax, ok := app.Detail.(*domain.TaxDetail)
		if !ok {
			return apperrors.NewValidationError("application is not a tax payment", nil)
		}
		if tax.PaymentStatus == domain.PaymentPaid {
			return apperrors.NewConflict("payment already recorded", map[string]any{"receipt_number": tax.ReceiptNumber})
		}
		now := s.clock.Now().UTC()
		tax.PaymentStatus = domain.PaymentPaid
		tax.PaymentMethod = method
		tax.PaymentDate = &now
		tax.TransactionID = strings.TrimSpace(transactionID)
		if tax.ReceiptNumber == "" {
			tax.ReceiptNumber = receiptNumber(now, suffix)
		}
		return tx.Applications().Update(ctx, app)
	})
	if err != nil {
		return nil, wrapStoreErrorFor(err, "application", appID)
	}
	s.logger.Info("tax payment recorded",
		zap.String("application_number", app.ApplicationNumber),
		zap.String("method", method),
		zap.String("recorded_by", actor.Username),
	)
	return app, nil
}

// Get returns an application visible to viewer. Citizens only see their own.
func (s *ApplicationService) Get(ctx context.Context, viewer *domain.User, appID string) (*domain.Application, error) {
	app, err := s.store.Applications().GetByID(ctx, appID)
	if err != nil {
		return nil, wrapStoreErrorFor(err, "application", appID)
	}
	if !viewer.Role.IsStaff() && app.ApplicantID != viewer.ID {
		return nil, apperrors.NewNotFound("application", map[string]any{"id": appID})
	}
	return app, nil
}

// GetByNumber looks an application up for public tracking.
func (s *ApplicationService) GetByNumber(ctx context.Context, number string) (*domain.Application, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	app, err := s.store.Applications().GetByNumber(ctx, number)
	if err != nil {
		return nil, wrapStoreErrorFor(err, "application", number)
	}
	return app, nil
}

// ListForApplicant lists the caller's own applications, newest first.
func (s *ApplicationService) ListForApplicant(ctx context.Context, applicant *domain.User, filter repository.ApplicationFilter) ([]domain.Application, error) {
	filter.ApplicantID = &applicant.ID
	return s.List(ctx, filter)
}

// List returns applications matching filter.
func (s *ApplicationService) List(ctx context.Context, filter repository.ApplicationFilter) ([]domain.Application, error) {
	filter.Page = filter.Page.Normalize()
	apps, err := s.store.Applications().List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return apps, nil
}

// History returns the status trail of an application in write order.
func (s *ApplicationService) History(ctx context.Context, viewer *domain.User, appID string) ([]domain.ApplicationStatusHistory, error) {
	if _, err := s.Get(ctx, viewer, appID); err != nil {
		return nil, err
	}
	entries, err := s.store.ApplicationHistory().ListByApplication(ctx, appID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// Statistics counts applications per status, for one applicant when set.
func (s *ApplicationService) Statistics(ctx context.Context, applicantID *string) (ApplicationStatistics, error) {
	counts, err := s.store.Applications().CountByStatus(ctx, applicantID)
	if err != nil {
		return ApplicationStatistics{}, apperrors.NewInternalError(err)
	}
	stats := ApplicationStatistics{
		Pending:     counts[domain.ApplicationPending],
		UnderReview: counts[domain.ApplicationUnderReview],
		Approved:    counts[domain.ApplicationApproved],
		Rejected:    counts[domain.ApplicationRejected],
	}
	stats.Total = stats.Pending + stats.UnderReview + stats.Approved + stats.Rejected
	return stats, nil
}

func (s *ApplicationService) publish(ctx context.Context, ev events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, ev)
}

func wrapStoreError(err error) error {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func wrapStoreErrorFor(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return wrapStoreError(err)
}
