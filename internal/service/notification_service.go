package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
	"github.com/spec-kit/panchayat-portal/internal/repository"
)

// NotificationService mails citizens when their applications or complaints move.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	renderer   *mailer.Renderer
	sender     mailer.Sender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, renderer *mailer.Renderer, sender mailer.Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		renderer:   renderer,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events and returns the event types it now
// listens to. Only reviews and status changes produce mail; the rest are logged.
func (n *NotificationService) RegisterHandlers() []events.EventType {
	if n.dispatcher == nil {
		return nil
	}
	handlers := []struct {
		eventType events.EventType
		handler   events.EventHandler
	}{
		{events.EventApplicationReviewed, n.handleApplicationReviewed},
		{events.EventComplaintUpdated, n.handleComplaintUpdated},
		{events.EventAccountVerified, n.logEvent},
		{events.EventAccountApproved, n.logEvent},
		{events.EventApplicationSubmitted, n.logEvent},
		{events.EventComplaintFiled, n.logEvent},
	}
	subscribed := make([]events.EventType, 0, len(handlers))
	for _, h := range handlers {
		n.dispatcher.Subscribe(h.eventType, h.handler)
		subscribed = append(subscribed, h.eventType)
	}
	return subscribed
}

func (n *NotificationService) handleApplicationReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ApplicationReviewedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	user, err := n.users.GetByID(ctx, payload.ApplicantID)
	if err != nil {
		return fmt.Errorf("load applicant: %w", err)
	}
	env, err := n.renderer.ApplicationReviewed(user.Email, mailer.ApplicationReviewedData{
		Name:              user.FullName(),
		Number:            payload.ApplicationNumber,
		TypeTitle:         payload.Type.Title(),
		Status:            payload.NewStatus.Label(),
		Remarks:           payload.Remarks,
		CertificateNumber: payload.CertificateNumber,
	}, event.Timestamp)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, env)
}

func (n *NotificationService) handleComplaintUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.OldStatus == payload.NewStatus {
		return nil
	}
	user, err := n.users.GetByID(ctx, payload.ComplainantID)
	if err != nil {
		return fmt.Errorf("load complainant: %w", err)
	}
	env, err := n.renderer.ComplaintUpdated(user.Email, mailer.ComplaintUpdatedData{
		Name:    user.FullName(),
		Number:  payload.ComplaintNumber,
		Subject: payload.Subject,
		Status:  payload.NewStatus.Label(),
		Remarks: payload.Remarks,
	}, event.Timestamp)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, env)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}
