package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
)

func TestNotificationsMailCitizens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	notifications := NewNotificationService(env.dispatcher, env.store.Users(), mailer.NewRenderer("Gram Panchayat Portal", ""), env.sender, zap.NewNop())
	notifications.RegisterHandlers()

	citizen := env.seedUser(t, "tara", domain.RoleCitizen, true)
	staff := env.seedUser(t, "umesh", domain.RoleStaff, true)

	app, err := env.applications.Create(ctx, citizen, domain.ApplicationBirthCertificate, []byte(birthPayload))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if env.sender.count() != 0 {
		t.Fatalf("submission should not mail")
	}
	if _, err := env.applications.Review(ctx, staff, app.ID, domain.ApplicationApproved, "ok"); err != nil {
		t.Fatalf("review: %v", err)
	}
	if env.sender.count() != 1 {
		t.Fatalf("expected review mail, got %d", env.sender.count())
	}
	sent := env.sender.sent[0]
	if sent.To != citizen.Email || !strings.Contains(sent.Subject, app.ApplicationNumber) || !strings.Contains(sent.TextBody, "CERTBIRT") {
		t.Fatalf("unexpected review mail %+v", sent)
	}

	c := fileComplaint(t, env, citizen)
	high := domain.PriorityHigh
	if _, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{Priority: &high}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if env.sender.count() != 1 {
		t.Fatalf("priority change alone should not mail")
	}
	closed := domain.ComplaintClosed
	if _, err := env.complaints.Update(ctx, staff, c.ID, ComplaintUpdate{Status: &closed}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if env.sender.count() != 2 || !strings.Contains(env.sender.sent[1].Subject, "Closed") {
		t.Fatalf("expected closing mail, got %+v", env.sender.sent)
	}
}
