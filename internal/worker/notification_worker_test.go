package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	"github.com/spec-kit/panchayat-portal/internal/events"
	"github.com/spec-kit/panchayat-portal/internal/mailer"
	"github.com/spec-kit/panchayat-portal/internal/repository/memory"
	"github.com/spec-kit/panchayat-portal/internal/service"
)

func TestStartNotificationWorkerSubscribesMailHandlers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	citizen := &domain.User{ID: "u-1", Username: "kavya", Email: "kavya@example.com", FirstName: "Kavya", Role: domain.RoleCitizen}
	if err := store.Users().Create(ctx, citizen); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var (
		mu   sync.Mutex
		sent []mailer.Envelope
	)
	sender := mailer.SenderFunc(func(_ context.Context, env mailer.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, env)
		return nil
	})
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	notifications := service.NewNotificationService(dispatcher, store.Users(), mailer.NewRenderer("Gram Panchayat Portal", ""), sender, zap.NewNop())

	subscribed := StartNotificationWorker(notifications, zap.NewNop())
	want := map[events.EventType]bool{events.EventApplicationReviewed: false, events.EventComplaintUpdated: false}
	for _, et := range subscribed {
		if _, ok := want[et]; ok {
			want[et] = true
		}
	}
	for et, seen := range want {
		if !seen {
			t.Fatalf("%s not subscribed: %v", et, subscribed)
		}
	}

	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	err := dispatcher.Publish(ctx, events.New(events.EventComplaintUpdated, "c-1", nil, at, events.ComplaintUpdatedPayload{
		ComplaintNumber: "CMP20250314092653",
		ComplainantID:   citizen.ID,
		Subject:         "Street light out",
		OldStatus:       domain.ComplaintOpen,
		NewStatus:       domain.ComplaintInProgress,
	}))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 || sent[0].To != citizen.Email {
		t.Fatalf("expected one mail to %s, got %+v", citizen.Email, sent)
	}
}

func TestStartNotificationWorkerWithoutService(t *testing.T) {
	if got := StartNotificationWorker(nil, nil); got != nil {
		t.Fatalf("expected no subscriptions, got %v", got)
	}
}
