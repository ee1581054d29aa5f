package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPublishContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var calls []string
	d.Subscribe(EventComplaintFiled, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("mail down")
	})
	d.Subscribe(EventComplaintFiled, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventComplaintUpdated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	ev := New(EventComplaintFiled, "c1", nil, time.Now(), ComplaintFiledPayload{ComplaintNumber: "CMP1"})
	if err := d.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
	if ev.ID == "" {
		t.Fatalf("event id not assigned")
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	reached := false
	d.Subscribe(EventApplicationReviewed, func(context.Context, Event) error {
		panic("renderer missing")
	})
	d.Subscribe(EventApplicationReviewed, func(context.Context, Event) error {
		reached = true
		return nil
	})

	ev := New(EventApplicationReviewed, "a1", nil, time.Now(), ApplicationReviewedPayload{ApplicationNumber: "GPBIRT1"})
	if err := d.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reached {
		t.Fatalf("handler after the panicking one did not run")
	}
}
