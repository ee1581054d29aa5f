package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/mailer"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func TestMailConsumerDeliversAndSkips(t *testing.T) {
	good, _ := json.Marshal(mailer.Envelope{ID: "e1", Kind: mailer.KindOTP, To: "a@example.com", Subject: "s", CreatedAt: time.Now()})
	failing, _ := json.Marshal(mailer.Envelope{ID: "e2", Kind: mailer.KindOTP, To: "fail@example.com", Subject: "s"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: good},
			{Offset: 2, Value: []byte("not json")},
			{Offset: 3, Value: failing},
		},
		cancel: cancel,
	}
	var delivered []string
	sender := mailer.SenderFunc(func(_ context.Context, env mailer.Envelope) error {
		if env.To == "fail@example.com" {
			return errors.New("smtp down")
		}
		delivered = append(delivered, env.ID)
		return nil
	})

	if err := NewMailConsumer(reader, sender, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(delivered) != 1 || delivered[0] != "e1" {
		t.Fatalf("expected only e1 delivered, got %v", delivered)
	}
	if len(reader.committed) != 3 {
		t.Fatalf("expected every message committed, got %v", reader.committed)
	}
}
