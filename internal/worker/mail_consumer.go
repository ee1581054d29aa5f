package worker

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/panchayat-portal/internal/mailer"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MailConsumer drains the mail topic into a Sender. Undeliverable messages are
// logged and committed; the user can always request a new OTP.
type MailConsumer struct {
	reader MessageReader
	sender mailer.Sender
	logger *zap.Logger
}

func NewMailConsumer(reader MessageReader, sender mailer.Sender, logger *zap.Logger) *MailConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailConsumer{reader: reader, sender: sender, logger: logger}
}

// Run blocks until ctx is cancelled or the reader fails.
func (c *MailConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *MailConsumer) handle(ctx context.Context, msg kafka.Message) {
	env, err := mailer.DecodeEnvelope(msg.Value)
	if err != nil {
		c.logger.Warn("dropping malformed mail message",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}
	if err := c.sender.Send(ctx, env); err != nil {
		c.logger.Error("mail delivery failed",
			zap.String("envelope_id", env.ID),
			zap.String("kind", env.Kind),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("mail delivered", zap.String("envelope_id", env.ID), zap.String("kind", env.Kind))
}
