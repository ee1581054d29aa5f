package mailer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/spec-kit/panchayat-portal/internal/config"
)

// KafkaSender enqueues envelopes for the mail worker. Acceptance by the
// brokers counts as a successful dispatch.
type KafkaSender struct {
	writer *kafka.Writer
}

func NewKafkaSender(cfg config.KafkaConfig) *KafkaSender {
	transport := &kafka.Transport{}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}
	if cfg.TLS {
		transport.TLS = &tls.Config{}
	}
	return &KafkaSender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.MailTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Transport:    transport,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (s *KafkaSender) Send(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.To),
		Value: value,
		Time:  env.CreatedAt,
	})
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

// NewKafkaReader builds the consumer side used by the mail worker.
func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if cfg.Username != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}
	if cfg.TLS {
		dialer.TLS = &tls.Config{}
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.MailGroupID,
		Topic:    cfg.MailTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})
}

// DecodeEnvelope parses a queued message value.
func DecodeEnvelope(value []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.To == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing recipient")
	}
	return env, nil
}
