// Package mailer delivers outbound portal mail: OTP codes and status
// notifications.
package mailer

import (
	"context"
	"time"
)

// Kinds of envelope.
const (
	KindOTP          = "otp"
	KindNotification = "notification"
)

// Envelope is one rendered message. It is also the wire format of the mail queue.
type Envelope struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	ToName    string    `json:"to_name,omitempty"`
	Subject   string    `json:"subject"`
	HTMLBody  string    `json:"html_body"`
	TextBody  string    `json:"text_body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sender hands an envelope to a transport. A returned error means the
// message was not accepted.
type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, env Envelope) error

func (f SenderFunc) Send(ctx context.Context, env Envelope) error { return f(ctx, env) }
