package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/spec-kit/panchayat-portal/internal/config"
)

// SMTPSender composes MIME messages with go-message and submits them over SMTP.
type SMTPSender struct {
	cfg  config.SMTPConfig
	from *mail.Address
	now  func() time.Time
}

func NewSMTPSender(cfg config.SMTPConfig, mailCfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		cfg:  cfg,
		from: &mail.Address{Name: mailCfg.FromName, Address: mailCfg.From},
		now:  time.Now,
	}
}

func (s *SMTPSender) Send(ctx context.Context, env Envelope) error {
	raw, err := Compose(s.from, env, s.now())
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	if err := s.submit(ctx, env.To, raw); err != nil {
		return fmt.Errorf("smtp send to %s: %w", env.To, err)
	}
	return nil
}

// Compose renders env as an RFC 5322 message with text and HTML alternatives.
func Compose(from *mail.Address, env Envelope, at time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(at)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{{Name: env.ToName, Address: env.To}})
	h.SetSubject(env.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}
	if env.ID != "" {
		h.Set("X-Portal-Mail-Id", env.ID)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	alt, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", env.TextBody},
		{"text/html", env.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var ph mail.InlineHeader
		ph.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		ph.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := alt.CreatePart(ph)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *SMTPSender) submit(ctx context.Context, to string, raw []byte) error {
	timeout := s.cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if s.cfg.StartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(s.from.Address); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}
