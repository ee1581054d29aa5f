package mailer

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRenderOTP(t *testing.T) {
	r := NewRenderer("Gram Panchayat Portal", "")
	env, err := r.OTP("asha@example.com", OTPData{Name: "Asha", Code: "482193", ExpiryMinutes: 10}, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if env.Subject != "Email Verification OTP - Gram Panchayat Portal" {
		t.Fatalf("subject = %q", env.Subject)
	}
	if !strings.Contains(env.HTMLBody, "482193") || !strings.Contains(env.TextBody, "482193") {
		t.Fatalf("code missing from bodies")
	}
	if !strings.Contains(env.TextBody, "10 minutes") {
		t.Fatalf("expiry missing: %s", env.TextBody)
	}
	if env.Kind != KindOTP || env.ID == "" {
		t.Fatalf("envelope metadata = %+v", env)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	r := NewRenderer("Portal", "[dev]")
	env, err := r.ComplaintUpdated("a@example.com", ComplaintUpdatedData{
		Name: "A", Number: "CMP1", Subject: "<script>x</script>", Status: "Resolved",
	}, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(env.HTMLBody, "<script>") {
		t.Fatalf("html body not escaped")
	}
	if !strings.HasPrefix(env.Subject, "[dev] ") {
		t.Fatalf("subject prefix missing: %q", env.Subject)
	}
}

func TestComposeProducesReadableMessage(t *testing.T) {
	from := &mail.Address{Name: "Gram Panchayat", Address: "noreply@example.com"}
	raw, err := Compose(from, Envelope{
		To: "asha@example.com", Subject: "Hello", TextBody: "plain body", HTMLBody: "<p>html body</p>",
	}, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	subject, _ := mr.Header.Subject()
	if subject != "Hello" {
		t.Fatalf("subject = %q", subject)
	}
	to, _ := mr.Header.AddressList("To")
	if len(to) != 1 || to[0].Address != "asha@example.com" {
		t.Fatalf("to = %v", to)
	}

	var bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		b, _ := io.ReadAll(part.Body)
		bodies = append(bodies, string(b))
	}
	if len(bodies) != 2 || bodies[0] != "plain body" || bodies[1] != "<p>html body</p>" {
		t.Fatalf("bodies = %q", bodies)
	}
}

func TestLogSenderHidesBodiesByDefault(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core), false)
	if err := s.Send(context.Background(), Envelope{To: "x@example.com", TextBody: "code 123456"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			if strings.Contains(f.String, "123456") {
				t.Fatalf("body leaked into logs")
			}
		}
	}
}

func TestDecodeEnvelope(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"subject":"x"}`)); err == nil {
		t.Fatalf("expected missing recipient error")
	}
	env, err := DecodeEnvelope([]byte(`{"to":"a@example.com","subject":"s","kind":"otp"}`))
	if err != nil || env.To != "a@example.com" || env.Kind != KindOTP {
		t.Fatalf("decode = %+v, %v", env, err)
	}
}
