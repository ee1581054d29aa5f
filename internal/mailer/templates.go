package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
)

//go:embed templates/*
var templateFS embed.FS

// Renderer turns notification data into Envelopes.
type Renderer struct {
	appName       string
	subjectPrefix string
	html          *htmltemplate.Template
	text          *texttemplate.Template
}

func NewRenderer(appName, subjectPrefix string) *Renderer {
	return &Renderer{
		appName:       appName,
		subjectPrefix: subjectPrefix,
		html:          htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html")),
		text:          texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt")),
	}
}

// OTPData fills the verification code email.
type OTPData struct {
	Name          string
	Code          string
	ExpiryMinutes int
}

// ApplicationReviewedData fills the review notification.
type ApplicationReviewedData struct {
	Name              string
	Number            string
	TypeTitle         string
	Status            string
	Remarks           string
	CertificateNumber string
}

// ComplaintUpdatedData fills the complaint status notification.
type ComplaintUpdatedData struct {
	Name    string
	Number  string
	Subject string
	Status  string
	Remarks string
}

func (r *Renderer) OTP(to string, data OTPData, at time.Time) (Envelope, error) {
	subject := fmt.Sprintf("Email Verification OTP - %s", r.appName)
	return r.render(KindOTP, to, data.Name, subject, "otp", data, at)
}

func (r *Renderer) ApplicationReviewed(to string, data ApplicationReviewedData, at time.Time) (Envelope, error) {
	subject := fmt.Sprintf("Application %s: %s", data.Number, data.Status)
	return r.render(KindNotification, to, data.Name, subject, "application_reviewed", data, at)
}

func (r *Renderer) ComplaintUpdated(to string, data ComplaintUpdatedData, at time.Time) (Envelope, error) {
	subject := fmt.Sprintf("Complaint %s: %s", data.Number, data.Status)
	return r.render(KindNotification, to, data.Name, subject, "complaint_updated", data, at)
}

func (r *Renderer) render(kind, to, toName, subject, name string, data any, at time.Time) (Envelope, error) {
	view := map[string]any{"AppName": r.appName}
	if err := mergeFields(view, data); err != nil {
		return Envelope{}, err
	}

	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, name+".html", view); err != nil {
		return Envelope{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&text, name+".txt", view); err != nil {
		return Envelope{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if r.subjectPrefix != "" {
		subject = r.subjectPrefix + " " + subject
	}
	return Envelope{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		ToName:    toName,
		Subject:   subject,
		HTMLBody:  html.String(),
		TextBody:  text.String(),
		CreatedAt: at,
	}, nil
}

func mergeFields(view map[string]any, data any) error {
	switch d := data.(type) {
	case OTPData:
		view["Name"], view["Code"], view["ExpiryMinutes"] = d.Name, d.Code, d.ExpiryMinutes
	case ApplicationReviewedData:
		view["Name"], view["Number"], view["TypeTitle"] = d.Name, d.Number, d.TypeTitle
		view["Status"], view["Remarks"], view["CertificateNumber"] = d.Status, d.Remarks, d.CertificateNumber
	case ComplaintUpdatedData:
		view["Name"], view["Number"], view["Subject"] = d.Name, d.Number, d.Subject
		view["Status"], view["Remarks"] = d.Status, d.Remarks
	default:
		return fmt.Errorf("unsupported template data %T", data)
	}
	return nil
}
