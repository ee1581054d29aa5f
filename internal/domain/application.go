package domain

import (
	"strings"
	"time"
)

// ApplicationType enumerates the services a citizen can apply for.
type ApplicationType string

const (
	ApplicationBirthCertificate  ApplicationType = "birth_certificate"
	ApplicationDeathCertificate  ApplicationType = "death_certificate"
	ApplicationIncomeCertificate ApplicationType = "income_certificate"
	ApplicationWaterTax          ApplicationType = "water_tax"
	ApplicationHouseTax          ApplicationType = "house_tax"
)

// Valid reports whether t is a known application type.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationBirthCertificate, ApplicationDeathCertificate, ApplicationIncomeCertificate,
		ApplicationWaterTax, ApplicationHouseTax:
		return true
	}
	return false
}

// IsTax reports whether the type is a tax payment.
func (t ApplicationType) IsTax() bool {
	return t == ApplicationWaterTax || t == ApplicationHouseTax
}

// Prefix is the upper-cased first four characters used in generated numbers.
func (t ApplicationType) Prefix() string {
	s := string(t)
	if len(s) > 4 {
		s = s[:4]
	}
	return strings.ToUpper(s)
}

// Title renders the type for human messages, e.g. "Water Tax".
func (t ApplicationType) Title() string {
	return titleCase(string(t))
}

// ApplicationStatus enumerates review states.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationUnderReview, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Label renders the status for messages, e.g. "Under Review".
func (s ApplicationStatus) Label() string {
	return titleCase(string(s))
}

// Application is the envelope shared by every certificate and tax request.
type Application struct {
	ID                string
	ApplicationNumber string
	ApplicantID       string
	Type              ApplicationType
	Status            ApplicationStatus
	AppliedAt         time.Time
	ReviewedAt        *time.Time
	ReviewedBy        *string
	AdminRemarks      *string
	Detail            ApplicationDetail
}

// ApplicationStatusHistory is an append-only audit entry.
type ApplicationStatusHistory struct {
	ID            string
	ApplicationID string
	OldStatus     string
	NewStatus     string
	ChangedBy     *string
	ChangedAt     time.Time
	Remarks       *string
}

func titleCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
