package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationDetail is the type-specific record attached 1:1 to an Application.
type ApplicationDetail interface {
	Validate() error
}

// Certificate holds the fields filled in when a certificate application is approved.
type Certificate struct {
	Number     string
	IssuedOn   *time.Time
	ValidUntil *time.Time
}

// Assigned reports whether a certificate number has been issued.
func (c *Certificate) Assigned() bool {
	return c.Number != ""
}

// CertificateIssuer is implemented by detail variants that yield a certificate on approval.
type CertificateIssuer interface {
	ApplicationDetail
	Cert() *Certificate
	HasValidity() bool
}

var aadharPattern = regexp.MustCompile(`^\d{12}$`)
var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// Gender values accepted on certificate applications.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// BirthDetail captures a birth certificate application.
type BirthDetail struct {
	ChildName        string      `json:"child_name"`
	ChildGender      string      `json:"child_gender"`
	DateOfBirth      time.Time   `json:"date_of_birth"`
	PlaceOfBirth     string      `json:"place_of_birth"`
	FatherName       string      `json:"father_name"`
	FatherAadhar     string      `json:"father_aadhar,omitempty"`
	MotherName       string      `json:"mother_name"`
	MotherAadhar     string      `json:"mother_aadhar,omitempty"`
	PermanentAddress string      `json:"permanent_address"`
	Certificate      Certificate `json:"-"`
}

func (d *BirthDetail) Cert() *Certificate { return &d.Certificate }
func (d *BirthDetail) HasValidity() bool { return false }

func (d *BirthDetail) Validate() error {
	if err := required(map[string]string{
		"child_name":        d.ChildName,
		"place_of_birth":    d.PlaceOfBirth,
		"father_name":       d.FatherName,
		"mother_name":       d.MotherName,
		"permanent_address": d.PermanentAddress,
	}); err != nil {
		return err
	}
	if err := validGender(d.ChildGender); err != nil {
		return err
	}
	if d.DateOfBirth.IsZero() {
		return errors.New("date_of_birth is required")
	}
	if d.DateOfBirth.After(time.Now()) {
		return errors.New("date_of_birth cannot be in the future")
	}
	for field, v := range map[string]string{"father_aadhar": d.FatherAadhar, "mother_aadhar": d.MotherAadhar} {
		if v != "" && !aadharPattern.MatchString(v) {
			return fmt.Errorf("%s must be exactly 12 digits", field)
		}
	}
	return nil
}

// DeathDetail captures a death certificate application.
type DeathDetail struct {
	DeceasedName      string      `json:"deceased_name"`
	DeceasedGender    string      `json:"deceased_gender"`
	DeceasedAge       int         `json:"deceased_age"`
	DateOfDeath       time.Time   `json:"date_of_death"`
	PlaceOfDeath      string      `json:"place_of_death"`
	CauseOfDeath      string      `json:"cause_of_death"`
	InformantName     string      `json:"informant_name"`
	InformantRelation string      `json:"informant_relation"`
	InformantPhone    string      `json:"informant_phone"`
	PermanentAddress  string      `json:"permanent_address"`
	Certificate       Certificate `json:"-"`
}

func (d *DeathDetail) Cert() *Certificate { return &d.Certificate }
func (d *DeathDetail) HasValidity() bool { return false }

func (d *DeathDetail) Validate() error {
	if err := required(map[string]string{
		"deceased_name":      d.DeceasedName,
		"place_of_death":     d.PlaceOfDeath,
		"cause_of_death":     d.CauseOfDeath,
		"informant_name":     d.InformantName,
		"informant_relation": d.InformantRelation,
		"permanent_address":  d.PermanentAddress,
	}); err != nil {
		return err
	}
	if err := validGender(d.DeceasedGender); err != nil {
		return err
	}
	if d.DeceasedAge < 0 {
		return errors.New("deceased_age cannot be negative")
	}
	if d.DateOfDeath.IsZero() {
		return errors.New("date_of_death is required")
	}
	if !phonePattern.MatchString(d.InformantPhone) {
		return errors.New("informant_phone must be 10 digits starting with 6-9")
	}
	return nil
}

// Income sources accepted on income certificate applications.
var incomeSources = map[string]struct{}{
	"agriculture": {}, "business": {}, "salary": {}, "pension": {}, "other": {},
}

// IncomeDetail captures an income certificate application. Issued certificates
// are valid for one year.
type IncomeDetail struct {
	ApplicantName        string          `json:"applicant_name"`
	FatherHusbandName    string          `json:"father_husband_name"`
	Occupation           string          `json:"occupation"`
	AnnualIncome         decimal.Decimal `json:"annual_income"`
	IncomeSource         string          `json:"income_source"`
	IncomeDetails        string          `json:"income_details"`
	PurposeOfCertificate string          `json:"purpose_of_certificate"`
	ResidentialAddress   string          `json:"residential_address"`
	Certificate          Certificate     `json:"-"`
}

func (d *IncomeDetail) Cert() *Certificate { return &d.Certificate }
func (d *IncomeDetail) HasValidity() bool { return true }

func (d *IncomeDetail) Validate() error {
	if err := required(map[string]string{
		"applicant_name":         d.ApplicantName,
		"father_husband_name":    d.FatherHusbandName,
		"occupation":             d.Occupation,
		"income_details":         d.IncomeDetails,
		"purpose_of_certificate": d.PurposeOfCertificate,
		"residential_address":    d.ResidentialAddress,
	}); err != nil {
		return err
	}
	if d.AnnualIncome.IsNegative() {
		return errors.New("annual_income cannot be negative")
	}
	if _, ok := incomeSources[d.IncomeSource]; !ok {
		return fmt.Errorf("unknown income_source %q", d.IncomeSource)
	}
	return nil
}

// Tax payment states and methods.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

var paymentMethods = map[string]struct{}{"online": {}, "cash": {}, "cheque": {}, "dd": {}}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	_, ok := paymentMethods[m]
	return ok
}

// TaxDetail captures a water or house tax payment request.
type TaxDetail struct {
	TaxType          ApplicationType `json:"tax_type"`
	PropertyNumber   string          `json:"property_number"`
	PropertyAddress  string          `json:"property_address"`
	PropertyAreaSqft decimal.Decimal `json:"property_area_sqft"`
	FinancialYear    string          `json:"financial_year"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	LateFee          decimal.Decimal `json:"late_fee"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	TransactionID    string          `json:"transaction_id,omitempty"`
	ReceiptNumber    string          `json:"-"`
}

var financialYearPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func (d *TaxDetail) Validate() error {
	if !d.TaxType.IsTax() {
		return fmt.Errorf("unknown tax_type %q", d.TaxType)
	}
	if err := required(map[string]string{
		"property_number":  d.PropertyNumber,
		"property_address": d.PropertyAddress,
	}); err != nil {
		return err
	}
	if !financialYearPattern.MatchString(d.FinancialYear) {
		return errors.New("financial_year must look like 2025-26")
	}
	for field, v := range map[string]decimal.Decimal{
		"property_area_sqft": d.PropertyAreaSqft,
		"tax_amount":         d.TaxAmount,
		"late_fee":           d.LateFee,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s cannot be negative", field)
		}
	}
	return nil
}

// RecomputeTotal sets TotalAmount to TaxAmount plus LateFee.
func (d *TaxDetail) RecomputeTotal() {
	d.TotalAmount = d.TaxAmount.Add(d.LateFee)
}

// NewDetail returns an empty detail variant for t.
func NewDetail(t ApplicationType) (ApplicationDetail, error) {
	switch t {
	case ApplicationBirthCertificate:
		return &BirthDetail{}, nil
	case ApplicationDeathCertificate:
		return &DeathDetail{}, nil
	case ApplicationIncomeCertificate:
		return &IncomeDetail{}, nil
	case ApplicationWaterTax, ApplicationHouseTax:
		return &TaxDetail{TaxType: t}, nil
	}
	return nil, fmt.Errorf("unknown application type %q", t)
}

// DecodeDetail rebuilds a stored detail payload for t.
func DecodeDetail(t ApplicationType, payload []byte) (ApplicationDetail, error) {
	detail, err := NewDetail(t)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return detail, nil
	}
	if err := json.Unmarshal(payload, detail); err != nil {
		return nil, fmt.Errorf("decode %s detail: %w", t, err)
	}
	return detail, nil
}

func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%s required", strings.Join(missing, ", "))
}

func validGender(g string) error {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return nil
	}
	return fmt.Errorf("unknown gender %q", g)
}
