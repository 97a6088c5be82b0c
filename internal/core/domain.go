package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// ServiceType tags an anonymous collection with the service it was taken at.
	ServiceType string

	// EnvelopeType separates general pledge giving from building-fund giving.
	EnvelopeType string

	Expense struct {
		ID          string
		Date        Date
		Description string
		Amount      Money
		CreatedBy   string
		Version     int64
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	RegularOffering struct {
		ID          string
		Date        Date
		ServiceType ServiceType
		Amount      Money
		Version     int64
		CreatedAt   time.Time
	}

	EnvelopeOffering struct {
		ID             string
		Date           Date
		EnvelopeNumber string
		Amount         Money
		Type           EnvelopeType
		Version        int64
		CreatedAt      time.Time

		// Filled by reads only.
		DonorName      string
		FellowshipName string
	}

	Donor struct {
		ID             string
		EnvelopeNumber string
		FullName       string
		Phone          string
		FellowshipID   string
		Version        int64
		CreatedAt      time.Time

		// Filled by reads only.
		FellowshipName string
	}

	Fellowship struct {
		ID   string
		Name string
	}
)

const (
	ServiceFirst   ServiceType = "Ibada ya Kwanza"
	ServiceSecond  ServiceType = "Ibada ya Pili"
	ServiceSpecial ServiceType = "Ibada Maalum"

	EnvelopeAhadi EnvelopeType = "Ahadi"
	EnvelopeJengo EnvelopeType = "Jengo"
)

// Display fallbacks for joins that found nothing.
const (
	UnknownDonor     = "Haijulikani"
	NoFellowship     = "Hana Jumuiya"
	maxDescription   = 200
	maxEnvelopeChars = 20
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrInvalidServiceType   = errors.New("invalid service type")
	ErrInvalidEnvelopeType  = errors.New("invalid envelope type")
	ErrInvalidEnvelope      = errors.New("invalid envelope number")
	ErrEmptyName            = errors.New("empty name")
	ErrMissingFellowship    = errors.New("missing fellowship")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidRole          = errors.New("invalid role")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrNegativePledge       = errors.New("pledge amount cannot be negative")
)

// ServiceTypes lists the collections in the order forms show them.
func ServiceTypes() []ServiceType {
	return []ServiceType{ServiceFirst, ServiceSecond, ServiceSpecial}
}

func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceFirst, ServiceSecond, ServiceSpecial:
		return true
	}
	return false
}

// EnvelopeTypes lists envelope tags, default first.
func EnvelopeTypes() []EnvelopeType {
	return []EnvelopeType{EnvelopeAhadi, EnvelopeJengo}
}

func (t EnvelopeType) IsValid() bool {
	return t == EnvelopeAhadi || t == EnvelopeJengo
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Anything else is ErrInvalidDate.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validEnvelopeNumber(n string) bool {
	if n == "" || len(n) > maxEnvelopeChars {
		return false
	}
	for _, r := range n {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func (e Expense) Validate() error {
	v := NewValidation()
	v.Check("date", e.Date.Validate())
	switch {
	case strings.TrimSpace(e.Description) == "":
		v.Add("description", ErrEmptyDescription)
	case len(e.Description) > maxDescription:
		v.Add("description", ErrDescriptionTooLong)
	}
	v.Check("amount", e.Amount.Validate())
	return v.Err()
}

func (o RegularOffering) Validate() error {
	v := NewValidation()
	v.Check("date", o.Date.Validate())
	if !o.ServiceType.IsValid() {
		v.Add("service_type", ErrInvalidServiceType)
	}
	v.Check("amount", o.Amount.Validate())
	return v.Err()
}

func (o EnvelopeOffering) Validate() error {
	v := NewValidation()
	v.Check("date", o.Date.Validate())
	if !validEnvelopeNumber(o.EnvelopeNumber) {
		v.Add("envelope_number", ErrInvalidEnvelope)
	}
	v.Check("amount", o.Amount.Validate())
	if !o.Type.IsValid() {
		v.Add("type", ErrInvalidEnvelopeType)
	}
	return v.Err()
}

func (d Donor) Validate() error {
	v := NewValidation()
	if !validEnvelopeNumber(d.EnvelopeNumber) {
		v.Add("envelope_number", ErrInvalidEnvelope)
	}
	if strings.TrimSpace(d.FullName) == "" {
		v.Add("full_name", ErrEmptyName)
	}
	if strings.TrimSpace(d.FellowshipID) == "" {
		v.Add("fellowship_id", ErrMissingFellowship)
	}
	return v.Err()
}
