package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to next. The only edge is PENDING -> COMPLETED.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next == StatusCompleted
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// CountryISO is the two-letter code that selects the regional pipeline.
type CountryISO string

const (
	CountryPE CountryISO = "PE"
	CountryCL CountryISO = "CL"
)

// SupportedCountries lists every country with a regional pipeline.
var SupportedCountries = []CountryISO{CountryPE, CountryCL}

func (c CountryISO) String() string { return string(c) }

func (c CountryISO) IsValid() bool {
	switch c {
	case CountryPE, CountryCL:
		return true
	}
	return false
}

// ParseCountryFromString is the lenient parser used by dispatch; request validation stays case-sensitive.
func ParseCountryFromString(s string) (CountryISO, error) {
	c := CountryISO(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", &DomainError{
			Kind:    ErrUnsupportedCountry,
			Message: fmt.Sprintf("unsupported country: %s", s),
			Field:   "countryISO",
		}
	}
	return c, nil
}

// Appointment is the canonical appointment record.
type Appointment struct {
	AppointmentID string
	InsuredID     string
	ScheduleID    int64
	CountryISO    CountryISO
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPendingAppointment builds a fresh PENDING appointment from a validated request.
func NewPendingAppointment(id string, req CreateAppointmentRequest, now time.Time) *Appointment {
	now = now.UTC()
	return &Appointment{
		AppointmentID: id,
		InsuredID:     req.InsuredID,
		ScheduleID:    int64(req.ScheduleID),
		CountryISO:    CountryISO(req.CountryISO),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateAppointmentRequest is the caller-supplied shape for a new appointment.
// Fields stay raw so validation can report on exactly what was sent.
// ScheduleID keeps the JSON number as sent, fractional values included;
// adapters map a missing or non-numeric scheduleId to zero.
type CreateAppointmentRequest struct {
	InsuredID  string
	ScheduleID float64
	CountryISO string
}

// CreateAppointmentResult is returned once an appointment has been accepted.
type CreateAppointmentResult struct {
	AppointmentID string
	Message       string
}

const ProcessingMessage = "processing"
