package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CountryCompletedStatus tags the event a country processor emits after its regional insert.
const CountryCompletedStatus = "completed"

// AppointmentRequest is the payload routed to a country pipeline.
type AppointmentRequest struct {
	AppointmentID string `json:"appointmentId"`
	InsuredID     string `json:"insuredId"`
	ScheduleID    int64  `json:"scheduleId"`
	CountryISO    string `json:"countryISO"`
}

func AppointmentRequestFrom(a *Appointment) AppointmentRequest {
	return AppointmentRequest{
		AppointmentID: a.AppointmentID,
		InsuredID:     a.InsuredID,
		ScheduleID:    a.ScheduleID,
		CountryISO:    a.CountryISO.String(),
	}
}

// Validate checks a request message pulled off a country queue. The country itself is
// resolved later by dispatch so unsupported codes surface as their own error kind.
func (r AppointmentRequest) Validate() error {
	if _, err := uuid.Parse(strings.TrimSpace(r.AppointmentID)); err != nil {
		return NewValidationError(fmt.Sprintf("appointmentId must be a uuid: %q", r.AppointmentID), "appointmentId")
	}
	if !ValidateInsuredID(r.InsuredID) {
		return NewValidationError(MsgInvalidInsuredID, "insuredId")
	}
	if r.ScheduleID <= 0 {
		return NewValidationError(MsgInvalidScheduleID, "scheduleId")
	}
	if strings.TrimSpace(r.CountryISO) == "" {
		return NewValidationError("countryISO is required", "countryISO")
	}
	return nil
}

// CountryCompletion is what a country processor reports once its regional copy is written.
type CountryCompletion struct {
	AppointmentID string `json:"appointmentId"`
	InsuredID     string `json:"insuredId"`
	ScheduleID    int64  `json:"scheduleId"`
	CountryISO    string `json:"countryISO"`
	Status        string `json:"status"`
}

// Confirmation is published once the canonical record reaches COMPLETED.
type Confirmation struct {
	AppointmentID string    `json:"appointmentId"`
	InsuredID     string    `json:"insuredId"`
	CountryISO    string    `json:"countryISO"`
	ProcessedAt   time.Time `json:"processedAt"`
}
