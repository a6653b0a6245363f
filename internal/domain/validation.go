package domain

import (
	"math"
	"regexp"
	"strings"
)

var insuredIDPattern = regexp.MustCompile(`^\d{5}$`)

// maxScheduleID is the largest integer a JSON number carries without rounding.
const maxScheduleID = 1<<53 - 1

// ValidateInsuredID reports whether id is exactly five decimal digits.
func ValidateInsuredID(id string) bool {
	return insuredIDPattern.MatchString(id)
}

// ValidateCountryISO reports whether code names a supported country, case-sensitively.
func ValidateCountryISO(code string) bool {
	return CountryISO(code).IsValid()
}

// ValidateAppointmentRequest runs the full structural check and reports the first violated field.
func ValidateAppointmentRequest(req CreateAppointmentRequest) error {
	switch {
	case strings.TrimSpace(req.InsuredID) == "":
		return NewValidationError("insuredId is required", "insuredId")
	case !ValidateInsuredID(req.InsuredID):
		return NewValidationError("insuredId must be exactly 5 digits", "insuredId")
	case req.ScheduleID == 0:
		return NewValidationError("scheduleId is required", "scheduleId")
	case req.ScheduleID < 0:
		return NewValidationError("scheduleId must be a positive number", "scheduleId")
	case req.ScheduleID != math.Trunc(req.ScheduleID):
		return NewValidationError("scheduleId must be an integer", "scheduleId")
	case req.ScheduleID > maxScheduleID:
		return NewValidationError("scheduleId must be a safe integer", "scheduleId")
	case strings.TrimSpace(req.CountryISO) == "":
		return NewValidationError("countryISO is required", "countryISO")
	case !ValidateCountryISO(req.CountryISO):
		return NewValidationError("countryISO must be either PE or CL", "countryISO")
	}
	return nil
}
