package domain

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrBusinessRule       = errors.New("business rule violation")
	ErrUnsupportedCountry = errors.New("unsupported country")
)

// Messages surfaced to callers.
const (
	MsgInvalidInsuredID  = "invalid insured id"
	MsgInvalidCountry    = "invalid country"
	MsgInvalidScheduleID = "invalid schedule id"
	MsgInvalidRequest    = "invalid request"
	MsgInsuredIDRequired = "insuredId required"
	MsgMissingBody       = "request body is required"
	MsgUnexpected        = "unexpected error"
)

// DomainError carries a caller-facing message and the offending field on top of an error kind.
type DomainError struct {
	Kind    error
	Message string
	Field   string
	Cause   error
}

func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *DomainError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func NewValidationError(message, field string) *DomainError {
	return &DomainError{Kind: ErrValidation, Message: message, Field: field}
}

func NewNotFoundError(message string) *DomainError {
	return &DomainError{Kind: ErrNotFound, Message: message}
}

// KindOf returns the wire tag for err, or an empty string for errors outside the taxonomy.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND_ERROR"
	case errors.Is(err, ErrBusinessRule):
		return "BUSINESS_RULE_ERROR"
	case errors.Is(err, ErrUnsupportedCountry):
		return "UNSUPPORTED_COUNTRY_ERROR"
	default:
		return ""
	}
}
