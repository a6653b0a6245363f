package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/repository"
	"go.uber.org/zap"
)

// RequestNotifier routes accepted appointment requests.
type RequestNotifier interface {
	PublishToCountry(ctx context.Context, req domain.AppointmentRequest) error
	PublishAppointmentRequested(ctx context.Context, req domain.AppointmentRequest) error
}

type AppointmentService struct {
	appointments     repository.AppointmentRepository
	notifier         RequestNotifier
	logger           *zap.Logger
	metrics          *observability.Metrics
	announceRequests bool
	now              func() time.Time
	newID            func() string
}

func NewAppointmentService(
	appointments repository.AppointmentRepository,
	notifier RequestNotifier,
	logger *zap.Logger,
) (*AppointmentService, error) {
	if appointments == nil {
		return nil, fmt.Errorf("appointment repository is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("request notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AppointmentService{
		appointments: appointments,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

func (s *AppointmentService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetAnnounceRequests makes Create also publish an AppointmentRequested event.
func (s *AppointmentService) SetAnnounceRequests(enabled bool) {
	if s == nil {
		return
	}
	s.announceRequests = enabled
}

// Create validates req, stores a PENDING appointment and routes it to its country.
// A failed publish is returned as is; the stored record is not rolled back.
func (s *AppointmentService) Create(ctx context.Context, req domain.CreateAppointmentRequest) (*domain.CreateAppointmentResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	appointment := domain.NewPendingAppointment(s.newID(), req, s.now())
	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("appointmentId", appointment.AppointmentID),
		zap.String("countryISO", appointment.CountryISO.String()),
	)

	if err := s.appointments.Save(ctx, appointment); err != nil {
		logger.Error("failed to save appointment", zap.Error(err))
		return nil, err
	}

	request := domain.AppointmentRequestFrom(appointment)
	if err := s.notifier.PublishToCountry(ctx, request); err != nil {
		logger.Error("failed to route appointment to country", zap.Error(err))
		return nil, err
	}

	if s.announceRequests {
		if err := s.notifier.PublishAppointmentRequested(ctx, request); err != nil {
			logger.Warn("failed to announce appointment request", zap.Error(err))
		}
	}

	s.metrics.IncAppointmentCreated(appointment.CountryISO.String())
	logger.Info("appointment accepted")

	return &domain.CreateAppointmentResult{
		AppointmentID: appointment.AppointmentID,
		Message:       domain.ProcessingMessage,
	}, nil
}

// ListByInsured returns every appointment of insuredID, newest first. The result is never nil.
func (s *AppointmentService) ListByInsured(ctx context.Context, insuredID string) ([]domain.Appointment, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(insuredID) == "" {
		return nil, domain.NewValidationError(domain.MsgInsuredIDRequired, "insuredId")
	}
	if !domain.ValidateInsuredID(insuredID) {
		return nil, domain.NewValidationError(domain.MsgInvalidInsuredID, "insuredId")
	}

	appointments, err := s.appointments.FindByInsuredID(ctx, insuredID)
	if err != nil {
		return nil, err
	}
	if appointments == nil {
		appointments = []domain.Appointment{}
	}
	return appointments, nil
}

// validateCreateRequest checks fields in a fixed order so callers always see the same first failure.
func validateCreateRequest(req domain.CreateAppointmentRequest) error {
	if !domain.ValidateInsuredID(req.InsuredID) {
		return domain.NewValidationError(domain.MsgInvalidInsuredID, "insuredId")
	}
	if !domain.ValidateCountryISO(req.CountryISO) {
		return domain.NewValidationError(domain.MsgInvalidCountry, "countryISO")
	}
	if !(req.ScheduleID > 0) {
		return domain.NewValidationError(domain.MsgInvalidScheduleID, "scheduleId")
	}

	if err := domain.ValidateAppointmentRequest(req); err != nil {
		field := ""
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			field = domainErr.Field
		}
		return &domain.DomainError{
			Kind:    domain.ErrValidation,
			Message: domain.MsgInvalidRequest,
			Field:   field,
			Cause:   err,
		}
	}
	return nil
}
