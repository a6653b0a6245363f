package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/repository"
	"go.uber.org/zap"
)

// ConfirmationNotifier announces appointments that reached COMPLETED.
type ConfirmationNotifier interface {
	PublishConfirmation(ctx context.Context, confirmation domain.Confirmation) error
}

type ConfirmService struct {
	appointments repository.AppointmentRepository
	notifier     ConfirmationNotifier
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

func NewConfirmService(
	appointments repository.AppointmentRepository,
	notifier ConfirmationNotifier,
	logger *zap.Logger,
) (*ConfirmService, error) {
	if appointments == nil {
		return nil, fmt.Errorf("appointment repository is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("confirmation notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConfirmService{
		appointments: appointments,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (s *ConfirmService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Confirm moves a PENDING appointment to COMPLETED and publishes one confirmation.
// Confirming an appointment that is already COMPLETED does nothing.
func (s *ConfirmService) Confirm(ctx context.Context, appointmentID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	id := strings.TrimSpace(appointmentID)
	if id == "" {
		return domain.NewValidationError("appointmentId is required", "appointmentId")
	}

	logger := observability.WithContextLogger(s.logger, ctx).With(zap.String("appointmentId", id))

	appointment, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewNotFoundError(fmt.Sprintf("appointment %s not found", id))
		}
		return err
	}

	if appointment.Status == domain.StatusCompleted {
		logger.Info("appointment already completed, skipping confirmation")
		return nil
	}
	if !appointment.Status.CanTransitionTo(domain.StatusCompleted) {
		return &domain.DomainError{
			Kind:    domain.ErrBusinessRule,
			Message: fmt.Sprintf("cannot complete appointment in status %s", appointment.Status),
		}
	}

	if err := s.appointments.UpdateStatus(ctx, id, domain.StatusCompleted); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewNotFoundError(fmt.Sprintf("appointment %s not found", id))
		}
		return err
	}

	confirmation := domain.Confirmation{
		AppointmentID: appointment.AppointmentID,
		InsuredID:     appointment.InsuredID,
		CountryISO:    appointment.CountryISO.String(),
		ProcessedAt:   s.now().UTC(),
	}
	if err := s.notifier.PublishConfirmation(ctx, confirmation); err != nil {
		logger.Error("failed to publish confirmation", zap.Error(err))
		return err
	}

	s.metrics.IncAppointmentConfirmed()
	logger.Info("appointment confirmed")
	return nil
}
