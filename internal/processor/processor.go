package processor

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/regional"
	"go.uber.org/zap"
)

// Processor handles a request routed to one country.
type Processor interface {
	Country() domain.CountryISO
	Process(ctx context.Context, req domain.AppointmentRequest) error
}

// CompletionPublisher emits the event a country pipeline raises after its regional insert.
type CompletionPublisher interface {
	PublishCountryCompleted(ctx context.Context, completion domain.CountryCompletion) error
}

type countryProcessor struct {
	country domain.CountryISO
	store   regional.Store
	events  CompletionPublisher
	logger  *zap.Logger
}

func NewPeruProcessor(store regional.Store, events CompletionPublisher, logger *zap.Logger) (Processor, error) {
	p, err := newCountryProcessor(domain.CountryPE, store, events, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func NewChileProcessor(store regional.Store, events CompletionPublisher, logger *zap.Logger) (Processor, error) {
	p, err := newCountryProcessor(domain.CountryCL, store, events, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newCountryProcessor(
	country domain.CountryISO,
	store regional.Store,
	events CompletionPublisher,
	logger *zap.Logger,
) (*countryProcessor, error) {
	if store == nil {
		return nil, fmt.Errorf("regional store for %s is required", country)
	}
	if events == nil {
		return nil, fmt.Errorf("completion publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &countryProcessor{
		country: country,
		store:   store,
		events:  events,
		logger:  logger.With(zap.String("countryISO", country.String())),
	}, nil
}

func (p *countryProcessor) Country() domain.CountryISO {
	return p.country
}

// Process writes the regional copy first and only then reports completion.
func (p *countryProcessor) Process(ctx context.Context, req domain.AppointmentRequest) error {
	req.CountryISO = p.country.String()

	if err := p.store.Insert(ctx, req); err != nil {
		return fmt.Errorf("regional insert failed: %w", err)
	}

	completion := domain.CountryCompletion{
		AppointmentID: req.AppointmentID,
		InsuredID:     req.InsuredID,
		ScheduleID:    req.ScheduleID,
		CountryISO:    p.country.String(),
		Status:        domain.CountryCompletedStatus,
	}
	if err := p.events.PublishCountryCompleted(ctx, completion); err != nil {
		return fmt.Errorf("country completion publish failed: %w", err)
	}

	p.logger.Info("country appointment processed",
		zap.String("appointmentId", req.AppointmentID),
		zap.Int64("scheduleId", req.ScheduleID),
	)
	return nil
}
