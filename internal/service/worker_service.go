package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/queue"
	"github.com/kursadbilgin/appointment-engine/internal/ratelimit"
	"github.com/kursadbilgin/appointment-engine/internal/webhook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// Dispatcher hands a country request to the processor registered for its country.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.AppointmentRequest) error
}

// Confirmer runs the confirm workflow for one appointment.
type Confirmer interface {
	Confirm(ctx context.Context, appointmentID string) error
}

// EventSink receives service events from the events bus.
type EventSink interface {
	Forward(ctx context.Context, event webhook.Event) error
}

type WorkerService struct {
	consumer    queue.Consumer
	dispatcher  Dispatcher
	confirmer   Confirmer
	rateLimiter ratelimit.RateLimiter
	sink        EventSink
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewWorkerService(
	consumer queue.Consumer,
	dispatcher Dispatcher,
	confirmer Confirmer,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if confirmer == nil {
		return nil, fmt.Errorf("confirmer is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		dispatcher:  dispatcher,
		confirmer:   confirmer,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetEventSink enables forwarding of the service events queue.
func (s *WorkerService) SetEventSink(sink EventSink) {
	if s == nil {
		return
	}
	s.sink = sink
}

// Start consumes the country, confirmation and (with a sink) service event queues until ctx is cancelled.
// Every queue gets at least one consumer; extra slots are spread round-robin.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	handlers := s.queueHandlers()
	queueNames := make([]string, 0, len(handlers))
	for _, name := range queue.WorkQueueNames() {
		if _, ok := handlers[name]; ok {
			queueNames = append(queueNames, name)
		}
	}
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	workers := max(s.concurrency, len(queueNames))

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		queueName := queueNames[i%len(queueNames)]
		handler := handlers[queueName]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, handler)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) queueHandlers() map[string]queue.MessageHandler {
	handlers := make(map[string]queue.MessageHandler)
	for _, name := range queue.CountryQueueNames() {
		handlers[name] = s.countryHandler(name)
	}
	handlers[queue.ConfirmationsQueue] = s.handleConfirmation
	if s.sink != nil {
		handlers[queue.ServiceEventsQueue] = s.handleServiceEvent
	}
	return handlers
}

func (s *WorkerService) countryHandler(queueName string) queue.MessageHandler {
	return func(ctx context.Context, d queue.Delivery) error {
		s.metrics.IncWorkerInFlight(queueName)
		defer s.metrics.DecWorkerInFlight(queueName)
		return s.processCountryRequest(ctx, d)
	}
}

func (s *WorkerService) processCountryRequest(ctx context.Context, d queue.Delivery) error {
	var req domain.AppointmentRequest
	if err := queue.DecodePayload(d.Body, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", queue.ErrMalformed, err)
	}

	country, err := domain.ParseCountryFromString(req.CountryISO)
	if err != nil {
		return fmt.Errorf("%w: %w", queue.ErrMalformed, err)
	}
	countryLabel := strings.ToLower(country.String())

	if err := s.rateLimiter.Wait(ctx, countryLabel); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	start := s.now()
	err = s.dispatcher.Dispatch(ctx, req)
	s.metrics.ObserveCountryProcessDuration(countryLabel, s.now().Sub(start))
	if err != nil {
		s.metrics.IncCountryProcessed(countryLabel, "error")
		if errors.Is(err, domain.ErrUnsupportedCountry) || errors.Is(err, domain.ErrValidation) {
			return fmt.Errorf("%w: %w", queue.ErrMalformed, err)
		}
		return err
	}

	s.metrics.IncCountryProcessed(countryLabel, "success")
	return nil
}

func (s *WorkerService) handleConfirmation(ctx context.Context, d queue.Delivery) error {
	s.metrics.IncWorkerInFlight(queue.ConfirmationsQueue)
	defer s.metrics.DecWorkerInFlight(queue.ConfirmationsQueue)

	var completion domain.CountryCompletion
	if err := queue.DecodePayload(d.Body, &completion); err != nil {
		return err
	}
	if strings.TrimSpace(completion.AppointmentID) == "" {
		return fmt.Errorf("%w: appointmentId is required", queue.ErrMalformed)
	}

	err := s.confirmer.Confirm(ctx, completion.AppointmentID)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) {
		return fmt.Errorf("%w: %w", queue.ErrMalformed, err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		// The canonical row may not be visible yet; one requeue, then the broker dead-letters it.
		observability.WithContextLogger(s.logger, ctx).Warn("confirmation for unknown appointment",
			zap.String("appointmentId", completion.AppointmentID),
			zap.Bool("redelivered", d.Redelivered),
		)
	}
	return err
}

func (s *WorkerService) handleServiceEvent(ctx context.Context, d queue.Delivery) error {
	s.metrics.IncWorkerInFlight(queue.ServiceEventsQueue)
	defer s.metrics.DecWorkerInFlight(queue.ServiceEventsQueue)

	err := s.sink.Forward(ctx, webhook.Event{
		ID:            d.MessageID,
		CorrelationID: d.CorrelationID,
		Body:          d.Body,
	})
	if err == nil {
		s.metrics.IncEventForwarded("success")
		return nil
	}

	if webhook.IsTransient(err) {
		s.metrics.IncEventForwarded("retry")
		return err
	}

	s.metrics.IncEventForwarded("dropped")
	observability.WithContextLogger(s.logger, ctx).Warn("dropping service event after permanent webhook failure",
		zap.String("messageId", d.MessageID),
		zap.String("routingKey", d.RoutingKey),
		zap.Error(err),
	)
	return nil
}
