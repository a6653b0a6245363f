package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/queue"
)

const (
	SourceService = "appointment.service"
	SourceCountry = "appointment.country"

	DetailTypeRequested = "AppointmentRequested"
	DetailTypeConfirmed = "AppointmentConfirmed"

	countryAttribute = "countryISO"
)

// Router turns appointment payloads into broker messages. It holds no appointment state.
type Router struct {
	publisher queue.Publisher
	now       func() time.Time
	newID     func() string
}

func NewRouter(publisher queue.Publisher) (*Router, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	return &Router{
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// PublishToCountry sends the request to the queue of req's country.
func (r *Router) PublishToCountry(ctx context.Context, req domain.AppointmentRequest) error {
	country, err := domain.ParseCountryFromString(req.CountryISO)
	if err != nil {
		return err
	}

	messageID := r.newID()
	envelope, err := queue.NewEnvelope(
		messageID,
		fmt.Sprintf("Appointment Request - %s", country),
		req,
		map[string]string{countryAttribute: country.String()},
		r.now(),
	)
	if err != nil {
		return err
	}

	return r.publish(ctx, queue.RequestsExchange, queue.CountryRoutingKey(country), messageID, "AppointmentRequest", envelope, map[string]any{
		countryAttribute: country.String(),
	})
}

// PublishAppointmentRequested announces an accepted request on the events bus.
func (r *Router) PublishAppointmentRequested(ctx context.Context, req domain.AppointmentRequest) error {
	return r.publishEvent(ctx, queue.RoutingServiceRequested, SourceService, DetailTypeRequested, req)
}

// PublishConfirmation announces that the canonical record reached COMPLETED.
func (r *Router) PublishConfirmation(ctx context.Context, confirmation domain.Confirmation) error {
	return r.publishEvent(ctx, queue.RoutingServiceConfirmed, SourceService, DetailTypeConfirmed, confirmation)
}

// PublishCountryCompleted reports that a country pipeline stored its regional copy.
// The confirmations queue listens for this event.
func (r *Router) PublishCountryCompleted(ctx context.Context, completion domain.CountryCompletion) error {
	return r.publishEvent(ctx, queue.RoutingCountryConfirmed, SourceCountry, DetailTypeConfirmed, completion)
}

func (r *Router) publishEvent(ctx context.Context, routingKey string, source string, detailType string, detail any) error {
	eventID := r.newID()
	event, err := queue.NewEvent(eventID, source, detailType, detail, r.now())
	if err != nil {
		return err
	}
	return r.publish(ctx, queue.EventsExchange, routingKey, eventID, detailType, event, nil)
}

func (r *Router) publish(
	ctx context.Context,
	exchange string,
	routingKey string,
	messageID string,
	messageType string,
	body any,
	headers map[string]any,
) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", messageType, err)
	}

	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	msg := queue.Message{
		ID:            messageID,
		CorrelationID: correlationID,
		Type:          messageType,
		Headers:       headers,
		Body:          encoded,
	}
	if err := r.publisher.Publish(ctx, exchange, routingKey, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", messageType, err)
	}
	return nil
}
