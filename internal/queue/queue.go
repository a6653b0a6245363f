package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
)

// ErrMalformed marks a delivery that can never be processed; consumers dead-letter it without requeue.
var ErrMalformed = errors.New("malformed message")

const (
	RequestsExchange = "appointment.requests"
	EventsExchange   = "appointment.events"
	dlxExchangeName  = "appointment.dlx"

	ConfirmationsQueue = "appointment.confirmations"
	ServiceEventsQueue = "appointment.service-events"

	RoutingCountryConfirmed = "appointment.country.confirmed"
	RoutingServiceRequested = "appointment.service.requested"
	RoutingServiceConfirmed = "appointment.service.confirmed"
	routingServiceAll       = "appointment.service.#"
)

// Message is an outbound broker message with an already encoded body.
type Message struct {
	ID            string
	CorrelationID string
	Type          string
	Headers       map[string]any
	Body          []byte
}

// Delivery is an inbound broker message handed to a MessageHandler.
type Delivery struct {
	MessageID     string
	CorrelationID string
	RoutingKey    string
	Redelivered   bool
	Body          []byte
}

// Publisher publishes messages to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange string, routingKey string, msg Message) error
	Close() error
}

// MessageHandler handles a consumed delivery. Returning an error leaves the delivery unacked.
type MessageHandler func(ctx context.Context, d Delivery) error

// Consumer consumes deliveries from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// CountryRoutingKey returns the requests-exchange routing key for a country, e.g. pe.
func CountryRoutingKey(country domain.CountryISO) string {
	return strings.ToLower(country.String())
}

// CountryQueueName returns the request queue of a country, e.g. appointment.pe.
func CountryQueueName(country domain.CountryISO) string {
	return fmt.Sprintf("appointment.%s", CountryRoutingKey(country))
}

// DLQName returns the dead-letter queue for a work queue, e.g. dlq.appointment.pe.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

// CountryQueueNames returns the request queue of every supported country.
func CountryQueueNames() []string {
	queues := make([]string, 0, len(domain.SupportedCountries))
	for _, country := range domain.SupportedCountries {
		queues = append(queues, CountryQueueName(country))
	}
	return queues
}

// WorkQueueNames returns every queue a worker may consume from.
func WorkQueueNames() []string {
	return append(CountryQueueNames(), ConfirmationsQueue, ServiceEventsQueue)
}

// DLQNames returns the dead-letter queue of every work queue.
func DLQNames() []string {
	work := WorkQueueNames()
	queues := make([]string, 0, len(work))
	for _, name := range work {
		queues = append(queues, DLQName(name))
	}
	return queues
}
