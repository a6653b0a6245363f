package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 10 * time.Second

	HeaderEventID       = "X-Event-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Event is a service event pulled off the events bus. Body is forwarded untouched.
type Event struct {
	ID            string
	CorrelationID string
	Body          []byte
}

// Sink forwards service events to an HTTP endpoint.
type Sink struct {
	client   *resty.Client
	endpoint string
}

func NewSink(endpoint string) (*Sink, error) {
	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetRetryCount(0)

	return NewSinkWithClient(endpoint, client)
}

func NewSinkWithClient(endpoint string, client *resty.Client) (*Sink, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTimeout)
	}
	// Redelivery is left to the broker.
	client.SetRetryCount(0)

	return &Sink{client: client, endpoint: trimmed}, nil
}

func (s *Sink) Forward(ctx context.Context, event Event) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("webhook sink is not initialized")
	}
	if len(event.Body) == 0 {
		return &DeliveryError{Message: "event body is empty"}
	}

	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event.Body)
	if id := strings.TrimSpace(event.ID); id != "" {
		req.SetHeader(HeaderEventID, id)
	}
	if id := strings.TrimSpace(event.CorrelationID); id != "" {
		req.SetHeader(HeaderCorrelationID, id)
	}

	response, err := req.Post(s.endpoint)
	if err != nil {
		return &DeliveryError{
			Message:   "webhook request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &DeliveryError{Message: "webhook returned empty response", Transient: true}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &DeliveryError{
		StatusCode: statusCode,
		Message:    errorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func errorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("webhook returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
