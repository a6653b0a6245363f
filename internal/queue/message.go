package queue

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Unwrapping stops after this many layers.
const maxEnvelopeDepth = 3

// Envelope is the outer transport wrapper for request messages. Message holds the inner
// payload as a JSON-encoded string.
type Envelope struct {
	Type              string            `json:"Type"`
	MessageID         string            `json:"MessageId"`
	Subject           string            `json:"Subject,omitempty"`
	Message           string            `json:"Message"`
	Timestamp         time.Time         `json:"Timestamp"`
	MessageAttributes map[string]string `json:"MessageAttributes,omitempty"`
}

// Event is the bus wrapper for domain events; Detail holds the inner payload as an object.
type Event struct {
	Version    string          `json:"version"`
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Time       time.Time       `json:"time"`
	Detail     json.RawMessage `json:"detail"`
}

func NewEnvelope(id string, subject string, payload any, attributes map[string]string, now time.Time) (Envelope, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal envelope payload: %w", err)
	}

	return Envelope{
		Type:              "Notification",
		MessageID:         id,
		Subject:           subject,
		Message:           string(inner),
		Timestamp:         now.UTC(),
		MessageAttributes: attributes,
	}, nil
}

func NewEvent(id string, source string, detailType string, detail any, now time.Time) (Event, error) {
	inner, err := json.Marshal(detail)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event detail: %w", err)
	}

	return Event{
		Version:    "0",
		ID:         id,
		Source:     source,
		DetailType: detailType,
		Time:       now.UTC(),
		Detail:     inner,
	}, nil
}

type wrapper struct {
	Message *string         `json:"Message"`
	Detail  json.RawMessage `json:"detail"`
}

// UnwrapPayload peels envelope and event layers off body and returns the innermost payload.
// A body without any wrapper is malformed.
func UnwrapPayload(body []byte) ([]byte, error) {
	payload := body
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		var w wrapper
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON at layer %d: %v", ErrMalformed, depth, err)
		}

		switch {
		case w.Message != nil:
			payload = []byte(*w.Message)
		case len(w.Detail) > 0 && string(w.Detail) != "null":
			payload = w.Detail
		case depth == 0:
			return nil, fmt.Errorf("%w: missing envelope", ErrMalformed)
		default:
			return payload, nil
		}
	}

	return payload, nil
}

// DecodePayload unwraps body and decodes the innermost payload into v.
func DecodePayload(body []byte, v any) error {
	payload, err := UnwrapPayload(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", ErrMalformed, err)
	}
	return nil
}
