package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"go.uber.org/zap"
)

const (
	errorTypeHTTP     = "HTTP_ERROR"
	errorTypeInternal = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
	Field     string `json:"field,omitempty"`
}

// ErrorHandler renders domain errors with their mapped status. Anything it does not recognize
// becomes a 500 without internal detail.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code, body := resolveError(err)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		log := observability.WithContextLogger(logger, c.UserContext())
		if code >= fiber.StatusInternalServerError {
			log.Error("request error", fields...)
		} else {
			log.Warn("request rejected", fields...)
		}

		return c.Status(code).JSON(body)
	}
}

func resolveError(err error) (int, ErrorResponse) {
	if kind := domain.KindOf(err); kind != "" {
		body := ErrorResponse{ErrorType: kind, Message: err.Error()}
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			if domainErr.Message != "" {
				body.Message = domainErr.Message
			}
			body.Field = domainErr.Field
		}
		return statusForKind(err), body
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code >= fiber.StatusInternalServerError {
			return fiberErr.Code, ErrorResponse{Message: domain.MsgUnexpected, ErrorType: errorTypeInternal}
		}
		return fiberErr.Code, ErrorResponse{Message: fiberErr.Message, ErrorType: errorTypeHTTP}
	}

	return fiber.StatusInternalServerError, ErrorResponse{Message: domain.MsgUnexpected, ErrorType: errorTypeInternal}
}

func statusForKind(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedCountry):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrBusinessRule):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
