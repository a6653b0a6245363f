package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
)

type AppointmentService interface {
	Create(ctx context.Context, req domain.CreateAppointmentRequest) (*domain.CreateAppointmentResult, error)
	ListByInsured(ctx context.Context, insuredID string) ([]domain.Appointment, error)
}

type AppointmentHandler struct {
	service AppointmentService
}

func NewAppointmentHandler(service AppointmentService) (*AppointmentHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("appointment service is required")
	}
	return &AppointmentHandler{service: service}, nil
}

func RegisterAppointmentRoutes(router fiber.Router, service AppointmentService) error {
	h, err := NewAppointmentHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/appointments", h.CreateAppointment)
	v1.Get("/appointments", h.ListAppointments)

	return nil
}

// scheduleId is decoded loosely so the service, not the decoder, decides which rule it breaks.
type createAppointmentRequest struct {
	InsuredID  string `json:"insuredId"`
	ScheduleID any    `json:"scheduleId"`
	CountryISO string `json:"countryISO"`
}

type createAppointmentResponse struct {
	AppointmentID string `json:"appointmentId"`
	Message       string `json:"message"`
}

type appointmentResponse struct {
	AppointmentID string    `json:"appointmentId"`
	InsuredID     string    `json:"insuredId"`
	ScheduleID    int64     `json:"scheduleId"`
	CountryISO    string    `json:"countryISO"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (h *AppointmentHandler) CreateAppointment(c *fiber.Ctx) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return domain.NewValidationError(domain.MsgMissingBody, "")
	}

	var req createAppointmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return &domain.DomainError{
			Kind:    domain.ErrValidation,
			Message: "invalid request body",
			Cause:   err,
		}
	}

	result, err := h.service.Create(c.UserContext(), domain.CreateAppointmentRequest{
		InsuredID:  req.InsuredID,
		ScheduleID: scheduleNumber(req.ScheduleID),
		CountryISO: req.CountryISO,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(createAppointmentResponse{
		AppointmentID: result.AppointmentID,
		Message:       result.Message,
	})
}

// scheduleNumber maps anything that is not a JSON number to zero.
func scheduleNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (h *AppointmentHandler) ListAppointments(c *fiber.Ctx) error {
	appointments, err := h.service.ListByInsured(c.UserContext(), c.Query("insuredId"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toAppointmentResponses(appointments))
}

func toAppointmentResponses(appointments []domain.Appointment) []appointmentResponse {
	responses := make([]appointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		responses = append(responses, appointmentResponse{
			AppointmentID: a.AppointmentID,
			InsuredID:     a.InsuredID,
			ScheduleID:    a.ScheduleID,
			CountryISO:    a.CountryISO.String(),
			Status:        a.Status.String(),
			CreatedAt:     a.CreatedAt,
			UpdatedAt:     a.UpdatedAt,
		})
	}
	return responses
}
