package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/kursadbilgin/appointment-engine/internal/observability"
	"github.com/kursadbilgin/appointment-engine/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestAppointmentIntegration_CreateAppointment(t *testing.T) {
	t.Parallel()

	var got domain.CreateAppointmentRequest
	svc := &stubAppointmentService{
		createFn: func(ctx context.Context, req domain.CreateAppointmentRequest) (*domain.CreateAppointmentResult, error) {
			got = req
			return &domain.CreateAppointmentResult{AppointmentID: "a-created", Message: domain.ProcessingMessage}, nil
		},
	}

	app := newAppointmentTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/appointments", `{"insuredId":"12345","scheduleId":100,"countryISO":"PE"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["appointmentId"] != "a-created" {
		t.Fatalf("appointmentId = %v, want a-created", created["appointmentId"])
	}
	if created["message"] != "processing" {
		t.Fatalf("message = %v, want processing", created["message"])
	}

	want := domain.CreateAppointmentRequest{InsuredID: "12345", ScheduleID: 100, CountryISO: "PE"}
	if got != want {
		t.Fatalf("service request = %+v, want %+v", got, want)
	}
}

func TestAppointmentIntegration_CreateAppointmentErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		body          string
		serviceErr    error
		wantStatus    int
		wantMessage   string
		wantErrorType string
	}{
		{
			name:          "missing body",
			body:          "",
			wantStatus:    fiber.StatusBadRequest,
			wantMessage:   domain.MsgMissingBody,
			wantErrorType: "VALIDATION_ERROR",
		},
		{
			name:          "malformed json",
			body:          `{"insuredId":`,
			wantStatus:    fiber.StatusBadRequest,
			wantMessage:   "invalid request body",
			wantErrorType: "VALIDATION_ERROR",
		},
		{
			name:          "validation from service",
			body:          `{"insuredId":"123","scheduleId":1,"countryISO":"PE"}`,
			serviceErr:    domain.NewValidationError(domain.MsgInvalidInsuredID, "insuredId"),
			wantStatus:    fiber.StatusBadRequest,
			wantMessage:   domain.MsgInvalidInsuredID,
			wantErrorType: "VALIDATION_ERROR",
		},
		{
			name:          "infrastructure failure",
			body:          `{"insuredId":"12345","scheduleId":1,"countryISO":"PE"}`,
			serviceErr:    errors.New("failed to publish AppointmentRequest: channel closed"),
			wantStatus:    fiber.StatusInternalServerError,
			wantMessage:   domain.MsgUnexpected,
			wantErrorType: "INTERNAL_ERROR",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			svc := &stubAppointmentService{
				createFn: func(ctx context.Context, req domain.CreateAppointmentRequest) (*domain.CreateAppointmentResult, error) {
					calls++
					return nil, tc.serviceErr
				},
			}
			app := newAppointmentTestApp(t, svc)

			resp, body := performRequest(t, app, http.MethodPost, "/v1/appointments", tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", resp.StatusCode, tc.wantStatus, string(body))
			}

			var payload transport.ErrorResponse
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("json unmarshal error = %v", err)
			}
			if payload.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", payload.Message, tc.wantMessage)
			}
			if payload.ErrorType != tc.wantErrorType {
				t.Fatalf("errorType = %q, want %q", payload.ErrorType, tc.wantErrorType)
			}
			if tc.serviceErr == nil && calls != 0 {
				t.Fatalf("service calls = %d, want 0", calls)
			}
		})
	}
}

func TestAppointmentIntegration_ListAppointments(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubAppointmentService{
		listFn: func(ctx context.Context, insuredID string) ([]domain.Appointment, error) {
			switch insuredID {
			case "":
				return nil, domain.NewValidationError(domain.MsgInsuredIDRequired, "insuredId")
			case "12345":
				return []domain.Appointment{{
					AppointmentID: "a1",
					InsuredID:     "12345",
					ScheduleID:    100,
					CountryISO:    domain.CountryCL,
					Status:        domain.StatusCompleted,
					CreatedAt:     created,
					UpdatedAt:     created,
				}}, nil
			default:
				return []domain.Appointment{}, nil
			}
		},
	}
	app := newAppointmentTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/appointments?insuredId=12345", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	var listed []map[string]any
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("len = %d, want 1", len(listed))
	}
	if listed[0]["status"] != "COMPLETED" || listed[0]["countryISO"] != "CL" {
		t.Fatalf("item = %v", listed[0])
	}
	if listed[0]["createdAt"] != "2024-05-01T10:00:00Z" {
		t.Fatalf("createdAt = %v, want 2024-05-01T10:00:00Z", listed[0]["createdAt"])
	}

	resp, body = performRequest(t, app, http.MethodGet, "/v1/appointments?insuredId=54321", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("body = %s, want []", string(body))
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/appointments", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing insuredId", resp.StatusCode)
	}
}

func TestAppointmentIntegration_CorrelationIDReachesService(t *testing.T) {
	t.Parallel()

	var seen string
	svc := &stubAppointmentService{
		listFn: func(ctx context.Context, insuredID string) ([]domain.Appointment, error) {
			seen, _ = observability.CorrelationIDFromContext(ctx)
			return []domain.Appointment{}, nil
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	app.Use(observability.CorrelationMiddleware())
	if err := RegisterAppointmentRoutes(app, svc); err != nil {
		t.Fatalf("RegisterAppointmentRoutes() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/appointments?insuredId=12345", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	_ = resp.Body.Close()

	if seen != "req-42" {
		t.Fatalf("correlation id = %q, want req-42", seen)
	}
}

func TestDocsRoute(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	if err := RegisterDocsRoutes(app); err != nil {
		t.Fatalf("RegisterDocsRoutes() error = %v", err)
	}

	resp, body := performRequest(t, app, http.MethodGet, "/docs/openapi.json", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var document map[string]any
	if err := json.Unmarshal(body, &document); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if document["openapi"] != "3.0.3" {
		t.Fatalf("openapi = %v, want 3.0.3", document["openapi"])
	}
	paths, ok := document["paths"].(map[string]any)
	if !ok {
		t.Fatalf("paths has type %T", document["paths"])
	}
	if _, ok := paths["/v1/appointments"]; !ok {
		t.Fatal("expected /v1/appointments path")
	}
}

func TestOpenAPIJSONStringifiesKeys(t *testing.T) {
	t.Parallel()

	encoded, err := openAPIJSON([]byte("responses:\n  201: created\n  true: yes\n"))
	if err != nil {
		t.Fatalf("openAPIJSON() error = %v", err)
	}

	var document map[string]map[string]any
	if err := json.Unmarshal(encoded, &document); err != nil {
		t.Fatalf("json unmarshal error = %v (doc=%s)", err, encoded)
	}
	if document["responses"]["201"] != "created" {
		t.Fatalf("responses = %v", document["responses"])
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app)

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, PostgresCheck("postgres", sqlDB), RedisCheck(rdb))

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when a dependency is down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		regional := sql.OpenDB(stubConnector{pingErr: errors.New("regional down")})
		t.Cleanup(func() { _ = regional.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app,
			PostgresCheck("postgres", sqlDB),
			PostgresCheck("regional_pe", regional),
			RedisCheck(rdb),
		)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}

		var payload struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("json unmarshal error = %v", err)
		}
		want := map[string]string{"postgres": "ok", "regional_pe": "down", "redis": "down"}
		for name, status := range want {
			if payload.Checks[name] != status {
				t.Fatalf("checks[%s] = %q, want %q (body=%s)", name, payload.Checks[name], status, string(body))
			}
		}
	})
}

type stubAppointmentService struct {
	createFn func(ctx context.Context, req domain.CreateAppointmentRequest) (*domain.CreateAppointmentResult, error)
	listFn   func(ctx context.Context, insuredID string) ([]domain.Appointment, error)
}

func (s *stubAppointmentService) Create(ctx context.Context, req domain.CreateAppointmentRequest) (*domain.CreateAppointmentResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAppointmentService) ListByInsured(ctx context.Context, insuredID string) ([]domain.Appointment, error) {
	if s.listFn != nil {
		return s.listFn(ctx, insuredID)
	}
	return nil, errors.New("not implemented")
}

func newAppointmentTestApp(t *testing.T, svc AppointmentService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterAppointmentRoutes(app, svc); err != nil {
		t.Fatalf("RegisterAppointmentRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") {
			if h.pingErr != nil {
				cmd.SetErr(h.pingErr)
				return h.pingErr
			}
			cmd.SetErr(nil)
			return nil
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
