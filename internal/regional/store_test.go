package regional

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/uptrace/bun"
)

func TestNewBunStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewBunStore(nil, domain.CountryPE); err == nil {
		t.Fatal("expected error for nil database")
	}

	if _, err := NewBunStore(&bun.DB{}, domain.CountryISO("AR")); !errors.Is(err, domain.ErrUnsupportedCountry) {
		t.Fatalf("error = %v, want ErrUnsupportedCountry", err)
	}
}

func TestBunStoreInsertRejectsOtherCountry(t *testing.T) {
	t.Parallel()

	store, err := NewBunStore(&bun.DB{}, domain.CountryPE)
	if err != nil {
		t.Fatalf("NewBunStore() error = %v", err)
	}

	err = store.Insert(context.Background(), domain.AppointmentRequest{
		AppointmentID: uuid.NewString(),
		InsuredID:     "12345",
		ScheduleID:    1,
		CountryISO:    "CL",
	})
	if !errors.Is(err, domain.ErrBusinessRule) {
		t.Fatalf("Insert() error = %v, want ErrBusinessRule", err)
	}

	err = store.Insert(context.Background(), domain.AppointmentRequest{
		AppointmentID: uuid.NewString(),
		InsuredID:     "12345",
		ScheduleID:    1,
		CountryISO:    "BR",
	})
	if !errors.Is(err, domain.ErrUnsupportedCountry) {
		t.Fatalf("Insert() error = %v, want ErrUnsupportedCountry", err)
	}
}

func TestRowFromRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 5, 0, 0, 0, time.FixedZone("CLT", -3*3600))
	row := rowFromRequest(domain.AppointmentRequest{
		AppointmentID: " 7f1c2a3e-5b4d-4c6e-9f8a-0b1c2d3e4f5a ",
		InsuredID:     "54321",
		ScheduleID:    9,
		CountryISO:    "cl",
	}, domain.CountryCL, now)

	if row.AppointmentID != "7f1c2a3e-5b4d-4c6e-9f8a-0b1c2d3e4f5a" {
		t.Fatalf("AppointmentID = %q", row.AppointmentID)
	}
	if row.CountryISO != "CL" {
		t.Fatalf("CountryISO = %q, want CL", row.CountryISO)
	}
	if row.Status != domain.CountryCompletedStatus {
		t.Fatalf("Status = %q, want %q", row.Status, domain.CountryCompletedStatus)
	}
	if !row.CreatedAt.Equal(now) || row.CreatedAt.Location() != time.UTC {
		t.Fatalf("CreatedAt = %v, want %v in UTC", row.CreatedAt, now)
	}
}

func TestRegionalIntegration_InsertIsIdempotent(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("REGIONAL_TEST_DSN"))
	if dsn == "" {
		t.Skip("REGIONAL_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	store, err := NewBunStore(db, domain.CountryPE)
	if err != nil {
		t.Fatalf("NewBunStore() error = %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	req := domain.AppointmentRequest{
		AppointmentID: uuid.NewString(),
		InsuredID:     "12345",
		ScheduleID:    3,
		CountryISO:    "PE",
	}
	t.Cleanup(func() {
		_, _ = db.NewDelete().
			Model((*appointmentRow)(nil)).
			Where("appointment_id = ?", req.AppointmentID).
			Exec(context.Background())
	})

	for i := 0; i < 2; i++ {
		if err := store.Insert(ctx, req); err != nil {
			t.Fatalf("Insert() attempt %d error = %v", i+1, err)
		}
	}

	count, err := db.NewSelect().
		Model((*appointmentRow)(nil)).
		Where("appointment_id = ?", req.AppointmentID).
		Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}
