package regional

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"github.com/uptrace/bun"
)

// Store is a country's secondary copy of the appointments it has processed.
type Store interface {
	Insert(ctx context.Context, req domain.AppointmentRequest) error
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:regional_appointments,alias:ra"`

	AppointmentID string    `bun:"appointment_id,pk,type:uuid"`
	InsuredID     string    `bun:"insured_id,notnull"`
	ScheduleID    int64     `bun:"schedule_id,notnull"`
	CountryISO    string    `bun:"country_iso,notnull"`
	Status        string    `bun:"status,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func rowFromRequest(req domain.AppointmentRequest, country domain.CountryISO, now time.Time) appointmentRow {
	return appointmentRow{
		AppointmentID: strings.TrimSpace(req.AppointmentID),
		InsuredID:     req.InsuredID,
		ScheduleID:    req.ScheduleID,
		CountryISO:    country.String(),
		Status:        domain.CountryCompletedStatus,
		CreatedAt:     now.UTC(),
	}
}

// BunStore writes one country's rows. Each country gets its own database handle.
type BunStore struct {
	db      bun.IDB
	country domain.CountryISO
	now     func() time.Time
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db bun.IDB, country domain.CountryISO) (*BunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("regional database is required")
	}
	if !country.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedCountry, country)
	}
	return &BunStore{db: db, country: country, now: time.Now}, nil
}

func (s *BunStore) Country() domain.CountryISO {
	return s.country
}

// EnsureSchema creates the regional table when it does not exist yet.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*appointmentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create regional table for %s: %w", s.country, err)
	}
	return nil
}

// Insert is idempotent on appointment_id so redelivered messages leave a single row.
func (s *BunStore) Insert(ctx context.Context, req domain.AppointmentRequest) error {
	country, err := domain.ParseCountryFromString(req.CountryISO)
	if err != nil {
		return err
	}
	if country != s.country {
		return fmt.Errorf("%w: %s payload sent to %s store", domain.ErrBusinessRule, country, s.country)
	}

	row := rowFromRequest(req, s.country, s.now())
	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (appointment_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert regional appointment %s: %w", row.AppointmentID, err)
	}
	return nil
}
