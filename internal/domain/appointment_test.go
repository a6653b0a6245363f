package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "valid uppercase", input: "PENDING", want: StatusPending},
		{name: "valid lowercase with spaces", input: " completed ", want: StatusCompleted},
		{name: "invalid", input: "cancelled", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{from: StatusPending, to: StatusCompleted, want: true},
		{from: StatusCompleted, to: StatusPending, want: false},
		{from: StatusCompleted, to: StatusCompleted, want: false},
		{from: StatusPending, to: StatusPending, want: false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseCountryFromString(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"pe", "PE", " Pe "} {
		got, err := ParseCountryFromString(input)
		if err != nil {
			t.Fatalf("ParseCountryFromString(%q) unexpected error = %v", input, err)
		}
		if got != CountryPE {
			t.Fatalf("ParseCountryFromString(%q) = %s, want PE", input, got)
		}
	}

	_, err := ParseCountryFromString("xx")
	if !errors.Is(err, ErrUnsupportedCountry) {
		t.Fatalf("ParseCountryFromString(xx) error = %v, want ErrUnsupportedCountry", err)
	}
	if KindOf(err) != "UNSUPPORTED_COUNTRY_ERROR" {
		t.Fatalf("KindOf() = %q, want UNSUPPORTED_COUNTRY_ERROR", KindOf(err))
	}
}

func TestNewPendingAppointment(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("PET", -5*3600))
	a := NewPendingAppointment("id-1", CreateAppointmentRequest{
		InsuredID:  "12345",
		ScheduleID: 7,
		CountryISO: "CL",
	}, now)

	if a.Status != StatusPending {
		t.Fatalf("Status = %s, want PENDING", a.Status)
	}
	if a.CountryISO != CountryCL {
		t.Fatalf("CountryISO = %s, want CL", a.CountryISO)
	}
	if !a.CreatedAt.Equal(now) || !a.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v/%v, want %v", a.CreatedAt, a.UpdatedAt, now)
	}
	if a.CreatedAt.Location() != time.UTC {
		t.Fatalf("CreatedAt location = %v, want UTC", a.CreatedAt.Location())
	}
}
