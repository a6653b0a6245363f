package repository

import (
	"time"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
)

// AppointmentModel is the persistence model for the appointments table.
type AppointmentModel struct {
	AppointmentID string            `gorm:"column:appointment_id;type:uuid;primaryKey"`
	InsuredID     string            `gorm:"type:char(5);not null;index:idx_appointments_insured_id"`
	ScheduleID    int64             `gorm:"not null"`
	CountryISO    domain.CountryISO `gorm:"column:country_iso;type:varchar(2);not null"`
	Status        domain.Status     `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (AppointmentModel) TableName() string {
	return "appointments"
}

func appointmentModelFromDomain(a *domain.Appointment) *AppointmentModel {
	if a == nil {
		return nil
	}

	return &AppointmentModel{
		AppointmentID: a.AppointmentID,
		InsuredID:     a.InsuredID,
		ScheduleID:    a.ScheduleID,
		CountryISO:    a.CountryISO,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func appointmentModelToDomain(m *AppointmentModel) *domain.Appointment {
	if m == nil {
		return nil
	}

	return &domain.Appointment{
		AppointmentID: m.AppointmentID,
		InsuredID:     m.InsuredID,
		ScheduleID:    m.ScheduleID,
		CountryISO:    m.CountryISO,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
