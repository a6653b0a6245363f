package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
	"gorm.io/gorm"
)

// AppointmentRepository owns the canonical appointment records.
type AppointmentRepository interface {
	Save(ctx context.Context, a *domain.Appointment) error
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	FindByID(ctx context.Context, id string) (*domain.Appointment, error)
	FindByInsuredID(ctx context.Context, insuredID string) ([]domain.Appointment, error)
}

type GormAppointmentRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormAppointmentRepo(db *gorm.DB) *GormAppointmentRepo {
	return &GormAppointmentRepo{db: db, now: time.Now}
}

func (r *GormAppointmentRepo) Save(ctx context.Context, a *domain.Appointment) error {
	model := appointmentModelFromDomain(a)
	if model == nil {
		return fmt.Errorf("appointment is required")
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	*a = *appointmentModelToDomain(model)
	return nil
}

func (r *GormAppointmentRepo) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	result := r.db.WithContext(ctx).
		Model(&AppointmentModel{}).
		Where("appointment_id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": r.now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update appointment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormAppointmentRepo) FindByID(ctx context.Context, id string) (*domain.Appointment, error) {
	var model AppointmentModel
	err := r.db.WithContext(ctx).First(&model, "appointment_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return appointmentModelToDomain(&model), nil
}

func (r *GormAppointmentRepo) FindByInsuredID(ctx context.Context, insuredID string) ([]domain.Appointment, error) {
	var models []AppointmentModel
	err := r.db.WithContext(ctx).
		Where("insured_id = ?", insuredID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	appointments := make([]domain.Appointment, 0, len(models))
	for i := range models {
		appointments = append(appointments, *appointmentModelToDomain(&models[i]))
	}

	return appointments, nil
}
