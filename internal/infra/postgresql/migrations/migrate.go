package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/appointment-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_appointments",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.AppointmentModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.AppointmentModel{})
			},
		},
		{
			ID: "000002_constrain_appointment_enums",
			Migrate: func(tx *gorm.DB) error {
				statements := []string{
					`ALTER TABLE appointments ADD CONSTRAINT chk_appointments_status CHECK (status IN ('PENDING', 'COMPLETED'))`,
					`ALTER TABLE appointments ADD CONSTRAINT chk_appointments_country CHECK (country_iso IN ('PE', 'CL'))`,
					`ALTER TABLE appointments ADD CONSTRAINT chk_appointments_schedule CHECK (schedule_id > 0)`,
				}
				for _, sql := range statements {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				statements := []string{
					`ALTER TABLE appointments DROP CONSTRAINT IF EXISTS chk_appointments_status`,
					`ALTER TABLE appointments DROP CONSTRAINT IF EXISTS chk_appointments_country`,
					`ALTER TABLE appointments DROP CONSTRAINT IF EXISTS chk_appointments_schedule`,
				}
				for _, sql := range statements {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	})

	return m.Migrate()
}
