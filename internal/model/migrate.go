package model

import "gorm.io/gorm"

// AutoMigrate creates the schema plus the partial unique indexes gorm cannot
// express through struct tags. Works on both postgres and sqlite.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Organization{},
		&User{},
		&Project{},
		&Geozone{},
		&GeoEvent{},
		&Timesheet{},
		&Allocation{},
	); err != nil {
		return err
	}

	// At most one open session per worker. Concurrent clock-ins race on this
	// index instead of on an application-level existence check.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_timesheets_open_per_user
		 ON timesheets (user_id) WHERE clock_out IS NULL`,
	).Error; err != nil {
		return err
	}

	// At most one active allocation per (worker, project).
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_allocations_active_pair
		 ON allocations (user_id, project_id) WHERE is_active`,
	).Error
}
