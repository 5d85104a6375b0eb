package db

import (
	"gorm.io/gorm"

	types "github.com/feralops/tnr-backend/internal/domain/ingest"
)

// AutoMigrateAll migrates the tables this service owns. The identity
// graph (people, places, cats) lives in the platform's trapper schema
// and is provisioned there, not here.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.RawRecord{},
		&types.Appointment{},
		&types.IngestRun{},
	)
}
