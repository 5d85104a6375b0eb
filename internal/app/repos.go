package app

import (
	"gorm.io/gorm"

	repos "github.com/feralops/tnr-backend/internal/data/repos/ingest"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type Repos struct {
	Raw          repos.RawRecordRepo
	Appointments repos.AppointmentRepo
	Runs         repos.IngestRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Raw:          repos.NewRawRecordRepo(db, log),
		Appointments: repos.NewAppointmentRepo(db, log),
		Runs:         repos.NewIngestRunRepo(db, log),
	}
}
