package app

import (
	"gorm.io/gorm"

	"github.com/feralops/tnr-backend/internal/http"
	httpH "github.com/feralops/tnr-backend/internal/http/handlers"
	"github.com/feralops/tnr-backend/internal/platform/logger"
	"github.com/feralops/tnr-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Ingest   *httpH.IngestHandler
	Runs     *httpH.RunsHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, reposet Repos, serviceset Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Ingest:   httpH.NewIngestHandler(log, serviceset.Importer),
		Runs:     httpH.NewRunsHandler(log, reposet.Runs),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireServer(log *logger.Logger, handlers Handlers) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		HealthHandler:   handlers.Health,
		IngestHandler:   handlers.Ingest,
		RunsHandler:     handlers.Runs,
		RealtimeHandler: handlers.Realtime,
	})
}
