package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/feralops/tnr-backend/internal/http/handlers"
	httpMW "github.com/feralops/tnr-backend/internal/http/middleware"
	"github.com/feralops/tnr-backend/internal/observability"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	IngestHandler   *httpH.IngestHandler
	RunsHandler     *httpH.RunsHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("tnr-backend"))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS())
	r.Use(httpMW.Metrics(observability.Current()))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readycheck", cfg.HealthHandler.ReadyCheck)
	}

	api := r.Group("/api")
	{
		// Ingest
		if cfg.IngestHandler != nil {
			api.POST("/ingest/clinichq", cfg.IngestHandler.IngestClinicHQ)
		}
		if cfg.RunsHandler != nil {
			api.GET("/ingest/runs", cfg.RunsHandler.ListRuns)
			api.GET("/ingest/runs/:id", cfg.RunsHandler.GetRun)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
