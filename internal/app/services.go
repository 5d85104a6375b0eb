package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/feralops/tnr-backend/internal/ingest/clinichq"
	"github.com/feralops/tnr-backend/internal/platform/gcp"
	"github.com/feralops/tnr-backend/internal/platform/logger"
	"github.com/feralops/tnr-backend/internal/realtime"
	"github.com/feralops/tnr-backend/internal/realtime/bus"
	"github.com/feralops/tnr-backend/internal/resolver"
	"github.com/feralops/tnr-backend/internal/services"
)

type Services struct {
	Resolver resolver.Service
	Emitter  services.SSEEmitter
	Importer clinichq.Importer
}

// wireServices builds the service graph. The returned bus is non-nil
// only when Redis fan-out is configured; the caller owns closing it.
func wireServices(
	ctx context.Context,
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	hub *realtime.SSEHub,
) (Services, bus.Bus, error) {
	log.Info("Wiring services...")

	res := resolver.NewPostgresResolver(db, log)

	// A single node publishes straight into its own hub. With
	// REDIS_ADDR set, every node publishes to Redis and forwards the
	// channel back into its local hub, so progress events reach
	// subscribers regardless of which node accepted the upload.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	var sseBus bus.Bus
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Services{}, nil, fmt.Errorf("init redis bus: %w", err)
		}
		if err := b.StartForwarder(ctx, hub.Broadcast); err != nil {
			_ = b.Close()
			return Services{}, nil, fmt.Errorf("start sse forwarder: %w", err)
		}
		emitter = &services.RedisEmitter{Bus: b}
		sseBus = b
	}

	var archiver clinichq.Archiver
	if cfg.ArchiveBucket != "" {
		bucket, err := gcp.NewBucketService(log)
		if err != nil {
			log.Warn("Could not init BucketService; uploads will not be archived", "error", err)
		} else {
			archiver = services.NewGCSRunArchiver(log, bucket)
		}
	}

	notifier := services.NewIngestNotifier(emitter)
	importer := clinichq.NewImporter(
		res,
		reposet.Raw,
		reposet.Appointments,
		reposet.Runs,
		archiver,
		notifier,
		log,
	)

	return Services{
		Resolver: res,
		Emitter:  emitter,
		Importer: importer,
	}, sseBus, nil
}
