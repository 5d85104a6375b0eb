package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feralops/tnr-backend/internal/ingest/clinichq"
	"github.com/feralops/tnr-backend/internal/realtime"
)

// IngestRunChannel is the SSE channel a client subscribes to in order to
// follow a single ingest run.
func IngestRunChannel(runID uuid.UUID) string {
	return fmt.Sprintf("ingest:%s", runID)
}

type ingestNotifier struct {
	emit SSEEmitter
}

// NewIngestNotifier adapts an SSEEmitter to the importer's notifier
// contract. A nil emitter yields a notifier that drops everything.
func NewIngestNotifier(emit SSEEmitter) clinichq.RunNotifier {
	return &ingestNotifier{emit: emit}
}

func (n *ingestNotifier) RunProgress(runID uuid.UUID, ev clinichq.Event) {
	if n == nil || n.emit == nil || runID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: IngestRunChannel(runID),
		Event:   realtime.SSEEventIngestProgress,
		Data: map[string]any{
			"run_id": runID,
			"index":  ev.Index,
			"total":  ev.Total,
			"stats":  ev.Stats,
		},
	})
}

func (n *ingestNotifier) RunComplete(runID uuid.UUID, ev clinichq.Event) {
	if n == nil || n.emit == nil || runID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: IngestRunChannel(runID),
		Event:   realtime.SSEEventIngestComplete,
		Data: map[string]any{
			"run_id": runID,
			"result": ev.Result,
		},
	})
}

func (n *ingestNotifier) RunFailed(runID uuid.UUID, ev clinichq.Event) {
	if n == nil || n.emit == nil || runID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: IngestRunChannel(runID),
		Event:   realtime.SSEEventIngestFailed,
		Data: map[string]any{
			"run_id": runID,
			"error":  ev.Error,
		},
	})
}
