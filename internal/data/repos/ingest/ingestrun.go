package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/feralops/tnr-backend/internal/domain/ingest"
	"github.com/feralops/tnr-backend/internal/platform/dbctx"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

// FinishParams closes out a run. RowCounts and ErrorMessage are
// optional; ArchiveURI is set when the uploaded files were archived.
type FinishParams struct {
	Status       string
	RowCounts    datatypes.JSON
	Details      datatypes.JSON
	ErrorMessage string
	ArchiveURI   string
}

type IngestRunRepo interface {
	Start(dbc dbctx.Context, pipelineName string, dryRun bool) (*types.IngestRun, error)
	Finish(dbc dbctx.Context, id uuid.UUID, params FinishParams) error
	Recent(dbc dbctx.Context, limit int) ([]types.IngestRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IngestRun, error)
}

type ingestRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestRunRepo {
	return &ingestRunRepo{db: db, log: baseLog.With("repo", "IngestRunRepo")}
}

func (r *ingestRunRepo) Start(dbc dbctx.Context, pipelineName string, dryRun bool) (*types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	run := &types.IngestRun{
		PipelineName: pipelineName,
		Status:       types.RunStatusRunning,
		DryRun:       dryRun,
		StartedAt:    time.Now().UTC(),
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, mapError("start ingest run", err)
	}
	return run, nil
}

func (r *ingestRunRepo) Finish(dbc dbctx.Context, id uuid.UUID, params FinishParams) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]interface{}{
		"status":      params.Status,
		"finished_at": time.Now().UTC(),
	}
	if params.RowCounts != nil {
		updates["row_counts"] = params.RowCounts
	}
	if params.Details != nil {
		updates["details"] = params.Details
	}
	if params.ErrorMessage != "" {
		updates["error_message"] = params.ErrorMessage
	}
	if params.ArchiveURI != "" {
		updates["archive_uri"] = params.ArchiveURI
	}

	err := transaction.WithContext(dbc.Ctx).
		Model(&types.IngestRun{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return mapError("finish ingest run", err)
	}
	return nil
}

func (r *ingestRunRepo) Recent(dbc dbctx.Context, limit int) ([]types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}

	var runs []types.IngestRun
	err := transaction.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, mapError("list ingest runs", err)
	}
	return runs, nil
}

func (r *ingestRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var run types.IngestRun
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, mapError("get ingest run", err)
	}
	return &run, nil
}
