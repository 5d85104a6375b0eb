package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Ingest run statuses.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusPartial = "partial"
	RunStatusError   = "error"
)

// PipelineClinicHQVisits names the ClinicHQ visit-ingest pipeline.
const PipelineClinicHQVisits = "clinichq_visit_ingest"

// IngestRun is the bookkeeping row for one pipeline execution. A run
// that finished with per-record errors but was not aborted lands in
// "partial"; dry runs are recorded too, flagged with DryRun.
type IngestRun struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PipelineName string         `gorm:"column:pipeline_name;not null;index" json:"pipeline_name"`
	Status       string         `gorm:"column:status;not null;default:'running';index" json:"status"`
	DryRun       bool           `gorm:"column:dry_run;not null;default:false" json:"dry_run"`
	StartedAt    time.Time      `gorm:"column:started_at;not null;default:now();index" json:"started_at"`
	FinishedAt   *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	RowCounts    datatypes.JSON `gorm:"column:row_counts;type:jsonb" json:"row_counts"`
	Details      datatypes.JSON `gorm:"column:details;type:jsonb" json:"details"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ArchiveURI   string         `gorm:"column:archive_uri" json:"archive_uri,omitempty"`
}

func (IngestRun) TableName() string { return "ingest_run" }
