package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/feralops/tnr-backend/internal/data/repos/testutil"
	types "github.com/feralops/tnr-backend/internal/domain/ingest"
	"github.com/feralops/tnr-backend/internal/platform/dbctx"
)

func TestIngestRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewIngestRunRepo(db, testutil.Logger(t))

	run, err := repo.Start(dbc, types.PipelineClinicHQVisits, false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.ID == uuid.Nil {
		t.Fatalf("Start: expected id")
	}
	if run.Status != types.RunStatusRunning {
		t.Fatalf("Start: status=%q", run.Status)
	}
	if run.DryRun {
		t.Fatalf("Start: dry_run should be false")
	}

	err = repo.Finish(dbc, run.ID, FinishParams{
		Status:     types.RunStatusOK,
		RowCounts:  datatypes.JSON([]byte(`{"animalRows":2,"uniqueVisits":2}`)),
		ArchiveURI: "gs://tnr-archive/ingest/" + run.ID.String(),
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := repo.GetByID(dbc, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.RunStatusOK {
		t.Fatalf("Finish: status=%q", got.Status)
	}
	if got.FinishedAt == nil {
		t.Fatalf("Finish: finished_at not set")
	}
	if len(got.RowCounts) == 0 {
		t.Fatalf("Finish: row_counts not set")
	}
	if got.ArchiveURI == "" {
		t.Fatalf("Finish: archive_uri not set")
	}

	failed, err := repo.Start(dbc, types.PipelineClinicHQVisits, true)
	if err != nil {
		t.Fatalf("Start dry run: %v", err)
	}
	if !failed.DryRun {
		t.Fatalf("Start dry run: dry_run should be true")
	}
	err = repo.Finish(dbc, failed.ID, FinishParams{
		Status:       types.RunStatusError,
		ErrorMessage: "run canceled before completion",
	})
	if err != nil {
		t.Fatalf("Finish failed run: %v", err)
	}

	runs, err := repo.Recent(dbc, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) < 2 {
		t.Fatalf("Recent: expected at least 2 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].ID != failed.ID {
		t.Fatalf("Recent: expected newest run first")
	}
	if runs[0].ErrorMessage == "" {
		t.Fatalf("Recent: error message missing on failed run")
	}

	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID missing: expected ErrNotFound, got %v", err)
	}
}
