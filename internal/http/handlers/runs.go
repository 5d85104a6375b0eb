package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	repos "github.com/feralops/tnr-backend/internal/data/repos/ingest"
	"github.com/feralops/tnr-backend/internal/http/response"
	"github.com/feralops/tnr-backend/internal/platform/dbctx"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type RunsHandler struct {
	log  *logger.Logger
	runs repos.IngestRunRepo
}

func NewRunsHandler(log *logger.Logger, runs repos.IngestRunRepo) *RunsHandler {
	return &RunsHandler{
		log:  log.With("handler", "RunsHandler"),
		runs: runs,
	}
}

// GET /api/ingest/runs
func (h *RunsHandler) ListRuns(c *gin.Context) {
	limit := 20
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	dbc := dbctx.New(c.Request.Context())
	runs, err := h.runs.Recent(dbc, limit)
	if err != nil {
		h.log.Error("ListRuns failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_runs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// GET /api/ingest/runs/:id
func (h *RunsHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil || runID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	run, err := h.runs.GetByID(dbc, runID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "run_not_found", err)
			return
		}
		h.log.Error("GetRun failed", "error", err, "run_id", runID)
		response.RespondError(c, http.StatusInternalServerError, "load_run_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}
