package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feralops/tnr-backend/internal/http/response"
	"github.com/feralops/tnr-backend/internal/ingest/clinichq"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

const maxUploadBytes = 32 << 20

type IngestHandler struct {
	log      *logger.Logger
	importer clinichq.Importer
}

func NewIngestHandler(log *logger.Logger, importer clinichq.Importer) *IngestHandler {
	return &IngestHandler{
		log:      log.With("handler", "IngestHandler"),
		importer: importer,
	}
}

// POST /api/ingest/clinichq
//
// Multipart form with exactly one file per field: animal-info,
// owner-info, service-line-info. Flags dryRun and stream come from
// query or form values. Batch mode answers 200 with the full result
// even when per-record errors made success=false; stream mode answers
// with an SSE event feed ending in a complete or error event.
func (h *IngestHandler) IngestClinicHQ(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart", err)
		return
	}
	form := c.Request.MultipartForm
	if form == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart", fmt.Errorf("multipart form required"))
		return
	}

	in := clinichq.Input{DryRun: boolParam(c, form, "dryRun")}
	var err error
	if in.AnimalInfo, err = singleFile(form, clinichq.FieldAnimalInfo); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if in.OwnerInfo, err = singleFile(form, clinichq.FieldOwnerInfo); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if in.ServiceLineInfo, err = singleFile(form, clinichq.FieldServiceLineInfo); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	if boolParam(c, form, "stream") {
		h.stream(c, in)
		return
	}

	res, err := h.importer.Run(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, clinichq.ErrBadInput) {
			response.RespondError(c, http.StatusBadRequest, "malformed_input", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}
	response.RespondOK(c, res)
}

func (h *IngestHandler) stream(c *gin.Context, in clinichq.Input) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, "stream_unsupported", fmt.Errorf("streaming unsupported"))
		return
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.importer.RunStream(c.Request.Context(), in) {
		data, err := json.Marshal(ev)
		if err != nil {
			h.log.Warn("failed to marshal ingest event", "error", err)
			continue
		}
		_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func singleFile(form *multipart.Form, field string) (clinichq.FileInput, error) {
	files := form.File[field]
	if len(files) == 0 {
		return clinichq.FileInput{}, fmt.Errorf("missing %s file", field)
	}
	if len(files) > 1 {
		return clinichq.FileInput{}, fmt.Errorf("expected exactly one %s file, got %d", field, len(files))
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return clinichq.FileInput{}, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return clinichq.FileInput{}, fmt.Errorf("read %s: %w", field, err)
	}
	return clinichq.FileInput{Name: fh.Filename, Data: data}, nil
}

func boolParam(c *gin.Context, form *multipart.Form, name string) bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" && form != nil {
		if vals := form.Value[name]; len(vals) > 0 {
			raw = strings.TrimSpace(vals[0])
		}
	}
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
