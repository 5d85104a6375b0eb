package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/feralops/tnr-backend/internal/ingest/clinichq"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type fakeImporter struct {
	lastInput    clinichq.Input
	runCalls     int
	streamCalls  int
	result       *clinichq.Result
	err          error
	streamEvents []clinichq.Event
}

func (f *fakeImporter) Run(ctx context.Context, in clinichq.Input) (*clinichq.Result, error) {
	f.runCalls++
	f.lastInput = in
	return f.result, f.err
}

func (f *fakeImporter) RunStream(ctx context.Context, in clinichq.Input) <-chan clinichq.Event {
	f.streamCalls++
	f.lastInput = in
	out := make(chan clinichq.Event, len(f.streamEvents))
	for _, ev := range f.streamEvents {
		out <- ev
	}
	close(out)
	return out
}

func newIngestRouter(t *testing.T, imp clinichq.Importer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewIngestHandler(logger.NewNop(), imp)
	r := gin.New()
	r.POST("/api/ingest/clinichq", h.IngestClinicHQ)
	return r
}

func multipartUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, content := range fields {
		fw, err := w.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("CreateFormFile(%s): %v", field, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", field, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func allThreeFiles() map[string]string {
	return map[string]string{
		clinichq.FieldAnimalInfo:      "Microchip Number,Date\n987000000000001,1/2/2024\n",
		clinichq.FieldOwnerInfo:       "Microchip Number,Date,First Name\n987000000000001,1/2/2024,Casey\n",
		clinichq.FieldServiceLineInfo: "Microchip Number,Date,Service\n987000000000001,1/2/2024,Spay\n",
	}
}

func TestIngestClinicHQBatch(t *testing.T) {
	runID := uuid.New()
	imp := &fakeImporter{result: &clinichq.Result{
		Success: true,
		Message: "Successfully processed 1 unique cat visits",
		RunID:   runID,
	}}
	r := newIngestRouter(t, imp)

	body, contentType := multipartUpload(t, allThreeFiles())
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/clinichq", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var res clinichq.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !res.Success || res.RunID != runID {
		t.Fatalf("unexpected result: %+v", res)
	}

	if imp.runCalls != 1 {
		t.Fatalf("importer called %d times", imp.runCalls)
	}
	if imp.lastInput.DryRun {
		t.Fatal("dryRun should default to false")
	}
	if imp.lastInput.AnimalInfo.Name != clinichq.FieldAnimalInfo+".csv" {
		t.Fatalf("animal file name not forwarded: %q", imp.lastInput.AnimalInfo.Name)
	}
	if !strings.Contains(string(imp.lastInput.ServiceLineInfo.Data), "Spay") {
		t.Fatal("service-line file content not forwarded")
	}
}

func TestIngestClinicHQPartialFailureStillOK(t *testing.T) {
	imp := &fakeImporter{result: &clinichq.Result{
		Success: false,
		Message: "Processed 4 of 5 cat visits (1 failed)",
		RunID:   uuid.New(),
	}}
	r := newIngestRouter(t, imp)

	body, contentType := multipartUpload(t, allThreeFiles())
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/clinichq", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Partial failures are a valid outcome, not a transport error.
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d", rec.Code)
	}
	var res clinichq.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.Success {
		t.Fatal("expected success=false in body")
	}
}

func TestIngestClinicHQMissingFile(t *testing.T) {
	imp := &fakeImporter{}
	r := newIngestRouter(t, imp)

	files := allThreeFiles()
	delete(files, clinichq.FieldOwnerInfo)
	body, contentType := multipartUpload(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/clinichq", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d", rec.Code)
	}
	if imp.runCalls != 0 || imp.streamCalls != 0 {
		t.Fatal("importer must not run when a file is missing")
	}
}

func TestIngestClinicHQMalformedInput(t *testing.T) {
	imp := &fakeImporter{err: fmt.Errorf("%w: animal-info: no header row", clinichq.ErrBadInput)}
	r := newIngestRouter(t, imp)

	body, contentType := multipartUpload(t, allThreeFiles())
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/clinichq", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "malformed_input") {
		t.Fatalf("expected malformed_input code, body=%s", rec.Body.String())
	}
}

func TestIngestClinicHQDryRunParam(t *testing.T) {
	imp := &fakeImporter{result: &clinichq.Result{Success: true, DryRun: true}}
	r := newIngestRouter(t, imp)

	body, contentType := multipartUpload(t, allThreeFiles())
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/clinichq?dryRun=true", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d", rec.Code)
	}
	if !imp.lastInput.DryRun {
		t.Fatal("dryRun query param not forwarded")
	}
}

func TestIngestClinicHQStream(t *testing.T) {
	runID := uuid.New()
	imp := &fakeImporter{streamEvents: []clinichq.Event{
		{Type: clinichq.EventProgress, Index: 1, Total: 2, Stats: &clinichq.ProcessingStats{UniqueVisits: 2}},
		{Type: clinichq.EventProgress, Index: 2, Total: 2, Stats: &clinichq.ProcessingStats{UniqueVisits: 2}},
		{Type: clinichq.EventComplete, Result: &clinichq.Result{Success: true, RunID: runID}},
	}}
	r := newIngestRouter(t, imp)

	body, contentType := multipartUpload(t, allThreeFiles())
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/clinichq?stream=true", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if imp.streamCalls != 1 || imp.runCalls != 0 {
		t.Fatalf("expected streaming path, got stream=%d run=%d", imp.streamCalls, imp.runCalls)
	}

	out := rec.Body.String()
	if strings.Count(out, "event: progress") != 2 {
		t.Fatalf("expected two progress events, body=%q", out)
	}
	if !strings.Contains(out, "event: complete") {
		t.Fatalf("missing complete event, body=%q", out)
	}
	if !strings.Contains(out, runID.String()) {
		t.Fatalf("complete event missing run id, body=%q", out)
	}
}
