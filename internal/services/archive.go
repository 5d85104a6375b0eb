package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/feralops/tnr-backend/internal/ingest/clinichq"
	"github.com/feralops/tnr-backend/internal/platform/gcp"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type gcsRunArchiver struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

// NewGCSRunArchiver stores the exact uploaded files under
// ingest/<runID>/ so a run can be audited or replayed later.
func NewGCSRunArchiver(log *logger.Logger, bucket gcp.BucketService) clinichq.Archiver {
	return &gcsRunArchiver{
		log:    log.With("service", "GCSRunArchiver"),
		bucket: bucket,
	}
}

func (a *gcsRunArchiver) ArchiveRun(ctx context.Context, runID uuid.UUID, files map[string]clinichq.FileInput) (string, error) {
	if a == nil || a.bucket == nil {
		return "", fmt.Errorf("run archiver not initialized")
	}
	prefix := fmt.Sprintf("ingest/%s", runID)
	for field, f := range files {
		key := fmt.Sprintf("%s/%s-%s", prefix, field, safeFilename(f.Name))
		if err := a.bucket.UploadFile(ctx, key, bytes.NewReader(f.Data)); err != nil {
			return "", fmt.Errorf("archive %s: %w", field, err)
		}
		a.log.Debug("Archived upload", "run_id", runID, "key", key, "bytes", len(f.Data))
	}
	return a.bucket.ObjectURI(prefix), nil
}

func safeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
