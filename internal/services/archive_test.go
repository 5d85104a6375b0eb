package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/feralops/tnr-backend/internal/ingest/clinichq"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type fakeBucket struct {
	uploads map[string][]byte
	failOn  string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: make(map[string][]byte)}
}

func (b *fakeBucket) UploadFile(_ context.Context, key string, file io.Reader) error {
	if b.failOn != "" && strings.Contains(key, b.failOn) {
		return fmt.Errorf("upload %s: quota exceeded", key)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.uploads[key] = data
	return nil
}

func (b *fakeBucket) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.uploads[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (b *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	keys := []string{}
	for k := range b.uploads {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *fakeBucket) DeleteFile(_ context.Context, key string) error {
	delete(b.uploads, key)
	return nil
}

func (b *fakeBucket) ObjectURI(key string) string {
	return "gs://test-archive/" + strings.TrimLeft(key, "/")
}

func TestGCSRunArchiverStoresEachUpload(t *testing.T) {
	bucket := newFakeBucket()
	archiver := NewGCSRunArchiver(logger.NewNop(), bucket)
	runID := uuid.New()

	uri, err := archiver.ArchiveRun(context.Background(), runID, map[string]clinichq.FileInput{
		"animal-info":       {Name: "Animal Info March.csv", Data: []byte("a,b\n1,2\n")},
		"owner-info":        {Name: "owners.xlsx", Data: []byte{0x50, 0x4b}},
		"service-line-info": {Name: "../../etc/passwd", Data: []byte("x")},
	})
	if err != nil {
		t.Fatalf("ArchiveRun: %v", err)
	}

	wantURI := fmt.Sprintf("gs://test-archive/ingest/%s", runID)
	if uri != wantURI {
		t.Fatalf("archive uri: want=%s got=%s", wantURI, uri)
	}
	if len(bucket.uploads) != 3 {
		t.Fatalf("uploaded objects: want=3 got=%d", len(bucket.uploads))
	}

	animalKey := fmt.Sprintf("ingest/%s/animal-info-Animal_Info_March.csv", runID)
	if _, ok := bucket.uploads[animalKey]; !ok {
		t.Fatalf("missing animal object %s; have %v", animalKey, keysOf(bucket.uploads))
	}
	trickyKey := fmt.Sprintf("ingest/%s/service-line-info-passwd", runID)
	if _, ok := bucket.uploads[trickyKey]; !ok {
		t.Fatalf("path traversal in filename should reduce to base name; have %v", keysOf(bucket.uploads))
	}
}

func TestGCSRunArchiverPropagatesUploadFailure(t *testing.T) {
	bucket := newFakeBucket()
	bucket.failOn = "owner-info"
	archiver := NewGCSRunArchiver(logger.NewNop(), bucket)

	_, err := archiver.ArchiveRun(context.Background(), uuid.New(), map[string]clinichq.FileInput{
		"owner-info": {Name: "owners.csv", Data: []byte("x")},
	})
	if err == nil {
		t.Fatalf("expected upload failure to surface")
	}
	if !strings.Contains(err.Error(), "owner-info") {
		t.Fatalf("error should name the failed field: %v", err)
	}
}

func keysOf(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
