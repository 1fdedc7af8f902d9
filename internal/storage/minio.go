package storage

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"job-etl-go/internal/config"
)

// ObjectStorage is the object-store surface the extractor needs: a
// paginated key listing under a prefix and a single-object download.
type ObjectStorage interface {
	// ListBatchKeys lists the JSON batch objects under a key prefix.
	ListBatchKeys(ctx context.Context, prefix string) ([]string, error)

	// DownloadBatch downloads one object into localDir and returns the
	// local path.
	DownloadBatch(ctx context.Context, key, localDir string) (string, error)
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO gives read access to the raw-batch data lake. All calls are
// bounded by the connect/read timeouts configured once on the client;
// remote access is best effort and callers treat failures as a reduced
// yield, not a fatal condition.
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
}

// NewMinIO creates the object-storage client and verifies the bucket is
// reachable, so connectivity problems surface at startup rather than
// mid-listing.
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config must not be nil")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("missing object storage credentials (KEY_ACCESS, KEY_SECRET)")
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:    cfg.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	m := &MinIO{client: client, cfg: cfg, bucket: cfg.BucketName}

	checkCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeoutSeconds+cfg.ReadTimeoutSeconds)*time.Second)
	defer cancel()
	exists, err := client.BucketExists(checkCtx, m.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return m, nil
}

// ListBatchKeys lists every .json object under prefix. The underlying
// listing call paginates internally; the returned order is the store's
// lexical key order.
func (m *MinIO) ListBatchKeys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects under %s/%s: %w", m.bucket, prefix, object.Err)
		}
		if strings.HasSuffix(object.Key, ".json") {
			keys = append(keys, object.Key)
		}
	}
	return keys, nil
}

// DownloadBatch fetches one object to localDir, keeping the object's
// base name. Transient failures are retried up to the configured cap.
func (m *MinIO) DownloadBatch(ctx context.Context, key, localDir string) (string, error) {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir %s: %w", localDir, err)
	}
	target := filepath.Join(localDir, filepath.Base(key))

	var lastErr error
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		if err := m.client.FGetObject(ctx, m.bucket, key, target, minio.GetObjectOptions{}); err != nil {
			lastErr = err
			continue
		}
		return target, nil
	}
	return "", fmt.Errorf("download %s/%s: %w", m.bucket, key, lastErr)
}
