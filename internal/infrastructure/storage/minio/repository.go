package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrUploadFailed   = errors.New(errors.CodeStorageError, "upload failed")
	ErrDownloadFailed = errors.New(errors.CodeStorageError, "download failed")
	ErrInvalidRequest = errors.Validation("invalid request")
)

// ObjectInfo describes one archived document.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// ArchiveStore writes and reads ledger documents in the archive bucket.
type ArchiveStore struct {
	client *MinIOClient
	logger logging.Logger
}

var _ domainExpiry.ArchiveStore = (*ArchiveStore)(nil)

// NewArchiveStore returns a store over client's bucket.
func NewArchiveStore(client *MinIOClient, log logging.Logger) *ArchiveStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ArchiveStore{client: client, logger: log}
}

// PutDocument implements expiry.ArchiveStore. An existing object under key is
// replaced, so re-archiving a day is idempotent.
func (s *ArchiveStore) PutDocument(ctx context.Context, key string, body []byte, contentType string) error {
	if key == "" || len(body) == 0 {
		return ErrInvalidRequest.WithDetail("key and body are required")
	}
	if s.client.isClosed() {
		return ErrMinIOClientClosed
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.GetClient().PutObject(ctx, s.client.Bucket(), key,
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{"source": "freshguard"},
		})
	if err != nil {
		return ErrUploadFailed.WithCause(err).WithDetail("key=" + key)
	}
	s.logger.Debug("document stored",
		logging.String("bucket", s.client.Bucket()),
		logging.String("key", key),
		logging.String("etag", info.ETag),
		logging.Int64("size", info.Size))
	return nil
}

// GetDocument reads a whole document.
func (s *ArchiveStore) GetDocument(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidRequest.WithDetail("key is required")
	}
	obj, err := s.client.GetClient().GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ErrDownloadFailed.WithCause(err).WithDetail("key=" + key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound.WithDetail("key=" + key)
		}
		return nil, ErrDownloadFailed.WithCause(err).WithDetail("key=" + key)
	}
	return data, nil
}

// Exists reports whether key is present.
func (s *ArchiveStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.GetClient().StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.CodeStorageError, "stat object failed")
	}
	return true, nil
}

// List returns the documents under prefix, at most maxKeys of them. A
// non-positive maxKeys means 1000.
func (s *ArchiveStore) List(ctx context.Context, prefix string, maxKeys int) ([]ObjectInfo, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.client.GetClient().ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	out := make([]ObjectInfo, 0)
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.CodeStorageError, "list objects failed")
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
		if len(out) >= maxKeys {
			break
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
