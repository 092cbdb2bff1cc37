// Package archive mirrors export files to an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const objectPrefix = "rolls"

var (
	errMissingEndpoint = errors.New("archive endpoint is required")
	errMissingBucket   = errors.New("archive bucket is required")
	errInvalidKeyPart  = errors.New("archive key part must be a single path segment")
)

// Config holds the connection settings of the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Logger    *zap.Logger
}

// objectStore is the part of *minio.Client the archive uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Archive uploads finished exports under rolls/<rollId>/<filename>.
type Archive struct {
	client objectStore
	bucket string
	logger *zap.Logger
}

// New connects to the endpoint and creates the bucket when it does not exist yet.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errMissingEndpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}
	return newWithClient(ctx, client, cfg.Bucket, cfg.Logger)
}

func newWithClient(ctx context.Context, client objectStore, bucket string, logger *zap.Logger) (*Archive, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errMissingBucket
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check archive bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create archive bucket %s: %w", bucket, err)
		}
		logger.Info("archive bucket created", zap.String("bucket", bucket))
	}
	return &Archive{client: client, bucket: bucket, logger: logger}, nil
}

// ObjectKey returns the bucket key of an export file.
func ObjectKey(rollID, filename string) (string, error) {
	for _, part := range []string{rollID, filename} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", errInvalidKeyPart, part)
		}
	}
	return path.Join(objectPrefix, rollID, filename), nil
}

// Store uploads one export file and returns its key.
func (a *Archive) Store(ctx context.Context, rollID, filename, contentType string, content []byte) (string, error) {
	key, err := ObjectKey(rollID, filename)
	if err != nil {
		return "", err
	}
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	a.logger.Info("export archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size))
	return key, nil
}

// List returns the archived export keys of a roll.
func (a *Archive) List(ctx context.Context, rollID string) ([]string, error) {
	if rollID == "" || strings.ContainsAny(rollID, `/\`) {
		return nil, fmt.Errorf("%w: %q", errInvalidKeyPart, rollID)
	}
	keys := []string{}
	objects := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    path.Join(objectPrefix, rollID) + "/",
		Recursive: true,
	})
	for object := range objects {
		if object.Err != nil {
			return nil, object.Err
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}
