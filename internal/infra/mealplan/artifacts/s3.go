package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

// S3Options configures the S3 compatible store.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

// S3Store uploads artifacts to an S3 compatible bucket (R2, MinIO, AWS).
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger

	ensure      func(ctx context.Context) error
	bucketMu    sync.Mutex
	bucketReady bool
}

const bucketCheckTimeout = 10 * time.Second

// NewS3Store constructs the store.
func NewS3Store(opts S3Options, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(opts.Endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       useSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	st := &S3Store{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger.With("component", "mealplan.artifacts.s3"),
	}
	st.ensure = st.ensureBucket
	return st, nil
}

// Save uploads body as prefix/generationID/name.
func (s *S3Store) Save(ctx context.Context, generationID, name string, body []byte) error {
	if err := s.readyBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	key := s.objectKey(generationID, name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:      contentType(name),
		DisableMultipart: true,
	})
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", key, err)
	}
	s.logger.Debug("artifact uploaded", "key", key, "bytes", len(body))
	return nil
}

func (s *S3Store) objectKey(generationID, name string) string {
	return path.Join(s.prefix, generationID, name)
}

// readyBucket checks the bucket until one check succeeds. The check does not
// inherit the caller's cancellation.
func (s *S3Store) readyBucket(ctx context.Context) error {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()
	if s.bucketReady {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bucketCheckTimeout)
	defer cancel()
	if err := s.ensure(checkCtx); err != nil {
		return err
	}
	s.bucketReady = true
	return nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

var _ domain.ArtifactStore = (*S3Store)(nil)
