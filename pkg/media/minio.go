package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const uploadTries = 3

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object keys in returned URLs. Defaults to the endpoint.
	PublicURL string
}

type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	backoff   time.Duration
	logger    Logger
}

// NewMinioStorage connects to MinIO and creates the bucket when it does not exist.
func NewMinioStorage(ctx context.Context, cfg MinioConfig, logger Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media: minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("media: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("media: make bucket: %w", err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		publicURL = scheme + cfg.Endpoint
	}
	if logger == nil {
		logger = nopLogger{}
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		backoff:   2 * time.Second,
		logger:    logger,
	}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, f File, scope string) (Result, error) {
	key := ObjectKey(f, scope)
	opts := minio.PutObjectOptions{ContentType: f.ContentType}
	if f.Name != "" {
		opts.UserMetadata = map[string]string{"filename": f.Name}
	}

	var err error
	for i := range uploadTries {
		_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)), opts)
		if err == nil {
			return Result{URL: s.publicURL + "/" + s.bucket + "/" + key}, nil
		}

		resp := minio.ToErrorResponse(err)
		s.logger.Warn(moduleName, "Upload to minio failed", map[string]interface{}{
			"key":    key,
			"try":    i + 1,
			"code":   resp.StatusCode,
			"reason": resp.Message,
		})

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.backoff * time.Duration(i+1)):
		}
	}
	return Result{}, fmt.Errorf("media: upload %s: %w", key, err)
}
