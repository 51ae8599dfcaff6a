package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Upload and URL signing are retried up to three attempts with exponential
// backoff (base 1s, cap 10s); non-transient store errors abort immediately.
const (
	maxAttempts = 3
	backoffBase = 1 * time.Second
	backoffCap  = 10 * time.Second
)

// retryBase is overridable in tests to keep retry paths fast.
var retryBase = backoffBase

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	URLTTL    time.Duration
}

// Client wraps a MinIO connection for one bucket and applies the stage
// retry policy to every operation.
type Client struct {
	mc     *minio.Client
	bucket string
	urlTTL time.Duration
	logger *zap.Logger
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	c := &Client{mc: mc, bucket: opts.Bucket, urlTTL: opts.URLTTL, logger: logger}

	exists, err := mc.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", opts.Bucket, err)
		}
		logger.Info("created bucket", zap.String("bucket", opts.Bucket))
	}
	return c, nil
}

// UploadFile uploads a local file under the given key. An empty content
// type is derived from the file extension.
func (c *Client) UploadFile(ctx context.Context, key, path, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeFor(path)
	}
	return c.retry(ctx, func() error {
		_, err := c.mc.FPutObject(ctx, c.bucket, key, path, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return err
		}
		c.logger.Info("uploaded object", zap.String("key", key))
		return nil
	})
}

// UploadBytes uploads an in-memory payload under the given key.
func (c *Client) UploadBytes(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	return c.retry(ctx, func() error {
		_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return err
		}
		c.logger.Info("uploaded object", zap.String("key", key), zap.Int("bytes", len(data)))
		return nil
	})
}

// DownloadFile fetches an object into a local file, creating parent
// directories as needed.
func (c *Client) DownloadFile(ctx context.Context, key, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	return c.retry(ctx, func() error {
		return c.mc.FGetObject(ctx, c.bucket, key, path, minio.GetObjectOptions{})
	})
}

// SignedURL issues a time-limited GET URL for the key using the configured
// expiration.
func (c *Client) SignedURL(ctx context.Context, key string) (string, error) {
	var signed string
	err := c.retry(ctx, func() error {
		u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, c.urlTTL, url.Values{})
		if err != nil {
			return err
		}
		signed = u.String()
		return nil
	})
	return signed, err
}

// List returns all object keys under the prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Delete removes an object if present.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.retry(ctx, func() error {
		return c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	})
}

// Check verifies the store is reachable and the bucket exists.
func (c *Client) Check(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return nil
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	return retryTransient(ctx, func() error {
		err := op()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	})
}

// retryTransient runs op under the stage retry policy. op must mark
// non-retryable failures with backoff.Permanent.
func retryTransient(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryBase
	bo.MaxInterval = backoffCap
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
}

// isTransient classifies store failures. Authorization and addressing
// errors never heal on retry; everything else (network, throttling,
// internal errors) is retried.
func isTransient(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"NoSuchBucket", "NoSuchKey", "InvalidBucketName":
			return false
		}
	}
	return true
}
