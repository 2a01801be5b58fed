// Package export archives generated CSV files.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/raine/stockmeta/internal/stock"
	"github.com/rs/zerolog/log"
)

// Sink stores an exported file under a slash separated relative path and
// returns where it ended up.
type Sink interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// CSV formats the completed images for a platform and stores them in sink
// under the platform's folder and dated file name.
func CSV(ctx context.Context, sink Sink, p stock.Platform, images []*stock.Image, now time.Time) (string, error) {
	data := []byte(stock.FormatCSV(p, images))
	location, err := sink.Put(ctx, stock.ExportPath(p, now), data)
	if err != nil {
		return "", fmt.Errorf("failed to export csv: %w", err)
	}
	log.Info().Str("platform", string(p)).Int("images", len(images)).Str("location", location).Msg("exported csv")
	return location, nil
}

// DirSink writes files below a local directory.
type DirSink struct {
	Root string
}

// Put implements Sink.
func (d DirSink) Put(ctx context.Context, path string, data []byte) (string, error) {
	full := filepath.Join(d.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return full, nil
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Sink uploads files to an S3 compatible bucket.
type S3Sink struct {
	api    *minio.Client
	bucket string
}

// NewS3Sink creates a sink for cfg.Bucket.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &S3Sink{api: client, bucket: cfg.Bucket}, nil
}

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, path string, data []byte) (string, error) {
	_, err := s.api.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, path), nil
}
