package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveConfig locates the bucket receiving run artifacts
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOArchiver uploads the summary and the log file of each run to
// runs/<run-id>/ in an S3-compatible bucket
type MinIOArchiver struct {
	store  objectStore
	bucket string
}

var _ Sink = (*MinIOArchiver)(nil)

// NewMinIOArchiver creates an archiver; the bucket is created on first use
func NewMinIOArchiver(cfg ArchiveConfig) (*MinIOArchiver, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOArchiver{store: mc, bucket: cfg.Bucket}, nil
}

func (a *MinIOArchiver) Name() string { return "minio" }

// EnsureBucket creates the bucket when it does not exist
func (a *MinIOArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Deliver uploads summary.json and, when present, the log file
func (a *MinIOArchiver) Deliver(ctx context.Context, d Delivery) error {
	if err := a.EnsureBucket(ctx); err != nil {
		return err
	}
	prefix := path.Join("runs", d.Summary.RunID)

	data, err := json.MarshalIndent(d.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := a.upload(ctx, path.Join(prefix, "summary.json"), bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return err
	}

	if d.Report != nil {
		html := []byte(d.Report.HTML)
		if err := a.upload(ctx, path.Join(prefix, "report.html"), bytes.NewReader(html), int64(len(html)), "text/html"); err != nil {
			return err
		}
	}

	if d.LogFile == "" {
		return nil
	}
	f, err := os.Open(d.LogFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	return a.upload(ctx, path.Join(prefix, filepath.Base(d.LogFile)), f, info.Size(), "text/plain")
}

func (a *MinIOArchiver) upload(ctx context.Context, object string, r io.Reader, size int64, contentType string) error {
	_, err := a.store.PutObject(ctx, a.bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}
	return nil
}
