// Package objectstore stores branding logos and database backups in
// S3-compatible storage. When no bucket is configured the NoopUploader is
// used: backups stay local and logo uploads report ErrNotConfigured.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/crm/internal/config"
)

// ErrNotConfigured is returned when object storage is not configured.
var ErrNotConfigured = errors.New("object storage not configured")

// BackupKey is the object key of the latest database backup.
const BackupKey = "backups/current.db"

// Uploader stores logos and backups and hands out download URLs.
type Uploader interface {
	// PutLogo stores a profile logo and returns the URL it is served from.
	PutLogo(ctx context.Context, profileID, filename, contentType string, r io.Reader, size int64) (string, error)

	// UploadBackup uploads the database backup file at filePath.
	UploadBackup(ctx context.Context, filePath string) error

	// BackupURL returns a pre-signed URL for downloading the latest backup.
	BackupURL(ctx context.Context) (url string, expiry time.Time, err error)
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error
	FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
	EndpointURL() *url.URL
}

// minioClientWrapper adapts *minio.Client to s3Client.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

func (w *minioClientWrapper) EndpointURL() *url.URL {
	return w.client.EndpointURL()
}

// S3Uploader stores objects in S3-compatible storage.
type S3Uploader struct {
	client    s3Client
	bucket    string
	publicURL string
	urlExpiry time.Duration
}

// PutLogo uploads the logo and returns its public URL.
func (u *S3Uploader) PutLogo(ctx context.Context, profileID, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := logoKey(profileID, filename)
	if err := u.client.PutObject(ctx, u.bucket, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("upload logo to S3: %w", err)
	}
	return u.objectURL(key), nil
}

// UploadBackup uploads the backup file at filePath.
func (u *S3Uploader) UploadBackup(ctx context.Context, filePath string) error {
	if err := u.client.FPutObject(ctx, u.bucket, BackupKey, filePath, "application/vnd.sqlite3"); err != nil {
		return fmt.Errorf("upload backup to S3: %w", err)
	}
	return nil
}

// BackupURL returns a pre-signed GET URL for the latest backup.
func (u *S3Uploader) BackupURL(ctx context.Context) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, BackupKey, u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	return presigned.String(), time.Now().Add(u.urlExpiry), nil
}

// objectURL returns the URL a public object is served from: the configured
// public base URL, or path-style on the storage endpoint.
func (u *S3Uploader) objectURL(key string) string {
	if u.publicURL != "" {
		return strings.TrimRight(u.publicURL, "/") + "/" + key
	}
	endpoint := *u.client.EndpointURL()
	endpoint.Path = path.Join("/", u.bucket, key)
	return endpoint.String()
}

// NoopUploader is used when object storage is not configured.
type NoopUploader struct{}

// PutLogo returns ErrNotConfigured.
func (u *NoopUploader) PutLogo(ctx context.Context, profileID, filename, contentType string, r io.Reader, size int64) (string, error) {
	return "", ErrNotConfigured
}

// UploadBackup is a no-op; the backup stays on local disk.
func (u *NoopUploader) UploadBackup(ctx context.Context, filePath string) error {
	return nil
}

// BackupURL returns ErrNotConfigured.
func (u *NoopUploader) BackupURL(ctx context.Context) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.StorageConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
		urlExpiry: time.Duration(cfg.URLExpiry),
	}, nil
}

// stripScheme accepts endpoints written as URLs. An explicit http:// or
// https:// scheme overrides useSSL.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*useSSL = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// logoKey returns the object key for a profile logo.
// Convention: profiles/{profile_id}/logo{ext}
func logoKey(profileID, filename string) string {
	return "profiles/" + profileID + "/logo" + strings.ToLower(path.Ext(filename))
}
