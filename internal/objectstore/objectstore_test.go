package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/crm/internal/config"
)

// --- NoopUploader Tests ---

func TestNoopUploader_UploadBackup_IsNoOp(t *testing.T) {
	u := &NoopUploader{}
	if err := u.UploadBackup(context.Background(), "/some/path"); err != nil {
		t.Errorf("NoopUploader.UploadBackup() should not error, got %v", err)
	}
}

func TestNoopUploader_PutLogo_ReturnsErrNotConfigured(t *testing.T) {
	u := &NoopUploader{}
	_, err := u.PutLogo(context.Background(), "owner", "logo.png", "image/png", strings.NewReader("png"), 3)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NoopUploader.PutLogo() should return ErrNotConfigured, got %v", err)
	}
}

func TestNoopUploader_BackupURL_ReturnsErrNotConfigured(t *testing.T) {
	u := &NoopUploader{}
	_, _, err := u.BackupURL(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NoopUploader.BackupURL() should return ErrNotConfigured, got %v", err)
	}
}

// --- NewUploader factory tests ---

func TestNewUploader_EmptyBucket_ReturnsNoopUploader(t *testing.T) {
	u, err := NewUploader(config.StorageConfig{Bucket: ""})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}
	if _, ok := u.(*NoopUploader); !ok {
		t.Errorf("expected *NoopUploader, got %T", u)
	}
}

func TestNewUploader_WithBucket_ReturnsS3Uploader(t *testing.T) {
	boolTrue := true
	cfg := config.StorageConfig{
		Bucket:    "crm-assets",
		Endpoint:  "localhost:9000",
		Region:    "us-east-1",
		UseSSL:    &boolTrue,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		PublicURL: "https://cdn.example.com",
		URLExpiry: config.Duration(15 * time.Minute),
	}

	u, err := NewUploader(cfg)
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}

	s3u, ok := u.(*S3Uploader)
	if !ok {
		t.Fatalf("expected *S3Uploader, got %T", u)
	}
	if s3u.bucket != "crm-assets" || s3u.publicURL != "https://cdn.example.com" {
		t.Errorf("uploader = %+v, want configured bucket and public URL", s3u)
	}
}

func TestNewUploader_EndpointWithScheme(t *testing.T) {
	u, err := NewUploader(config.StorageConfig{
		Bucket:   "crm-assets",
		Endpoint: "http://minio:9000",
	})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}

	endpoint := u.(*S3Uploader).client.EndpointURL()
	if endpoint.Scheme != "http" || endpoint.Host != "minio:9000" {
		t.Errorf("endpoint = %v, want http://minio:9000", endpoint)
	}
}

// --- S3Uploader with mock client tests ---

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	putCalled      bool
	putErr         error
	putBody        []byte
	putContentType string
	uploadCalled   bool
	uploadErr      error
	presignCalled  bool
	presignURL     *url.URL
	presignErr     error
	lastBucket     string
	lastObjectName string
	lastFilePath   string
}

func (m *mockS3Client) PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	m.putCalled = true
	m.lastBucket = bucket
	m.lastObjectName = objectName
	m.putContentType = contentType
	m.putBody, _ = io.ReadAll(r)
	return m.putErr
}

func (m *mockS3Client) FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error {
	m.uploadCalled = true
	m.lastBucket = bucket
	m.lastObjectName = objectName
	m.lastFilePath = filePath
	return m.uploadErr
}

func (m *mockS3Client) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	m.presignCalled = true
	m.lastBucket = bucket
	m.lastObjectName = objectName
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	if m.presignURL != nil {
		return m.presignURL, nil
	}
	u, _ := url.Parse("https://s3.example.com/" + bucket + "/" + objectName + "?presigned=true")
	return u, nil
}

func (m *mockS3Client) EndpointURL() *url.URL {
	return &url.URL{Scheme: "https", Host: "s3.example.com"}
}

func TestS3Uploader_PutLogo_Success(t *testing.T) {
	mock := &mockS3Client{}
	u := &S3Uploader{client: mock, bucket: "crm-assets", urlExpiry: 15 * time.Minute}

	got, err := u.PutLogo(context.Background(), "owner", "Brand.PNG", "image/png", bytes.NewReader([]byte("png-bytes")), 9)
	if err != nil {
		t.Fatalf("PutLogo() error = %v", err)
	}

	if !mock.putCalled {
		t.Fatal("expected PutObject to be called")
	}
	if mock.lastObjectName != "profiles/owner/logo.png" {
		t.Errorf("objectName = %q, want %q", mock.lastObjectName, "profiles/owner/logo.png")
	}
	if mock.putContentType != "image/png" {
		t.Errorf("contentType = %q, want image/png", mock.putContentType)
	}
	if string(mock.putBody) != "png-bytes" {
		t.Errorf("body = %q, want png-bytes", mock.putBody)
	}
	if want := "https://s3.example.com/crm-assets/profiles/owner/logo.png"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestS3Uploader_PutLogo_PublicURL(t *testing.T) {
	u := &S3Uploader{client: &mockS3Client{}, bucket: "crm-assets", publicURL: "https://cdn.example.com/"}

	got, err := u.PutLogo(context.Background(), "owner", "logo.svg", "image/svg+xml", strings.NewReader("<svg/>"), 6)
	if err != nil {
		t.Fatalf("PutLogo() error = %v", err)
	}
	if want := "https://cdn.example.com/profiles/owner/logo.svg"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestS3Uploader_PutLogo_Error(t *testing.T) {
	mock := &mockS3Client{putErr: errors.New("bucket not found")}
	u := &S3Uploader{client: mock, bucket: "crm-assets"}

	_, err := u.PutLogo(context.Background(), "owner", "logo.png", "image/png", strings.NewReader("x"), 1)
	if !errors.Is(err, mock.putErr) {
		t.Errorf("expected wrapped bucket error, got %v", err)
	}
}

func TestS3Uploader_UploadBackup_Success(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "current.db")
	if err := os.WriteFile(filePath, []byte("test data"), 0644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	mock := &mockS3Client{}
	u := &S3Uploader{client: mock, bucket: "crm-assets", urlExpiry: 15 * time.Minute}

	if err := u.UploadBackup(context.Background(), filePath); err != nil {
		t.Fatalf("UploadBackup() error = %v", err)
	}

	if !mock.uploadCalled {
		t.Error("expected FPutObject to be called")
	}
	if mock.lastBucket != "crm-assets" {
		t.Errorf("bucket = %q, want %q", mock.lastBucket, "crm-assets")
	}
	if mock.lastObjectName != BackupKey {
		t.Errorf("objectName = %q, want %q", mock.lastObjectName, BackupKey)
	}
	if mock.lastFilePath != filePath {
		t.Errorf("filePath = %q, want %q", mock.lastFilePath, filePath)
	}
}

func TestS3Uploader_UploadBackup_Error(t *testing.T) {
	mock := &mockS3Client{uploadErr: errors.New("network timeout")}
	u := &S3Uploader{client: mock, bucket: "crm-assets"}

	err := u.UploadBackup(context.Background(), "/path/to/file.db")
	if err == nil {
		t.Fatal("UploadBackup() expected error, got nil")
	}
	if !errors.Is(err, mock.uploadErr) {
		t.Errorf("expected wrapped network timeout error, got %v", err)
	}
}

func TestS3Uploader_BackupURL_Success(t *testing.T) {
	expectedURL, _ := url.Parse("https://s3.example.com/crm-assets/backups/current.db?token=abc")
	mock := &mockS3Client{presignURL: expectedURL}
	u := &S3Uploader{client: mock, bucket: "crm-assets", urlExpiry: 15 * time.Minute}

	urlStr, expiry, err := u.BackupURL(context.Background())
	if err != nil {
		t.Fatalf("BackupURL() error = %v", err)
	}

	if urlStr != expectedURL.String() {
		t.Errorf("url = %q, want %q", urlStr, expectedURL.String())
	}

	// Expiry should be approximately 15 minutes from now
	expectedExpiry := time.Now().Add(15 * time.Minute)
	if expiry.Before(expectedExpiry.Add(-1*time.Second)) || expiry.After(expectedExpiry.Add(1*time.Second)) {
		t.Errorf("expiry = %v, want approximately %v", expiry, expectedExpiry)
	}
	if mock.lastObjectName != BackupKey {
		t.Errorf("objectName = %q, want %q", mock.lastObjectName, BackupKey)
	}
}

func TestS3Uploader_BackupURL_Error(t *testing.T) {
	u := &S3Uploader{client: &mockS3Client{presignErr: errors.New("access denied")}, bucket: "crm-assets"}

	if _, _, err := u.BackupURL(context.Background()); err == nil {
		t.Fatal("BackupURL() expected error, got nil")
	}
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantHost string
		wantSSL  bool
	}{
		{"bare host", "s3.example.com", "s3.example.com", true},
		{"bare host:port", "minio:9000", "minio:9000", true},
		{"https URL", "https://s3.example.com", "s3.example.com", true},
		{"http URL", "http://minio:9000", "minio:9000", false},
		{"http with port", "http://localhost:9000", "localhost:9000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ssl := true
			got := stripScheme(tt.endpoint, &ssl)
			if got != tt.wantHost {
				t.Errorf("stripScheme(%q) host = %q, want %q", tt.endpoint, got, tt.wantHost)
			}
			if ssl != tt.wantSSL {
				t.Errorf("stripScheme(%q) ssl = %v, want %v", tt.endpoint, ssl, tt.wantSSL)
			}
		})
	}
}

func TestLogoKey_Format(t *testing.T) {
	tests := []struct {
		profileID string
		filename  string
		want      string
	}{
		{"owner", "logo.png", "profiles/owner/logo.png"},
		{"owner", "Company Logo.JPEG", "profiles/owner/logo.jpeg"},
		{"agency", "noext", "profiles/agency/logo"},
	}

	for _, tt := range tests {
		if got := logoKey(tt.profileID, tt.filename); got != tt.want {
			t.Errorf("logoKey(%q, %q) = %q, want %q", tt.profileID, tt.filename, got, tt.want)
		}
	}
}
