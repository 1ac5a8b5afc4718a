// Package crm is the single writer over the CRM database. It loads state,
// applies the pipeline reconciliation rules and persists each mutation
// atomically through the store.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/crm/internal/objectstore"
	"github.com/hyperengineering/crm/internal/store"
	"github.com/hyperengineering/crm/internal/types"
)

// Service owns every CRM operation. Mutations are serialized; reads see the
// last committed state.
type Service struct {
	mu           sync.Mutex
	store        store.Store
	uploader     objectstore.Uploader
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	profileID    string
	profileEmail string
	months       int
}

// Option configures a Service.
type Option func(*Service)

// WithUploader sets the object storage used for logo uploads.
func WithUploader(u objectstore.Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithProfile sets the identity of the operator profile.
func WithProfile(id, email string) Option {
	return func(s *Service) {
		s.profileID = id
		s.profileEmail = email
	}
}

// WithReportMonths sets the default dashboard timeline length.
func WithReportMonths(n int) Option {
	return func(s *Service) { s.months = n }
}

// NewService creates a Service over st.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:        st,
		uploader:     &objectstore.NoopUploader{},
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return ulid.Make().String() },
		profileID:    "owner",
		profileEmail: "owner@localhost",
		months:       6,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health summarizes the store for the health endpoint.
func (s *Service) Health(ctx context.Context) (*types.HealthResponse, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	version, err := s.store.SchemaVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get schema version: %w", err)
	}
	return &types.HealthResponse{
		Status:        "healthy",
		ClientCount:   stats.ClientCount,
		ClosedCount:   stats.ClosedCount,
		LastBackup:    stats.LastBackup,
		SchemaVersion: version,
	}, nil
}

// LatestBackup returns a pre-signed download URL for the most recent backup.
// It fails with objectstore.ErrNotConfigured without object storage and with
// store.ErrNotFound before the first backup has been written.
func (s *Service) LatestBackup(ctx context.Context) (*types.BackupResponse, error) {
	url, expiry, err := s.uploader.BackupURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup url: %w", err)
	}
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if stats.LastBackup == nil {
		return nil, fmt.Errorf("no backup written yet: %w", store.ErrNotFound)
	}
	return &types.BackupResponse{
		URL:        url,
		ExpiresAt:  expiry.UTC(),
		LastBackup: *stats.LastBackup,
	}, nil
}

// Activity returns change log entries after the given sequence.
func (s *Service) Activity(ctx context.Context, after int64, limit int) (*types.ActivityResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	// One extra row tells us whether another page exists.
	entries, err := s.store.GetChangeLogAfter(ctx, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("get change log: %w", err)
	}
	latest, err := s.store.GetLatestSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest sequence: %w", err)
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}
	return &types.ActivityResponse{
		Entries:        entries,
		LatestSequence: latest,
		HasMore:        hasMore,
	}, nil
}

// resolveSiteType loads the site type a client points at. An empty id
// resolves to nil; an unknown id is a validation error.
func (s *Service) resolveSiteType(ctx context.Context, id string) (*types.SiteType, error) {
	if id == "" {
		return nil, nil
	}
	st, err := s.store.GetSiteType(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fieldError("site_type_id", "references an unknown site type")
	}
	if err != nil {
		return nil, fmt.Errorf("get site type: %w", err)
	}
	return st, nil
}

// loadClient returns the client or nil when it does not exist.
func (s *Service) loadClient(ctx context.Context, id string) (*types.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}
