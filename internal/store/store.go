package store

import (
	"context"
	"time"

	"github.com/hyperengineering/crm/internal/types"
)

// Store defines the persistence contract for the CRM.
// Every mutating method writes its change log entry in the same transaction.
type Store interface {
	ListClients(ctx context.Context) ([]types.Client, error)
	GetClient(ctx context.Context, id string) (*types.Client, error)
	SaveClient(ctx context.Context, client *types.Client, sourceID string) error
	DeleteClient(ctx context.Context, id, sourceID string) error

	ListSiteTypes(ctx context.Context) ([]types.SiteType, error)
	GetSiteType(ctx context.Context, id string) (*types.SiteType, error)
	SaveSiteType(ctx context.Context, siteType *types.SiteType, sourceID string) error
	DeleteSiteType(ctx context.Context, id string, now time.Time, sourceID string) error

	GetProfile(ctx context.Context, id string) (*types.Profile, error)
	SaveProfile(ctx context.Context, profile *types.Profile, sourceID string) error

	GetChangeLogAfter(ctx context.Context, afterSeq int64, limit int) ([]types.ChangeLogEntry, error)
	GetLatestSequence(ctx context.Context) (int64, error)

	GetStats(ctx context.Context) (*types.StoreStats, error)
	SchemaVersion(ctx context.Context) (int64, error)
	GenerateBackup(ctx context.Context) (string, error)
	Close() error
}
