package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/crm/internal/objectstore"
)

// BackupStore defines the store operations needed by the backup worker.
type BackupStore interface {
	GenerateBackup(ctx context.Context) (string, error)
}

// BackupWorker writes periodic database backups and ships them to object
// storage.
type BackupWorker struct {
	store    BackupStore
	uploader objectstore.Uploader
	interval time.Duration
}

// NewBackupWorker creates a worker with the given store and interval.
// The uploader parameter is optional; if nil, backups stay on local disk.
func NewBackupWorker(store BackupStore, interval time.Duration, uploader objectstore.Uploader) *BackupWorker {
	return &BackupWorker{
		store:    store,
		uploader: uploader,
		interval: interval,
	}
}

// Run starts the worker loop. Backs up immediately on start, then on each
// interval. Respects context cancellation for graceful shutdown.
func (w *BackupWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "backup",
		"action", "worker_started",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.backup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "backup",
				"action", "worker_stopped",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.backup(ctx)
		}
	}
}

// backup runs one cycle. Returns true if the local backup was written.
func (w *BackupWorker) backup(ctx context.Context) bool {
	slog.Info("backup started",
		"component", "worker",
		"worker", "backup",
		"action", "backup_start",
	)

	path, err := w.store.GenerateBackup(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false // Graceful shutdown, don't log as error
		}
		slog.Warn("backup failed",
			"component", "worker",
			"worker", "backup",
			"action", "backup_failed",
			"error", err,
		)
		return false
	}

	if w.uploader != nil {
		w.upload(ctx, path)
	}
	return true
}

// upload ships the backup to object storage.
// Upload failures are logged as warnings; the local backup remains valid.
func (w *BackupWorker) upload(ctx context.Context, path string) {
	if err := w.uploader.UploadBackup(ctx, path); err != nil {
		slog.Warn("backup upload failed",
			"component", "worker",
			"worker", "backup",
			"action", "backup_upload_failed",
			"error", err,
		)
		return
	}

	slog.Info("backup uploaded",
		"component", "worker",
		"worker", "backup",
		"action", "backup_uploaded",
		"path", path,
	)
}
