package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// AuditCleaner deletes audit entries older than a number of days.
type AuditCleaner interface {
	Cleanup(ctx context.Context, days int) (int64, error)
}

// AuditCleanupWorker enforces audit log retention on a fixed interval.
type AuditCleanupWorker struct {
	cleaner         AuditCleaner
	retentionDays   int
	cleanupInterval time.Duration
}

func NewAuditCleanupWorker(cleaner AuditCleaner, retentionDays int, cleanupInterval time.Duration) *AuditCleanupWorker {
	if cleanupInterval <= 0 {
		cleanupInterval = 24 * time.Hour
	}
	return &AuditCleanupWorker{
		cleaner:         cleaner,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
	}
}

// Start runs one pass immediately and then one per interval until ctx ends.
// A non-positive retention keeps logs forever.
func (w *AuditCleanupWorker) Start(ctx context.Context) {
	if w.retentionDays <= 0 {
		log.Info().Msg("audit retention disabled")
		return
	}

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("audit cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce deletes logs older than the retention period.
func (w *AuditCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.cleaner.Cleanup(ctx, w.retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	if n > 0 {
		log.Info().Int64("deleted", n).Int("retention_days", w.retentionDays).Msg("cleaned up audit logs")
	}
	return n, nil
}
