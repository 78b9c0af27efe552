package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// CleanupService purges clips soft-deleted longer than the retention period.
type CleanupService struct {
	Pool          PgxPool
	Store         domain.ObjectStore
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a new cleanup service. store may be nil; when
// set, objects of purged clips are removed again in case the removal at
// delete time failed.
func NewCleanupService(pool PgxPool, store domain.ObjectStore, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &CleanupService{Pool: pool, Store: store, RetentionDays: retentionDays, now: time.Now}
}

// PurgeDeleted hard-deletes expired soft-deleted clips and returns how many
// rows were removed.
func (s *CleanupService) PurgeDeleted(ctx context.Context) (int64, error) {
	ctx, span := startSpan(ctx, "repo.clips", "clips.PurgeDeleted", "DELETE", "audio_file")
	defer span.End()

	cutoff := s.now().UTC().AddDate(0, 0, -s.RetentionDays)
	rows, err := s.Pool.Query(ctx, `DELETE FROM audio_file WHERE deleted_at IS NOT NULL AND deleted_at < $1 RETURNING file_key`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=cleanup.purge: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return 0, fmt.Errorf("op=cleanup.purge: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("op=cleanup.purge: %w", err)
	}

	if s.Store != nil {
		for _, key := range keys {
			if err := s.Store.Remove(ctx, key); err != nil {
				slog.Warn("cleanup could not remove object", slog.String("file_key", key), slog.Any("error", err))
			}
		}
	}

	n := int64(len(keys))
	observability.RecordClipsPurged(n)
	slog.Info("data cleanup completed",
		slog.Int64("purged_clips", n),
		slog.Time("cutoff", cutoff),
	)
	return n, nil
}

// RunPeriodic starts a periodic cleanup job
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour // daily by default
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.PurgeDeleted(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.PurgeDeleted(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
