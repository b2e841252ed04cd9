// Package jobs defines background task types and the Asynq worker wiring.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMarketplaceSync pushes pending listings to every channel.
	TaskMarketplaceSync = "marketplace:sync"
	// TaskAuditRetention prunes audit rows past the retention window.
	TaskAuditRetention = "audit:retention"
)

// MarketplaceSyncPayload carries scheduling metadata for a sync pass.
type MarketplaceSyncPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewMarketplaceSyncTask constructs an Asynq task for a full listing sync.
func NewMarketplaceSyncTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(MarketplaceSyncPayload{RequestedAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMarketplaceSync, body, asynq.Queue(QueueDefault)), nil
}

// NewMarketplaceSyncHandler builds the handler for TaskMarketplaceSync. The
// run callback keeps this package free of a marketplace import.
func NewMarketplaceSyncHandler(logger *slog.Logger, run func(ctx context.Context) (synced, failed int, err error)) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MarketplaceSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		synced, failed, err := run(ctx)
		if err != nil {
			logger.Error("marketplace sync", slog.Any("error", err))
			return err
		}
		logger.Info("marketplace sync done",
			slog.Int("synced", synced),
			slog.Int("failed", failed),
			slog.Time("requested_at", payload.RequestedAt))
		return nil
	}
}

// AuditRetentionPayload names the retention window for one sweep.
type AuditRetentionPayload struct {
	Keep time.Duration `json:"keep"`
}

// NewAuditRetentionTask constructs an Asynq task for the retention sweep.
func NewAuditRetentionTask(keep time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(AuditRetentionPayload{Keep: keep})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, body, asynq.Queue(QueueDefault)), nil
}

// AuditPruner deletes audit rows older than a cutoff. Implemented by
// shared.AuditLogger.
type AuditPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewAuditRetentionHandler builds the handler for TaskAuditRetention.
func NewAuditRetentionHandler(logger *slog.Logger, pruner AuditPruner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditRetentionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Keep <= 0 {
			payload.Keep = 90 * 24 * time.Hour
		}
		deleted, err := pruner.PruneBefore(ctx, time.Now().Add(-payload.Keep))
		if err != nil {
			logger.Error("audit retention", slog.Any("error", err))
			return err
		}
		logger.Info("audit retention done", slog.Int64("deleted", deleted))
		return nil
	}
}
