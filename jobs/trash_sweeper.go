package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vaultdrive/services"
)

// TrashSweeper periodically purges trashed items whose retention window has
// elapsed.
type TrashSweeper struct {
	trash    *services.TrashService
	logger   *zap.SugaredLogger
	interval time.Duration
}

func NewTrashSweeper(trash *services.TrashService, logger *zap.SugaredLogger, interval time.Duration) *TrashSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TrashSweeper{
		trash:    trash,
		logger:   logger,
		interval: interval,
	}
}

// Start runs the sweep loop until ctx is cancelled. One sweep runs
// immediately so a restarted process does not wait a full interval.
func (ts *TrashSweeper) Start(ctx context.Context) {
	ts.logger.Infow("trash sweeper started", "interval", ts.interval)

	ts.runSweep(ctx)

	ticker := time.NewTicker(ts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.logger.Infow("trash sweeper stopped")
			return
		case <-ticker.C:
			ts.runSweep(ctx)
		}
	}
}

func (ts *TrashSweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	purged, err := ts.trash.PurgeExpiredTrash(sweepCtx)
	if err != nil {
		ts.logger.Errorw("trash sweep failed", "error", err)
		return
	}
	if purged > 0 {
		ts.logger.Infow("trash sweep completed", "purged", purged)
	}
}
