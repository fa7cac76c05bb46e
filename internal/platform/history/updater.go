package history

import (
	"context"
	"time"

	"github.com/mkuiper/bankboard/pkg/logger"
)

// DefaultSnapshotInterval is the default interval between snapshot cycles.
const DefaultSnapshotInterval = 24 * time.Hour

// Updater periodically captures account snapshots in the background.
type Updater struct {
	service  *Service
	interval time.Duration
	logger   *logger.Logger
}

// NewUpdater creates a snapshot updater.
func NewUpdater(service *Service, interval time.Duration, log *logger.Logger) *Updater {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &Updater{
		service:  service,
		interval: interval,
		logger:   log.WithField("component", "snapshot_updater"),
	}
}

// Run starts the updater and runs until the context is cancelled.
func (u *Updater) Run(ctx context.Context) {
	u.logger.Info("snapshot updater started", "interval", u.interval)

	// Run immediately on start
	u.snapshot(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("snapshot updater stopped")
			return
		case <-ticker.C:
			u.snapshot(ctx)
		}
	}
}

func (u *Updater) snapshot(ctx context.Context) {
	count, err := u.service.Snapshot(ctx)
	if err != nil {
		u.logger.Error("snapshot cycle failed", "error", err)
		return
	}
	u.logger.Info("snapshot cycle completed", "accounts", count)
}

// RunOnce runs a single snapshot cycle (for testing and manual triggers).
func (u *Updater) RunOnce(ctx context.Context) {
	u.snapshot(ctx)
}
