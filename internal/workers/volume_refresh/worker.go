// Package volume_refresh periodically recomputes community statuses so
// the cached team-volume figures users see stay reasonably fresh.
// Crediting is never triggered from here; rounds and daily stipends stay
// operator-driven.
package volume_refresh

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/softstake/softstake_service/internal/domain/entities"
	"github.com/softstake/softstake_service/pkg/logger"
)

// StatusLister enumerates users with a community status row
type StatusLister interface {
	ListUserIDsWithLevel(ctx context.Context, min int) ([]uuid.UUID, error)
}

// StatusRefresher recomputes and persists one user's classification
type StatusRefresher interface {
	RefreshStatus(ctx context.Context, userID uuid.UUID) (*entities.CommunityStatusView, error)
}

// Worker refreshes team volumes on a cron schedule
type Worker struct {
	lister    StatusLister
	refresher StatusRefresher
	schedule  string
	cron      *cron.Cron
	logger    *logger.Logger
}

// NewWorker creates a volume refresh worker with the given cron schedule
func NewWorker(lister StatusLister, refresher StatusRefresher, schedule string, log *logger.Logger) *Worker {
	return &Worker{
		lister:    lister,
		refresher: refresher,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    log,
	}
}

// Start registers the schedule and begins running. It returns an error
// only for an invalid cron expression.
func (w *Worker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		w.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("volume refresh worker started", "schedule", w.schedule)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (w *Worker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info("volume refresh worker stopped")
}

// Shutdown implements the graceful shutdown contract
func (w *Worker) Shutdown(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	userIDs, err := w.lister.ListUserIDsWithLevel(ctx, 0)
	if err != nil {
		w.logger.Error("volume refresh: listing users failed", "error", err)
		return
	}

	refreshed := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.refresher.RefreshStatus(ctx, userID); err != nil {
			w.logger.Warn("volume refresh failed for user", "user_id", userID, "error", err)
			continue
		}
		refreshed++
	}

	w.logger.Info("volume refresh completed", "users", len(userIDs), "refreshed", refreshed)
}
