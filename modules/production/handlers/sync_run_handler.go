package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
	"github.com/iota-uz/pts-sync/pkg/composables"
)

// SyncRunHandler records one history row per finished sync run.
type SyncRunHandler struct {
	pool   *pgxpool.Pool
	repo   syncrun.Repository
	logger *logrus.Logger
}

func NewSyncRunHandler(pool *pgxpool.Pool, repo syncrun.Repository, logger *logrus.Logger) *SyncRunHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SyncRunHandler{pool: pool, repo: repo, logger: logger}
}

func RegisterSyncRunHandler(app application.Application, repo syncrun.Repository) *SyncRunHandler {
	h := NewSyncRunHandler(app.DB(), repo, app.Logger())
	app.EventPublisher().Subscribe(h.OnSyncCompleted)
	return h
}

// RunStatus classifies a finished run: a fatal error fails it, row errors
// make it partial.
func RunStatus(result *services.SyncResult, err error) syncrun.Status {
	switch {
	case err != nil || result.FatalError != "":
		return syncrun.StatusFailed
	case !result.Success:
		return syncrun.StatusPartial
	default:
		return syncrun.StatusSuccess
	}
}

func RunFromResult(result *services.SyncResult, triggeredBy *uint, err error) *syncrun.SyncRun {
	run := &syncrun.SyncRun{
		SyncBatchID:   result.SyncBatchID,
		Status:        RunStatus(result, err),
		PartsCreated:  result.PartsCreated,
		PartsUpdated:  result.PartsUpdated,
		LogsCreated:   result.LogsCreated,
		LogsUpdated:   result.LogsUpdated,
		SkippedCount:  result.SkippedCount(),
		ErrorCount:    result.ErrorCount(),
		DurationMs:    result.DurationMs,
		TriggeredByID: triggeredBy,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	}
	if result.FatalError != "" {
		fatal := result.FatalError
		run.FatalError = &fatal
	}
	return run
}

func (h *SyncRunHandler) OnSyncCompleted(event *services.SyncCompletedEvent) {
	if event == nil || event.Result == nil {
		return
	}
	ctx := context.Background()
	if h.pool != nil {
		ctx = composables.WithPool(ctx, h.pool)
	}
	run := RunFromResult(event.Result, event.TriggeredByID, event.Err)
	if err := h.repo.Create(ctx, run); err != nil {
		h.logger.WithError(err).
			WithField("sync_batch_id", run.SyncBatchID).
			Warn("failed to persist sync run")
	}
}
