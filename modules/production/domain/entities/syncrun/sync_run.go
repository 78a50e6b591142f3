package syncrun

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

var ErrSyncRunNotFound = errors.New("sync run not found")

// SyncRun is the history record of one synchronizer run.
type SyncRun struct {
	ID            uuid.UUID
	SyncBatchID   string
	Status        Status
	PartsCreated  int
	PartsUpdated  int
	LogsCreated   int
	LogsUpdated   int
	SkippedCount  int
	ErrorCount    int
	FatalError    *string
	DurationMs    int64
	TriggeredByID *uint
	StartedAt     time.Time
	FinishedAt    time.Time
}

type FindParams struct {
	Status *Status
	Limit  int
	Offset int
}

type Repository interface {
	GetByBatchID(ctx context.Context, batchID string) (*SyncRun, error)
	List(ctx context.Context, params *FindParams) ([]*SyncRun, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, run *SyncRun) error
}
