package productionlog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const QCNotRequired = "Not Required"

var ErrLogNotFound = errors.New("production log not found")

type ProductionLog struct {
	ID            uuid.UUID
	PartID        uuid.UUID
	ProcessType   string
	DateProcessed time.Time
	ProcessedQty  int
	RemainingQty  int
	Location      *string
	Team          *string
	ReportNumber  *string
	QCStatus      string
	QCRequired    bool
	Source        *string
	ExternalRef   *string
	CreatedByID   *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SameEvent reports whether the mutable event fields match.
func (l *ProductionLog) SameEvent(o *ProductionLog) bool {
	return l.ProcessedQty == o.ProcessedQty &&
		l.DateProcessed.Equal(o.DateProcessed) &&
		equalPtr(l.Location, o.Location) &&
		equalPtr(l.Team, o.Team) &&
		equalPtr(l.ReportNumber, o.ReportNumber)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CountParams filters by the owning part's project and optionally by source.
type CountParams struct {
	ProjectID uuid.UUID
	Source    *string
}

type Repository interface {
	GetByExternalRef(ctx context.Context, source, externalRef string) (*ProductionLog, error)
	// ExistingExternalRefs returns the subset of refs already stored for source.
	ExistingExternalRefs(ctx context.Context, source string, refs []string) (map[string]struct{}, error)
	SumProcessedQty(ctx context.Context, partID uuid.UUID, processType string) (int, error)
	ListByPart(ctx context.Context, partID uuid.UUID) ([]*ProductionLog, error)
	Count(ctx context.Context, params *CountParams) (int64, error)
	Create(ctx context.Context, log *ProductionLog) error
	Update(ctx context.Context, log *ProductionLog) error
	// DeleteBySource removes logs tagged with source whose part belongs to projectID.
	DeleteBySource(ctx context.Context, projectID uuid.UUID, source string) (int64, error)
}
