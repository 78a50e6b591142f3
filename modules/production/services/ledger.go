package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
)

// RemainingQty is the unprocessed quantity after newQty is recorded,
// floored at zero.
func RemainingQty(nominal, alreadyProcessed, newQty int) int {
	return max(0, nominal-alreadyProcessed-newQty)
}

// Ledger computes remaining quantities from the stored logs. The read and
// the following write are not atomic; callers serialize runs.
type Ledger struct {
	logs productionlog.Repository
}

func NewLedger(logs productionlog.Repository) *Ledger {
	return &Ledger{logs: logs}
}

func (l *Ledger) Remaining(ctx context.Context, part *assemblypart.AssemblyPart, processType string, newQty int) (int, error) {
	already, err := l.logs.SumProcessedQty(ctx, part.ID, processType)
	if err != nil {
		return 0, errors.Wrapf(err, "sum processed qty for %s/%s", part.Designation, processType)
	}
	return RemainingQty(part.Quantity, already, newQty), nil
}
