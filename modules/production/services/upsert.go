package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
)

// Upserter writes parts and logs keyed by their natural or external keys,
// so replaying the same rows never duplicates anything.
type Upserter struct {
	parts  assemblypart.Repository
	logs   productionlog.Repository
	ledger *Ledger
	now    func() time.Time
}

func NewUpserter(parts assemblypart.Repository, logs productionlog.Repository) *Upserter {
	return &Upserter{
		parts:  parts,
		logs:   logs,
		ledger: NewLedger(logs),
		now:    time.Now,
	}
}

// UpsertPart creates the part or updates the one stored under
// (ProjectID, Designation). A stored part equal to incoming is left
// untouched and still reported as updated. The stored state is returned.
func (u *Upserter) UpsertPart(ctx context.Context, incoming *assemblypart.AssemblyPart) (Action, *assemblypart.AssemblyPart, error) {
	if incoming.Status == "" {
		incoming.Status = assemblypart.StatusNotStarted
	}
	if err := incoming.Validate(); err != nil {
		return "", nil, errors.Wrapf(err, "invalid part %s", incoming.Designation)
	}

	existing, err := u.parts.GetByDesignation(ctx, incoming.ProjectID, incoming.Designation)
	switch {
	case errors.Is(err, assemblypart.ErrPartNotFound):
		now := u.now().UTC()
		incoming.ID = uuid.New()
		incoming.Status = assemblypart.StatusNotStarted
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := u.parts.Create(ctx, incoming); err != nil {
			return "", nil, errors.Wrapf(err, "create part %s", incoming.Designation)
		}
		return ActionCreated, incoming, nil
	case err != nil:
		return "", nil, errors.Wrapf(err, "load part %s", incoming.Designation)
	}

	incoming.ID = existing.ID
	if existing.Equal(incoming) {
		return ActionUpdated, existing, nil
	}
	if err := u.parts.Update(ctx, incoming); err != nil {
		return "", nil, errors.Wrapf(err, "update part %s", incoming.Designation)
	}
	return ActionUpdated, incoming, nil
}

// UpsertLog creates the log or updates the one stored under
// (Source, ExternalRef). New logs get a fresh RemainingQty from the ledger;
// existing ones only change their mutable event fields. When dateDefaulted
// is set, an existing log keeps its stored date.
func (u *Upserter) UpsertLog(ctx context.Context, part *assemblypart.AssemblyPart, incoming *productionlog.ProductionLog, dateDefaulted bool) (Action, error) {
	if incoming.Source == nil || incoming.ExternalRef == nil {
		return "", errors.New("production log without provenance")
	}
	existing, err := u.logs.GetByExternalRef(ctx, *incoming.Source, *incoming.ExternalRef)
	switch {
	case errors.Is(err, productionlog.ErrLogNotFound):
		remaining, err := u.ledger.Remaining(ctx, part, incoming.ProcessType, incoming.ProcessedQty)
		if err != nil {
			return "", err
		}
		now := u.now().UTC()
		incoming.ID = uuid.New()
		incoming.PartID = part.ID
		incoming.RemainingQty = remaining
		incoming.QCStatus = productionlog.QCNotRequired
		incoming.QCRequired = false
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := u.logs.Create(ctx, incoming); err != nil {
			return "", errors.Wrapf(err, "create log %s", *incoming.ExternalRef)
		}
		return ActionCreated, nil
	case err != nil:
		return "", errors.Wrapf(err, "load log %s", *incoming.ExternalRef)
	}

	if dateDefaulted {
		incoming.DateProcessed = existing.DateProcessed
	}
	if existing.SameEvent(incoming) {
		return ActionUpdated, nil
	}
	existing.ProcessedQty = incoming.ProcessedQty
	existing.DateProcessed = incoming.DateProcessed
	existing.Location = incoming.Location
	existing.Team = incoming.Team
	existing.ReportNumber = incoming.ReportNumber
	if err := u.logs.Update(ctx, existing); err != nil {
		return "", errors.Wrapf(err, "update log %s", *incoming.ExternalRef)
	}
	return ActionUpdated, nil
}
