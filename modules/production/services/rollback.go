package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/pkg/composables"
)

type RollbackResult struct {
	ProjectNumber string `json:"projectNumber"`
	Source        string `json:"source"`
	LogsDeleted   int64  `json:"logsDeleted"`
	PartsDeleted  int64  `json:"partsDeleted"`
	// PartsRetained counts source-tagged parts kept because logs from other
	// sources still reference them.
	PartsRetained int64 `json:"partsRetained"`
}

// RollbackPreview is what RollbackProject would remove at most.
type RollbackPreview struct {
	ProjectNumber string `json:"projectNumber"`
	Source        string `json:"source"`
	TaggedLogs    int64  `json:"taggedLogs"`
	TaggedParts   int64  `json:"taggedParts"`
}

func (s *PtsSyncService) projectByNumber(ctx context.Context, number string) (*project.Project, error) {
	p, err := s.repos.Projects.GetByNumber(ctx, number)
	if errors.Is(err, project.ErrProjectNotFound) {
		return nil, ErrProjectNotFound.Wrapf("%s", number)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load project %s", number)
	}
	return p, nil
}

func (s *PtsSyncService) PreviewRollback(ctx context.Context, projectNumber string) (*RollbackPreview, error) {
	p, err := s.projectByNumber(ctx, projectNumber)
	if err != nil {
		return nil, err
	}
	source := s.cfg.Source
	preview := &RollbackPreview{ProjectNumber: p.Number, Source: source}
	if preview.TaggedLogs, err = s.repos.Logs.Count(ctx, &productionlog.CountParams{ProjectID: p.ID, Source: &source}); err != nil {
		return nil, errors.Wrap(err, "count tagged logs")
	}
	if preview.TaggedParts, err = s.repos.Parts.Count(ctx, &assemblypart.CountParams{ProjectID: p.ID, Source: &source}); err != nil {
		return nil, errors.Wrap(err, "count tagged parts")
	}
	return preview, nil
}

// RollbackProject deletes the project's source-tagged logs and then its
// source-tagged parts in one transaction. Untagged records are never
// touched, and tagged parts still referenced by untagged logs are kept.
func (s *PtsSyncService) RollbackProject(ctx context.Context, projectNumber string) (*RollbackResult, error) {
	lease, err := s.locker.TryLock(ctx, LockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			composables.UseLogger(ctx).WithError(err).Warn("failed to release run lock")
		}
	}()

	ctx, span := s.tracer.Start(ctx, "pts.RollbackProject")
	defer span.End()

	p, err := s.projectByNumber(ctx, projectNumber)
	if err != nil {
		return nil, err
	}
	source := s.cfg.Source
	result := &RollbackResult{ProjectNumber: p.Number, Source: source}
	err = composables.InTxIfPool(ctx, func(txCtx context.Context) error {
		tagged, err := s.repos.Parts.Count(txCtx, &assemblypart.CountParams{ProjectID: p.ID, Source: &source})
		if err != nil {
			return errors.Wrap(err, "count tagged parts")
		}
		if result.LogsDeleted, err = s.repos.Logs.DeleteBySource(txCtx, p.ID, source); err != nil {
			return errors.Wrap(err, "delete logs")
		}
		if result.PartsDeleted, err = s.repos.Parts.DeleteBySource(txCtx, p.ID, source); err != nil {
			return errors.Wrap(err, "delete parts")
		}
		result.PartsRetained = tagged - result.PartsDeleted
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"project_number": p.Number,
		"logs_deleted":   result.LogsDeleted,
		"parts_deleted":  result.PartsDeleted,
		"parts_retained": result.PartsRetained,
	}).Info("pts rollback finished")
	if s.publisher != nil {
		s.publisher.Publish(&RollbackCompletedEvent{Result: result})
	}
	return result, nil
}
