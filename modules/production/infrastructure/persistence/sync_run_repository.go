package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence/models"
	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/repo"
)

const (
	syncRunColumns = `id, sync_batch_id, status, parts_created, parts_updated, logs_created, logs_updated,
		skipped_count, error_count, fatal_error, duration_ms, triggered_by_id, started_at, finished_at`
	selectSyncRunQuery = `SELECT ` + syncRunColumns + ` FROM pts_sync_runs`
)

type SyncRunRepository struct{}

func NewSyncRunRepository() syncrun.Repository {
	return &SyncRunRepository{}
}

func scanSyncRun(row pgx.Row) (*models.SyncRun, error) {
	var m models.SyncRun
	if err := row.Scan(
		&m.ID,
		&m.SyncBatchID,
		&m.Status,
		&m.PartsCreated,
		&m.PartsUpdated,
		&m.LogsCreated,
		&m.LogsUpdated,
		&m.SkippedCount,
		&m.ErrorCount,
		&m.FatalError,
		&m.DurationMs,
		&m.TriggeredByID,
		&m.StartedAt,
		&m.FinishedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SyncRunRepository) GetByBatchID(ctx context.Context, batchID string) (*syncrun.SyncRun, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanSyncRun(tx.QueryRow(ctx, selectSyncRunQuery+` WHERE sync_batch_id = $1`, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, syncrun.ErrSyncRunNotFound
		}
		return nil, err
	}
	return toDomainSyncRun(m), nil
}

func (r *SyncRunRepository) List(ctx context.Context, params *syncrun.FindParams) ([]*syncrun.SyncRun, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildSyncRunFilters(params)
	query := selectSyncRunQuery
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at DESC`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*syncrun.SyncRun
	for rows.Next() {
		m, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, toDomainSyncRun(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *SyncRunRepository) Count(ctx context.Context, params *syncrun.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildSyncRunFilters(params)
	query := `SELECT COUNT(*) FROM pts_sync_runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	var count int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SyncRunRepository) Create(ctx context.Context, run *syncrun.SyncRun) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	m := toDBSyncRun(run)
	_, err = tx.Exec(ctx,
		`INSERT INTO pts_sync_runs (`+syncRunColumns+`) VALUES (`+repo.Placeholders(1, 14)+`)`,
		m.ID, m.SyncBatchID, m.Status, m.PartsCreated, m.PartsUpdated, m.LogsCreated, m.LogsUpdated,
		m.SkippedCount, m.ErrorCount, m.FatalError, m.DurationMs, m.TriggeredByID, m.StartedAt, m.FinishedAt,
	)
	return err
}

func buildSyncRunFilters(params *syncrun.FindParams) ([]string, []any) {
	if params == nil || params.Status == nil {
		return nil, nil
	}
	return []string{"status = $1"}, []any{string(*params.Status)}
}
