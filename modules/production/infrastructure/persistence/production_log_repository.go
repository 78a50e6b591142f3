package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence/models"
	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/repo"
)

const (
	productionLogColumns = `id, assembly_part_id, process_type, date_processed, processed_qty, remaining_qty,
		processing_location, processing_team, report_number, qc_status, qc_required, source,
		external_ref, created_by_id, created_at, updated_at`
	selectProductionLogQuery = `SELECT ` + productionLogColumns + ` FROM production_logs`
)

type ProductionLogRepository struct{}

func NewProductionLogRepository() productionlog.Repository {
	return &ProductionLogRepository{}
}

func scanProductionLog(row pgx.Row) (*models.ProductionLog, error) {
	var m models.ProductionLog
	err := row.Scan(
		&m.ID,
		&m.AssemblyPartID,
		&m.ProcessType,
		&m.DateProcessed,
		&m.ProcessedQty,
		&m.RemainingQty,
		&m.ProcessingLocation,
		&m.ProcessingTeam,
		&m.ReportNumber,
		&m.QCStatus,
		&m.QCRequired,
		&m.Source,
		&m.ExternalRef,
		&m.CreatedByID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ProductionLogRepository) GetByExternalRef(ctx context.Context, source, externalRef string) (*productionlog.ProductionLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanProductionLog(tx.QueryRow(ctx,
		selectProductionLogQuery+` WHERE source = $1 AND external_ref = $2`,
		source, externalRef,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, productionlog.ErrLogNotFound
		}
		return nil, err
	}
	return toDomainProductionLog(m), nil
}

func (r *ProductionLogRepository) ExistingExternalRefs(ctx context.Context, source string, refs []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(refs) == 0 {
		return out, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT external_ref FROM production_logs WHERE source = $1 AND external_ref = ANY($2)`,
		source, refs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		out[ref] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductionLogRepository) SumProcessedQty(ctx context.Context, partID uuid.UUID, processType string) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var sum int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(processed_qty), 0) FROM production_logs WHERE assembly_part_id = $1 AND process_type = $2`,
		partID, processType,
	).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *ProductionLogRepository) ListByPart(ctx context.Context, partID uuid.UUID) ([]*productionlog.ProductionLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		selectProductionLogQuery+` WHERE assembly_part_id = $1 ORDER BY created_at, id`,
		partID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*productionlog.ProductionLog
	for rows.Next() {
		m, err := scanProductionLog(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, toDomainProductionLog(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ProductionLogRepository) Count(ctx context.Context, params *productionlog.CountParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var where []string
	var args []any
	argPos := 1
	if params != nil && params.ProjectID != uuid.Nil {
		where = append(where, fmt.Sprintf("p.project_id = $%d", argPos))
		args = append(args, params.ProjectID)
		argPos++
	}
	if params != nil && params.Source != nil {
		where = append(where, fmt.Sprintf("l.source = $%d", argPos))
		args = append(args, *params.Source)
	}
	query := `SELECT COUNT(*) FROM production_logs l JOIN assembly_parts p ON p.id = l.assembly_part_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	var count int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProductionLogRepository) Create(ctx context.Context, l *productionlog.ProductionLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	m := toDBProductionLog(l)
	_, err = tx.Exec(ctx,
		`INSERT INTO production_logs (`+productionLogColumns+`) VALUES (`+repo.Placeholders(1, 16)+`)`,
		m.ID, m.AssemblyPartID, m.ProcessType, m.DateProcessed, m.ProcessedQty, m.RemainingQty,
		m.ProcessingLocation, m.ProcessingTeam, m.ReportNumber, m.QCStatus, m.QCRequired, m.Source,
		m.ExternalRef, m.CreatedByID, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// Update writes the event fields a replay may change; remaining_qty is
// fixed at creation.
func (r *ProductionLogRepository) Update(ctx context.Context, l *productionlog.ProductionLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	l.UpdatedAt = time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE production_logs SET
			processed_qty = $2, date_processed = $3, processing_location = $4,
			processing_team = $5, report_number = $6, updated_at = $7
		WHERE id = $1`,
		l.ID, l.ProcessedQty, l.DateProcessed, l.Location, l.Team, l.ReportNumber, l.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return productionlog.ErrLogNotFound
	}
	return nil
}

func (r *ProductionLogRepository) DeleteBySource(ctx context.Context, projectID uuid.UUID, source string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		DELETE FROM production_logs l
		USING assembly_parts p
		WHERE p.id = l.assembly_part_id AND p.project_id = $1 AND l.source = $2`,
		projectID, source,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
