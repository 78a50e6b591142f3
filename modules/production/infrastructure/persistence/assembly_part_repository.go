package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence/models"
	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/repo"
)

const (
	assemblyPartColumns = `id, project_id, building_id, part_designation, assembly_mark, sub_assembly_mark,
		part_mark, quantity, name, profile, grade, length_mm, net_area_per_unit, net_area_total,
		single_part_weight, net_weight_total, status, source, external_ref, created_by_id,
		created_at, updated_at`
	selectAssemblyPartQuery = `SELECT ` + assemblyPartColumns + ` FROM assembly_parts`
)

type AssemblyPartRepository struct{}

func NewAssemblyPartRepository() assemblypart.Repository {
	return &AssemblyPartRepository{}
}

func scanAssemblyPart(row pgx.Row) (*models.AssemblyPart, error) {
	var m models.AssemblyPart
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.BuildingID,
		&m.PartDesignation,
		&m.AssemblyMark,
		&m.SubAssemblyMark,
		&m.PartMark,
		&m.Quantity,
		&m.Name,
		&m.Profile,
		&m.Grade,
		&m.LengthMm,
		&m.NetAreaPerUnit,
		&m.NetAreaTotal,
		&m.SinglePartWeight,
		&m.NetWeightTotal,
		&m.Status,
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

func (r *AssemblyPartRepository) GetByDesignation(ctx context.Context, projectID uuid.UUID, designation string) (*assemblypart.AssemblyPart, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanAssemblyPart(tx.QueryRow(ctx,
		selectAssemblyPartQuery+` WHERE project_id = $1 AND part_designation = $2`,
		projectID, designation,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assemblypart.ErrPartNotFound
		}
		return nil, err
	}
	return toDomainAssemblyPart(m), nil
}

func (r *AssemblyPartRepository) FindByDesignations(ctx context.Context, designations []string) ([]*assemblypart.AssemblyPart, error) {
	if len(designations) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		selectAssemblyPartQuery+` WHERE part_designation = ANY($1) ORDER BY part_designation, project_id`,
		designations,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*assemblypart.AssemblyPart
	for rows.Next() {
		m, err := scanAssemblyPart(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, toDomainAssemblyPart(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AssemblyPartRepository) Count(ctx context.Context, params *assemblypart.CountParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAssemblyPartFilters(params)
	query := `SELECT COUNT(*) FROM assembly_parts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	var count int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AssemblyPartRepository) Create(ctx context.Context, p *assemblypart.AssemblyPart) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	m := toDBAssemblyPart(p)
	_, err = tx.Exec(ctx,
		`INSERT INTO assembly_parts (`+assemblyPartColumns+`) VALUES (`+repo.Placeholders(1, 22)+`)`,
		m.ID, m.ProjectID, m.BuildingID, m.PartDesignation, m.AssemblyMark, m.SubAssemblyMark,
		m.PartMark, m.Quantity, m.Name, m.Profile, m.Grade, m.LengthMm, m.NetAreaPerUnit,
		m.NetAreaTotal, m.SinglePartWeight, m.NetWeightTotal, m.Status, m.Source, m.ExternalRef,
		m.CreatedByID, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *AssemblyPartRepository) Update(ctx context.Context, p *assemblypart.AssemblyPart) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	m := toDBAssemblyPart(p)
	tag, err := tx.Exec(ctx, `
		UPDATE assembly_parts SET
			building_id = $2, assembly_mark = $3, sub_assembly_mark = $4, part_mark = $5,
			quantity = $6, name = $7, profile = $8, grade = $9, length_mm = $10,
			net_area_per_unit = $11, net_area_total = $12, single_part_weight = $13,
			net_weight_total = $14, source = $15, external_ref = $16, updated_at = $17
		WHERE id = $1`,
		m.ID, m.BuildingID, m.AssemblyMark, m.SubAssemblyMark, m.PartMark,
		m.Quantity, m.Name, m.Profile, m.Grade, m.LengthMm,
		m.NetAreaPerUnit, m.NetAreaTotal, m.SinglePartWeight,
		m.NetWeightTotal, m.Source, m.ExternalRef, m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return assemblypart.ErrPartNotFound
	}
	return nil
}

func (r *AssemblyPartRepository) DeleteBySource(ctx context.Context, projectID uuid.UUID, source string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		DELETE FROM assembly_parts p
		WHERE p.project_id = $1 AND p.source = $2
		  AND NOT EXISTS (SELECT 1 FROM production_logs l WHERE l.assembly_part_id = p.id)`,
		projectID, source,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildAssemblyPartFilters(params *assemblypart.CountParams) ([]string, []any) {
	var where []string
	var args []any
	if params == nil {
		return where, args
	}
	argPos := 1
	if params.ProjectID != uuid.Nil {
		where = append(where, fmt.Sprintf("project_id = $%d", argPos))
		args = append(args, params.ProjectID)
		argPos++
	}
	if params.Source != nil {
		where = append(where, fmt.Sprintf("source = $%d", argPos))
		args = append(args, *params.Source)
	}
	return where, args
}
