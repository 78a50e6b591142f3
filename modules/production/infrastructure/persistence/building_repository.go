package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence/models"
	"github.com/iota-uz/pts-sync/pkg/composables"
)

type BuildingRepository struct{}

func NewBuildingRepository() building.Repository {
	return &BuildingRepository{}
}

func (r *BuildingRepository) List(ctx context.Context, params *building.FindParams) ([]*building.Building, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, project_id, designation, name, created_at FROM buildings`
	var args []any
	if params != nil && len(params.ProjectIDs) > 0 {
		query += ` WHERE project_id = ANY($1)`
		args = append(args, params.ProjectIDs)
	}
	query += ` ORDER BY created_at, designation`

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*building.Building
	for rows.Next() {
		var row models.Building
		if err := rows.Scan(&row.ID, &row.ProjectID, &row.Designation, &row.Name, &row.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, toDomainBuilding(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *BuildingRepository) Create(ctx context.Context, b *building.Building) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO buildings (id, project_id, designation, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.ProjectID, b.Designation, b.Name, b.CreatedAt,
	)
	return err
}
