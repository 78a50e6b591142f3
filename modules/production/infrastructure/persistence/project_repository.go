package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence/models"
	"github.com/iota-uz/pts-sync/pkg/composables"
)

const selectProjectQuery = `SELECT id, project_number, name FROM projects`

type ProjectRepository struct{}

func NewProjectRepository() project.Repository {
	return &ProjectRepository{}
}

func (r *ProjectRepository) GetByNumber(ctx context.Context, number string) (*project.Project, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row models.Project
	if err := tx.QueryRow(ctx, selectProjectQuery+` WHERE project_number = $1`, number).Scan(
		&row.ID,
		&row.ProjectNumber,
		&row.Name,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, err
	}
	return toDomainProject(&row), nil
}

func (r *ProjectRepository) List(ctx context.Context, numbers ...string) ([]*project.Project, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	query := selectProjectQuery
	var args []any
	if len(numbers) > 0 {
		query += ` WHERE project_number = ANY($1)`
		args = append(args, numbers)
	}
	query += ` ORDER BY project_number`

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*project.Project
	for rows.Next() {
		var row models.Project
		if err := rows.Scan(&row.ID, &row.ProjectNumber, &row.Name); err != nil {
			return nil, err
		}
		results = append(results, toDomainProject(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO projects (id, project_number, name) VALUES ($1, $2, $3)`,
		p.ID, p.Number, p.Name,
	)
	return err
}
