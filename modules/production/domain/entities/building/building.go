package building

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Building struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Designation string
	Name        string
	CreatedAt   time.Time
}

type FindParams struct {
	ProjectIDs []uuid.UUID
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Building, error)
	Create(ctx context.Context, b *Building) error
}
