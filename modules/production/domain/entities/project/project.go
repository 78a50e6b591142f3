package project

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrProjectNotFound = errors.New("project not found")

// Project is owned by the surrounding ERP; the sync engine only reads it.
type Project struct {
	ID     uuid.UUID
	Number string
	Name   string
}

type Repository interface {
	GetByNumber(ctx context.Context, number string) (*Project, error)
	// List returns all projects, or only the given numbers when any are passed.
	List(ctx context.Context, numbers ...string) ([]*Project, error)
	Create(ctx context.Context, p *Project) error
}
