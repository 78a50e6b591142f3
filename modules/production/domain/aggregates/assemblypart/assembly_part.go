package assemblypart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/pts-sync/pkg/constants"
)

const StatusNotStarted = "Not Started"

var ErrPartNotFound = errors.New("assembly part not found")

type AssemblyPart struct {
	ID              uuid.UUID
	ProjectID       uuid.UUID `validate:"required"`
	BuildingID      *uuid.UUID
	Designation     string `validate:"required"`
	AssemblyMark    string
	SubAssemblyMark *string
	PartMark        string
	Quantity        int `validate:"min=1"`
	Name            string
	Profile         string
	Grade           *string
	LengthMm        *float64 `validate:"omitempty,gte=0"`
	NetAreaPerUnit  *float64 `validate:"omitempty,gte=0"`
	NetAreaTotal    *float64 `validate:"omitempty,gte=0"`
	SingleWeight    *float64 `validate:"omitempty,gte=0"`
	NetWeightTotal  *float64 `validate:"omitempty,gte=0"`
	Status          string   `validate:"required"`
	Source          *string
	ExternalRef     *string
	CreatedByID     *uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *AssemblyPart) Validate() error {
	return constants.Validate.Struct(p)
}

// Equal compares the fields a sync run writes. Identity, status and
// timestamps are ignored.
func (p *AssemblyPart) Equal(o *AssemblyPart) bool {
	return p.ProjectID == o.ProjectID &&
		equalPtr(p.BuildingID, o.BuildingID) &&
		p.Designation == o.Designation &&
		p.AssemblyMark == o.AssemblyMark &&
		equalPtr(p.SubAssemblyMark, o.SubAssemblyMark) &&
		p.PartMark == o.PartMark &&
		p.Quantity == o.Quantity &&
		p.Name == o.Name &&
		p.Profile == o.Profile &&
		equalPtr(p.Grade, o.Grade) &&
		equalPtr(p.LengthMm, o.LengthMm) &&
		equalPtr(p.NetAreaPerUnit, o.NetAreaPerUnit) &&
		equalPtr(p.NetAreaTotal, o.NetAreaTotal) &&
		equalPtr(p.SingleWeight, o.SingleWeight) &&
		equalPtr(p.NetWeightTotal, o.NetWeightTotal) &&
		equalPtr(p.Source, o.Source) &&
		equalPtr(p.ExternalRef, o.ExternalRef)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type CountParams struct {
	ProjectID uuid.UUID
	Source    *string
}

type Repository interface {
	GetByDesignation(ctx context.Context, projectID uuid.UUID, designation string) (*AssemblyPart, error)
	FindByDesignations(ctx context.Context, designations []string) ([]*AssemblyPart, error)
	Count(ctx context.Context, params *CountParams) (int64, error)
	Create(ctx context.Context, p *AssemblyPart) error
	Update(ctx context.Context, p *AssemblyPart) error
	// DeleteBySource removes parts of projectID tagged with source that no
	// production log references any more, and returns how many were removed.
	DeleteBySource(ctx context.Context, projectID uuid.UUID, source string) (int64, error)
}
