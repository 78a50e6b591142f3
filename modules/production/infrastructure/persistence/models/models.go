package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID            uuid.UUID
	ProjectNumber string
	Name          string
}

type Building struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Designation string
	Name        string
	CreatedAt   time.Time
}

type AssemblyPart struct {
	ID               uuid.UUID
	ProjectID        uuid.UUID
	BuildingID       *uuid.UUID
	PartDesignation  string
	AssemblyMark     string
	SubAssemblyMark  *string
	PartMark         string
	Quantity         int
	Name             string
	Profile          string
	Grade            *string
	LengthMm         *float64
	NetAreaPerUnit   *float64
	NetAreaTotal     *float64
	SinglePartWeight *float64
	NetWeightTotal   *float64
	Status           string
	Source           *string
	ExternalRef      *string
	CreatedByID      *uint
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ProductionLog struct {
	ID                 uuid.UUID
	AssemblyPartID     uuid.UUID
	ProcessType        string
	DateProcessed      time.Time
	ProcessedQty       int
	RemainingQty       int
	ProcessingLocation *string
	ProcessingTeam     *string
	ReportNumber       *string
	QCStatus           string
	QCRequired         bool
	Source             *string
	ExternalRef        *string
	CreatedByID        *uint
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type SyncRun struct {
	ID            uuid.UUID
	SyncBatchID   string
	Status        string
	PartsCreated  int
	PartsUpdated  int
	LogsCreated   int
	LogsUpdated   int
	SkippedCount  int
	ErrorCount    int
	FatalError    *string
	DurationMs    int64
	TriggeredByID *uint
	StartedAt     time.Time
	FinishedAt    time.Time
}
