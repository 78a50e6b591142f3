package persistence

import (
	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence/models"
)

func toDomainProject(m *models.Project) *project.Project {
	return &project.Project{ID: m.ID, Number: m.ProjectNumber, Name: m.Name}
}

func toDomainBuilding(m *models.Building) *building.Building {
	return &building.Building{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Designation: m.Designation,
		Name:        m.Name,
		CreatedAt:   m.CreatedAt,
	}
}

func toDBAssemblyPart(p *assemblypart.AssemblyPart) *models.AssemblyPart {
	return &models.AssemblyPart{
		ID:               p.ID,
		ProjectID:        p.ProjectID,
		BuildingID:       p.BuildingID,
		PartDesignation:  p.Designation,
		AssemblyMark:     p.AssemblyMark,
		SubAssemblyMark:  p.SubAssemblyMark,
		PartMark:         p.PartMark,
		Quantity:         p.Quantity,
		Name:             p.Name,
		Profile:          p.Profile,
		Grade:            p.Grade,
		LengthMm:         p.LengthMm,
		NetAreaPerUnit:   p.NetAreaPerUnit,
		NetAreaTotal:     p.NetAreaTotal,
		SinglePartWeight: p.SingleWeight,
		NetWeightTotal:   p.NetWeightTotal,
		Status:           p.Status,
		Source:           p.Source,
		ExternalRef:      p.ExternalRef,
		CreatedByID:      p.CreatedByID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toDomainAssemblyPart(m *models.AssemblyPart) *assemblypart.AssemblyPart {
	return &assemblypart.AssemblyPart{
		ID:              m.ID,
		ProjectID:       m.ProjectID,
		BuildingID:      m.BuildingID,
		Designation:     m.PartDesignation,
		AssemblyMark:    m.AssemblyMark,
		SubAssemblyMark: m.SubAssemblyMark,
		PartMark:        m.PartMark,
		Quantity:        m.Quantity,
		Name:            m.Name,
		Profile:         m.Profile,
		Grade:           m.Grade,
		LengthMm:        m.LengthMm,
		NetAreaPerUnit:  m.NetAreaPerUnit,
		NetAreaTotal:    m.NetAreaTotal,
		SingleWeight:    m.SinglePartWeight,
		NetWeightTotal:  m.NetWeightTotal,
		Status:          m.Status,
		Source:          m.Source,
		ExternalRef:     m.ExternalRef,
		CreatedByID:     m.CreatedByID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toDBProductionLog(l *productionlog.ProductionLog) *models.ProductionLog {
	return &models.ProductionLog{
		ID:                 l.ID,
		AssemblyPartID:     l.PartID,
		ProcessType:        l.ProcessType,
		DateProcessed:      l.DateProcessed,
		ProcessedQty:       l.ProcessedQty,
		RemainingQty:       l.RemainingQty,
		ProcessingLocation: l.Location,
		ProcessingTeam:     l.Team,
		ReportNumber:       l.ReportNumber,
		QCStatus:           l.QCStatus,
		QCRequired:         l.QCRequired,
		Source:             l.Source,
		ExternalRef:        l.ExternalRef,
		CreatedByID:        l.CreatedByID,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

func toDomainProductionLog(m *models.ProductionLog) *productionlog.ProductionLog {
	return &productionlog.ProductionLog{
		ID:            m.ID,
		PartID:        m.AssemblyPartID,
		ProcessType:   m.ProcessType,
		DateProcessed: m.DateProcessed,
		ProcessedQty:  m.ProcessedQty,
		RemainingQty:  m.RemainingQty,
		Location:      m.ProcessingLocation,
		Team:          m.ProcessingTeam,
		ReportNumber:  m.ReportNumber,
		QCStatus:      m.QCStatus,
		QCRequired:    m.QCRequired,
		Source:        m.Source,
		ExternalRef:   m.ExternalRef,
		CreatedByID:   m.CreatedByID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toDBSyncRun(r *syncrun.SyncRun) *models.SyncRun {
	return &models.SyncRun{
		ID:            r.ID,
		SyncBatchID:   r.SyncBatchID,
		Status:        string(r.Status),
		PartsCreated:  r.PartsCreated,
		PartsUpdated:  r.PartsUpdated,
		LogsCreated:   r.LogsCreated,
		LogsUpdated:   r.LogsUpdated,
		SkippedCount:  r.SkippedCount,
		ErrorCount:    r.ErrorCount,
		FatalError:    r.FatalError,
		DurationMs:    r.DurationMs,
		TriggeredByID: r.TriggeredByID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
}

func toDomainSyncRun(m *models.SyncRun) *syncrun.SyncRun {
	return &syncrun.SyncRun{
		ID:            m.ID,
		SyncBatchID:   m.SyncBatchID,
		Status:        syncrun.Status(m.Status),
		PartsCreated:  m.PartsCreated,
		PartsUpdated:  m.PartsUpdated,
		LogsCreated:   m.LogsCreated,
		LogsUpdated:   m.LogsUpdated,
		SkippedCount:  m.SkippedCount,
		ErrorCount:    m.ErrorCount,
		FatalError:    m.FatalError,
		DurationMs:    m.DurationMs,
		TriggeredByID: m.TriggeredByID,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}
}
