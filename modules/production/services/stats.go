package services

import (
	"context"
	"math"

	"github.com/go-faster/errors"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
)

type ProjectSyncStats struct {
	ProjectNumber     string `json:"projectNumber"`
	ProjectName       string `json:"projectName"`
	TotalParts        int64  `json:"totalParts"`
	SyncedParts       int64  `json:"syncedParts"`
	TotalLogs         int64  `json:"totalLogs"`
	SyncedLogs        int64  `json:"syncedLogs"`
	CompletionPercent int    `json:"completionPercent"`
}

// CompletionPercent is round(synced/total*100), or 0 without parts.
func CompletionPercent(synced, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(synced) / float64(total) * 100))
}

// GetStats counts all and source-tagged parts and logs per project. With no
// numbers every project is reported.
func (s *PtsSyncService) GetStats(ctx context.Context, projectNumbers ...string) ([]ProjectSyncStats, error) {
	projects, err := s.repos.Projects.List(ctx, projectNumbers...)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	source := s.cfg.Source
	stats := make([]ProjectSyncStats, 0, len(projects))
	for _, p := range projects {
		st := ProjectSyncStats{ProjectNumber: p.Number, ProjectName: p.Name}
		if st.TotalParts, err = s.repos.Parts.Count(ctx, &assemblypart.CountParams{ProjectID: p.ID}); err != nil {
			return nil, errors.Wrapf(err, "count parts of %s", p.Number)
		}
		if st.SyncedParts, err = s.repos.Parts.Count(ctx, &assemblypart.CountParams{ProjectID: p.ID, Source: &source}); err != nil {
			return nil, errors.Wrapf(err, "count synced parts of %s", p.Number)
		}
		if st.TotalLogs, err = s.repos.Logs.Count(ctx, &productionlog.CountParams{ProjectID: p.ID}); err != nil {
			return nil, errors.Wrapf(err, "count logs of %s", p.Number)
		}
		if st.SyncedLogs, err = s.repos.Logs.Count(ctx, &productionlog.CountParams{ProjectID: p.ID, Source: &source}); err != nil {
			return nil, errors.Wrapf(err, "count synced logs of %s", p.Number)
		}
		st.CompletionPercent = CompletionPercent(st.SyncedParts, st.TotalParts)
		stats = append(stats, st)
	}
	return stats, nil
}
