// Package memstore keeps production data in process memory. It backs tests
// and local rehearsals of a sync run against a spreadsheet export.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrForeignKey   = errors.New("foreign key violation")
)

type Store struct {
	mu        sync.RWMutex
	projects  map[uuid.UUID]project.Project
	buildings map[uuid.UUID]building.Building
	parts     map[uuid.UUID]assemblypart.AssemblyPart
	logs      map[uuid.UUID]productionlog.ProductionLog
	runs      []syncrun.SyncRun
}

func New() *Store {
	return &Store{
		projects:  make(map[uuid.UUID]project.Project),
		buildings: make(map[uuid.UUID]building.Building),
		parts:     make(map[uuid.UUID]assemblypart.AssemblyPart),
		logs:      make(map[uuid.UUID]productionlog.ProductionLog),
	}
}

func (s *Store) Projects() project.Repository   { return &projectRepo{s} }
func (s *Store) Buildings() building.Repository { return &buildingRepo{s} }
func (s *Store) Parts() assemblypart.Repository { return &partRepo{s} }
func (s *Store) Logs() productionlog.Repository { return &logRepo{s} }
func (s *Store) SyncRuns() syncrun.Repository   { return &syncRunRepo{s} }

// Snapshot returns copies of every stored part and log, ordered by id.
func (s *Store) Snapshot() ([]assemblypart.AssemblyPart, []productionlog.ProductionLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parts := make([]assemblypart.AssemblyPart, 0, len(s.parts))
	for _, p := range s.parts {
		parts = append(parts, p)
	}
	logs := make([]productionlog.ProductionLog, 0, len(s.logs))
	for _, l := range s.logs {
		logs = append(logs, l)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID.String() < parts[j].ID.String() })
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID.String() < logs[j].ID.String() })
	return parts, logs
}

type projectRepo struct{ s *Store }

func (r *projectRepo) GetByNumber(_ context.Context, number string) (*project.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.projects {
		if p.Number == number {
			cp := p
			return &cp, nil
		}
	}
	return nil, project.ErrProjectNotFound
}

func (r *projectRepo) List(_ context.Context, numbers ...string) ([]*project.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	var out []*project.Project
	for _, p := range r.s.projects {
		if len(want) > 0 && !want[p.Number] {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *projectRepo) Create(_ context.Context, p *project.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.projects {
		if existing.Number == p.Number {
			return errors.Wrapf(ErrDuplicateKey, "project %s", p.Number)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.projects[p.ID] = *p
	return nil
}

type buildingRepo struct{ s *Store }

func (r *buildingRepo) List(_ context.Context, params *building.FindParams) ([]*building.Building, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	filter := make(map[uuid.UUID]bool)
	if params != nil {
		for _, id := range params.ProjectIDs {
			filter[id] = true
		}
	}
	var out []*building.Building
	for _, b := range r.s.buildings {
		if len(filter) > 0 && !filter[b.ProjectID] {
			continue
		}
		cp := b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Designation < out[j].Designation
	})
	return out, nil
}

func (r *buildingRepo) Create(_ context.Context, b *building.Building) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[b.ProjectID]; !ok {
		return errors.Wrapf(ErrForeignKey, "building %s: unknown project", b.Designation)
	}
	for _, existing := range r.s.buildings {
		if existing.ProjectID == b.ProjectID && existing.Designation == b.Designation {
			return errors.Wrapf(ErrDuplicateKey, "building %s", b.Designation)
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.s.buildings[b.ID] = *b
	return nil
}

type partRepo struct{ s *Store }

func (r *partRepo) GetByDesignation(_ context.Context, projectID uuid.UUID, designation string) (*assemblypart.AssemblyPart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.parts {
		if p.ProjectID == projectID && p.Designation == designation {
			cp := p
			return &cp, nil
		}
	}
	return nil, assemblypart.ErrPartNotFound
}

func (r *partRepo) FindByDesignations(_ context.Context, designations []string) ([]*assemblypart.AssemblyPart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := make(map[string]bool, len(designations))
	for _, d := range designations {
		want[d] = true
	}
	var out []*assemblypart.AssemblyPart
	for _, p := range r.s.parts {
		if want[p.Designation] {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Designation != out[j].Designation {
			return out[i].Designation < out[j].Designation
		}
		return out[i].ProjectID.String() < out[j].ProjectID.String()
	})
	return out, nil
}

func matchSource(stored, want *string) bool {
	if want == nil {
		return true
	}
	return stored != nil && *stored == *want
}

func (r *partRepo) Count(_ context.Context, params *assemblypart.CountParams) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.parts {
		if params != nil {
			if params.ProjectID != uuid.Nil && p.ProjectID != params.ProjectID {
				continue
			}
			if !matchSource(p.Source, params.Source) {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (r *partRepo) Create(_ context.Context, p *assemblypart.AssemblyPart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[p.ProjectID]; !ok {
		return errors.Wrapf(ErrForeignKey, "part %s: unknown project", p.Designation)
	}
	if p.BuildingID != nil {
		if _, ok := r.s.buildings[*p.BuildingID]; !ok {
			return errors.Wrapf(ErrForeignKey, "part %s: unknown building", p.Designation)
		}
	}
	for _, existing := range r.s.parts {
		if existing.ProjectID == p.ProjectID && existing.Designation == p.Designation {
			return errors.Wrapf(ErrDuplicateKey, "part %s", p.Designation)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.parts[p.ID] = *p
	return nil
}

func (r *partRepo) Update(_ context.Context, p *assemblypart.AssemblyPart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.parts[p.ID]
	if !ok {
		return assemblypart.ErrPartNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	p.CreatedAt = existing.CreatedAt
	p.Status = existing.Status
	p.CreatedByID = existing.CreatedByID
	r.s.parts[p.ID] = *p
	return nil
}

func (r *partRepo) DeleteBySource(_ context.Context, projectID uuid.UUID, source string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	referenced := make(map[uuid.UUID]bool)
	for _, l := range r.s.logs {
		referenced[l.PartID] = true
	}
	var n int64
	for id, p := range r.s.parts {
		if p.ProjectID != projectID || p.Source == nil || *p.Source != source || referenced[id] {
			continue
		}
		delete(r.s.parts, id)
		n++
	}
	return n, nil
}

type logRepo struct{ s *Store }

func (r *logRepo) GetByExternalRef(_ context.Context, source, externalRef string) (*productionlog.ProductionLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.logs {
		if l.Source != nil && *l.Source == source && l.ExternalRef != nil && *l.ExternalRef == externalRef {
			cp := l
			return &cp, nil
		}
	}
	return nil, productionlog.ErrLogNotFound
}

func (r *logRepo) ExistingExternalRefs(_ context.Context, source string, refs []string) (map[string]struct{}, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := make(map[string]bool, len(refs))
	for _, ref := range refs {
		want[ref] = true
	}
	out := make(map[string]struct{})
	for _, l := range r.s.logs {
		if l.Source != nil && *l.Source == source && l.ExternalRef != nil && want[*l.ExternalRef] {
			out[*l.ExternalRef] = struct{}{}
		}
	}
	return out, nil
}

func (r *logRepo) SumProcessedQty(_ context.Context, partID uuid.UUID, processType string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum := 0
	for _, l := range r.s.logs {
		if l.PartID == partID && l.ProcessType == processType {
			sum += l.ProcessedQty
		}
	}
	return sum, nil
}

func (r *logRepo) ListByPart(_ context.Context, partID uuid.UUID) ([]*productionlog.ProductionLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*productionlog.ProductionLog
	for _, l := range r.s.logs {
		if l.PartID == partID {
			cp := l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *logRepo) Count(_ context.Context, params *productionlog.CountParams) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, l := range r.s.logs {
		if params != nil {
			if params.ProjectID != uuid.Nil && r.s.parts[l.PartID].ProjectID != params.ProjectID {
				continue
			}
			if !matchSource(l.Source, params.Source) {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (r *logRepo) Create(_ context.Context, l *productionlog.ProductionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.parts[l.PartID]; !ok {
		return errors.Wrap(ErrForeignKey, "production log: unknown part")
	}
	if l.Source != nil && l.ExternalRef != nil {
		for _, existing := range r.s.logs {
			if existing.Source != nil && existing.ExternalRef != nil &&
				*existing.Source == *l.Source && *existing.ExternalRef == *l.ExternalRef {
				return errors.Wrapf(ErrDuplicateKey, "production log %s", *l.ExternalRef)
			}
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	r.s.logs[l.ID] = *l
	return nil
}

func (r *logRepo) Update(_ context.Context, l *productionlog.ProductionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.logs[l.ID]
	if !ok {
		return productionlog.ErrLogNotFound
	}
	existing.ProcessedQty = l.ProcessedQty
	existing.DateProcessed = l.DateProcessed
	existing.Location = l.Location
	existing.Team = l.Team
	existing.ReportNumber = l.ReportNumber
	existing.UpdatedAt = time.Now().UTC()
	r.s.logs[l.ID] = existing
	l.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *logRepo) DeleteBySource(_ context.Context, projectID uuid.UUID, source string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, l := range r.s.logs {
		if l.Source == nil || *l.Source != source {
			continue
		}
		if r.s.parts[l.PartID].ProjectID != projectID {
			continue
		}
		delete(r.s.logs, id)
		n++
	}
	return n, nil
}

type syncRunRepo struct{ s *Store }

func (r *syncRunRepo) GetByBatchID(_ context.Context, batchID string) (*syncrun.SyncRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, run := range r.s.runs {
		if run.SyncBatchID == batchID {
			cp := run
			return &cp, nil
		}
	}
	return nil, syncrun.ErrSyncRunNotFound
}

func (r *syncRunRepo) filtered(params *syncrun.FindParams) []syncrun.SyncRun {
	var out []syncrun.SyncRun
	for i := len(r.s.runs) - 1; i >= 0; i-- {
		run := r.s.runs[i]
		if params != nil && params.Status != nil && run.Status != *params.Status {
			continue
		}
		out = append(out, run)
	}
	return out
}

func (r *syncRunRepo) List(_ context.Context, params *syncrun.FindParams) ([]*syncrun.SyncRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	runs := r.filtered(params)
	if params != nil {
		if params.Offset >= len(runs) {
			runs = nil
		} else if params.Offset > 0 {
			runs = runs[params.Offset:]
		}
		if params.Limit > 0 && len(runs) > params.Limit {
			runs = runs[:params.Limit]
		}
	}
	out := make([]*syncrun.SyncRun, len(runs))
	for i := range runs {
		out[i] = &runs[i]
	}
	return out, nil
}

func (r *syncRunRepo) Count(_ context.Context, params *syncrun.FindParams) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.filtered(params))), nil
}

func (r *syncRunRepo) Create(_ context.Context, run *syncrun.SyncRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.runs {
		if existing.SyncBatchID == run.SyncBatchID {
			return errors.Wrapf(ErrDuplicateKey, "sync run %s", run.SyncBatchID)
		}
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	r.s.runs = append(r.s.runs, *run)
	return nil
}
