package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
)

// MatchBuilding picks the building a source row refers to. Designation
// matches win over a name equal to the source designation, which win over
// a name equal to the source building name. Both the synchronizer and the
// validator go through this function.
func MatchBuilding(candidates []*building.Building, designation, name string) *building.Building {
	if designation == "" {
		return nil
	}
	for _, b := range candidates {
		if b.Designation == designation {
			return b
		}
	}
	for _, b := range candidates {
		if b.Name == designation {
			return b
		}
	}
	if name == "" {
		return nil
	}
	for _, b := range candidates {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// BuildingIndex groups buildings by project.
type BuildingIndex struct {
	byProject map[uuid.UUID][]*building.Building
	byID      map[uuid.UUID]*building.Building
}

func NewBuildingIndex(buildings []*building.Building) *BuildingIndex {
	idx := &BuildingIndex{
		byProject: make(map[uuid.UUID][]*building.Building),
		byID:      make(map[uuid.UUID]*building.Building),
	}
	for _, b := range buildings {
		idx.Add(b)
	}
	return idx
}

func (i *BuildingIndex) Add(b *building.Building) {
	i.byProject[b.ProjectID] = append(i.byProject[b.ProjectID], b)
	i.byID[b.ID] = b
}

func (i *BuildingIndex) Find(projectID uuid.UUID, designation, name string) *building.Building {
	return MatchBuilding(i.byProject[projectID], designation, name)
}

func (i *BuildingIndex) Get(id uuid.UUID) (*building.Building, bool) {
	b, ok := i.byID[id]
	return b, ok
}

func (i *BuildingIndex) InProject(projectID uuid.UUID) []*building.Building {
	return i.byProject[projectID]
}

// Target is a resolved (project, building) pair.
type Target struct {
	Project  *project.Project
	Building *building.Building
	// BuildingCreated is true when this call provisioned the building.
	BuildingCreated bool
}

// Resolver maps natural keys to stored projects and buildings. It is owned
// by one run and must not be shared between goroutines.
type Resolver struct {
	buildingRepo building.Repository
	autoCreate   bool
	now          func() time.Time

	projects     map[string]*project.Project
	projectsByID map[uuid.UUID]*project.Project
	buildings    *BuildingIndex
}

// LoadResolver preloads every project and the buildings of those projects.
func LoadResolver(
	ctx context.Context,
	projectRepo project.Repository,
	buildingRepo building.Repository,
	autoCreate bool,
) (*Resolver, error) {
	projects, err := projectRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load projects")
	}
	r := &Resolver{
		buildingRepo: buildingRepo,
		autoCreate:   autoCreate,
		now:          time.Now,
		projects:     make(map[string]*project.Project, len(projects)),
		projectsByID: make(map[uuid.UUID]*project.Project, len(projects)),
	}
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		r.projects[p.Number] = p
		r.projectsByID[p.ID] = p
		ids = append(ids, p.ID)
	}
	var buildings []*building.Building
	if len(ids) > 0 {
		buildings, err = buildingRepo.List(ctx, &building.FindParams{ProjectIDs: ids})
		if err != nil {
			return nil, errors.Wrap(err, "load buildings")
		}
	}
	r.buildings = NewBuildingIndex(buildings)
	return r, nil
}

func (r *Resolver) Project(number string) (*project.Project, bool) {
	p, ok := r.projects[number]
	return p, ok
}

func (r *Resolver) ProjectByID(id uuid.UUID) (*project.Project, bool) {
	p, ok := r.projectsByID[id]
	return p, ok
}

func (r *Resolver) Buildings() *BuildingIndex {
	return r.buildings
}

// Resolve finds the project and building for a row. Projects are never
// created. A missing building is created under the project when
// auto-provisioning is on, and the index is updated before returning.
func (r *Resolver) Resolve(ctx context.Context, projectNumber, designation, name string) (Target, error) {
	p, ok := r.projects[projectNumber]
	if !ok {
		return Target{}, errors.Wrapf(ErrProjectUnresolved, "project %s", projectNumber)
	}
	if b := r.buildings.Find(p.ID, designation, name); b != nil {
		return Target{Project: p, Building: b}, nil
	}
	if !r.autoCreate || designation == "" {
		return Target{Project: p}, errors.Wrapf(ErrBuildingUnresolved, "building %s-%s", projectNumber, designation)
	}
	if name == "" {
		name = designation
	}
	b := &building.Building{
		ID:          uuid.New(),
		ProjectID:   p.ID,
		Designation: designation,
		Name:        name,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.buildingRepo.Create(ctx, b); err != nil {
		return Target{Project: p}, errors.Wrapf(err, "create building %s-%s", projectNumber, designation)
	}
	r.buildings.Add(b)
	return Target{Project: p, Building: b, BuildingCreated: true}, nil
}
