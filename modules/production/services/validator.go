package services

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
)

const maxSuggestions = 3

type ProjectMatch struct {
	Number    string    `json:"number"`
	ProjectID uuid.UUID `json:"projectId"`
	Name      string    `json:"name"`
}

type UnmatchedProject struct {
	Number      string   `json:"number"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type BuildingKey struct {
	ProjectNumber string `json:"projectNumber"`
	Designation   string `json:"designation"`
	Name          string `json:"name"`
}

type BuildingMatch struct {
	BuildingKey
	BuildingID uuid.UUID `json:"buildingId"`
}

type UnmatchedBuilding struct {
	BuildingKey
	Suggestions []string `json:"suggestions,omitempty"`
}

type ProjectValidation struct {
	Source    []string           `json:"source"`
	Matched   []ProjectMatch     `json:"matched"`
	Unmatched []UnmatchedProject `json:"unmatched"`
}

type BuildingValidation struct {
	Source    []BuildingKey       `json:"source"`
	Matched   []BuildingMatch     `json:"matched"`
	Unmatched []UnmatchedBuilding `json:"unmatched"`
}

// Validation previews what FullSync would do against the current store.
type Validation struct {
	Projects  ProjectValidation  `json:"projects"`
	Buildings BuildingValidation `json:"buildings"`

	RawDataCount int `json:"rawDataCount"`
	LogCount     int `json:"logCount"`

	NewParts        int `json:"newPartsCount"`
	ExistingParts   int `json:"existingPartsCount"`
	UnresolvedParts int `json:"unresolvedPartsCount"`
	NewLogs         int `json:"newLogsCount"`
	ExistingLogs    int `json:"existingLogsCount"`
	UnresolvedLogs  int `json:"unresolvedLogsCount"`
}

// Suggest returns up to three candidates close to s, best first.
func Suggest(s string, candidates []string) []string {
	type scored struct {
		value    string
		distance int
	}
	seen := make(map[string]bool, len(candidates))
	var out []scored
	for _, c := range candidates {
		if c == "" || c == s || seen[c] {
			continue
		}
		seen[c] = true
		d := fuzzy.LevenshteinDistance(s, c)
		if d <= 2 || fuzzy.MatchFold(s, c) || fuzzy.MatchFold(c, s) {
			out = append(out, scored{value: c, distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		return out[i].value < out[j].value
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	suggestions := make([]string, len(out))
	for i, o := range out {
		suggestions[i] = o.value
	}
	return suggestions
}

type partKey struct {
	projectID   uuid.UUID
	designation string
}

// Validate reads both sheets and matches them against the store without
// writing anything. Parts and logs are keyed exactly as FullSync keys them.
func (s *PtsSyncService) Validate(ctx context.Context) (*Validation, error) {
	ctx, span := s.tracer.Start(ctx, "pts.Validate")
	defer span.End()

	rawRows, err := s.fetch(ctx, s.cfg.RawDataSheet, s.cfg.RawDataRange)
	if err != nil {
		return nil, err
	}
	logRows, err := s.fetch(ctx, s.cfg.LogSheet, s.cfg.LogRange)
	if err != nil {
		return nil, err
	}
	resolver, err := LoadResolver(ctx, s.repos.Projects, s.repos.Buildings, false)
	if err != nil {
		return nil, err
	}

	v := &Validation{
		Projects:     ProjectValidation{Source: []string{}, Matched: []ProjectMatch{}, Unmatched: []UnmatchedProject{}},
		Buildings:    BuildingValidation{Source: []BuildingKey{}, Matched: []BuildingMatch{}, Unmatched: []UnmatchedBuilding{}},
		RawDataCount: len(rawRows),
		LogCount:     len(logRows),
	}

	seenProjects := make(map[string]bool)
	seenBuildings := make(map[string]bool)
	var parts []pts.PartRecord
	designations := make([]string, 0, len(rawRows)+len(logRows))
	for _, row := range rawRows {
		rec, err := pts.ParsePartRow(row, s.cfg.Columns.Parts)
		if errors.Is(err, pts.ErrBlankRow) {
			continue
		}
		if err != nil {
			v.UnresolvedParts++
			continue
		}
		if !seenProjects[rec.ProjectNumber] {
			seenProjects[rec.ProjectNumber] = true
			v.Projects.Source = append(v.Projects.Source, rec.ProjectNumber)
		}
		if rec.BuildingDesignation != "" {
			key := BuildingSelectionKey(rec.ProjectNumber, rec.BuildingDesignation)
			if !seenBuildings[key] {
				seenBuildings[key] = true
				name := rec.BuildingName
				if name == "" {
					name = rec.BuildingDesignation
				}
				v.Buildings.Source = append(v.Buildings.Source, BuildingKey{
					ProjectNumber: rec.ProjectNumber,
					Designation:   rec.BuildingDesignation,
					Name:          name,
				})
			}
		}
		parts = append(parts, rec)
		designations = append(designations, rec.Designation)
	}
	for _, row := range logRows {
		if d := row.Cell(s.cfg.Columns.Logs.PartNumber); d != "" {
			designations = append(designations, d)
		}
	}

	s.matchProjects(v, resolver)
	s.matchBuildings(v, resolver)

	var stored []*assemblypart.AssemblyPart
	if len(designations) > 0 {
		stored, err = s.repos.Parts.FindByDesignations(ctx, designations)
		if err != nil {
			return nil, errors.Wrap(err, "load assembly parts")
		}
	}
	idx := make(partIndex)
	known := make(map[partKey]bool, len(stored))
	for _, p := range stored {
		known[partKey{p.ProjectID, p.Designation}] = true
		ref := partRef{part: p}
		if proj, ok := resolver.ProjectByID(p.ProjectID); ok {
			ref.projectNumber = proj.Number
		}
		idx[p.Designation] = append(idx[p.Designation], ref)
	}

	for _, rec := range parts {
		proj, ok := resolver.Project(rec.ProjectNumber)
		if !ok || rec.BuildingDesignation == "" {
			v.UnresolvedParts++
			continue
		}
		key := partKey{proj.ID, rec.Designation}
		if known[key] {
			v.ExistingParts++
			continue
		}
		v.NewParts++
		known[key] = true
		idx[rec.Designation] = append(idx[rec.Designation], partRef{
			part:          &assemblypart.AssemblyPart{ProjectID: proj.ID, Designation: rec.Designation},
			projectNumber: proj.Number,
		})
	}

	var refs []string
	for _, row := range logRows {
		rec, err := pts.ParseLogRow(row, s.cfg.Columns.Logs)
		if errors.Is(err, pts.ErrBlankRow) {
			continue
		}
		if err != nil {
			v.UnresolvedLogs++
			continue
		}
		if _, reason := idx.lookup(rec.PartDesignation, rec.ProjectNumber); reason != "" {
			v.UnresolvedLogs++
			continue
		}
		refs = append(refs, pts.LogExternalRef(s.cfg.Source, rec.Row, rec.PartDesignation, rec.ProcessType))
	}
	existing := map[string]struct{}{}
	if len(refs) > 0 {
		existing, err = s.repos.Logs.ExistingExternalRefs(ctx, s.cfg.Source, refs)
		if err != nil {
			return nil, errors.Wrap(err, "load existing log refs")
		}
	}
	for _, ref := range refs {
		if _, ok := existing[ref]; ok {
			v.ExistingLogs++
		} else {
			v.NewLogs++
		}
	}
	return v, nil
}

func (s *PtsSyncService) matchProjects(v *Validation, resolver *Resolver) {
	var numbers []string
	for _, p := range resolver.projects {
		numbers = append(numbers, p.Number)
	}
	for _, number := range v.Projects.Source {
		if p, ok := resolver.Project(number); ok {
			v.Projects.Matched = append(v.Projects.Matched, ProjectMatch{Number: number, ProjectID: p.ID, Name: p.Name})
			continue
		}
		v.Projects.Unmatched = append(v.Projects.Unmatched, UnmatchedProject{
			Number:      number,
			Suggestions: Suggest(number, numbers),
		})
	}
}

// matchBuildings only considers buildings whose project is matched.
func (s *PtsSyncService) matchBuildings(v *Validation, resolver *Resolver) {
	for _, key := range v.Buildings.Source {
		p, ok := resolver.Project(key.ProjectNumber)
		if !ok {
			continue
		}
		candidates := resolver.Buildings().InProject(p.ID)
		if b := MatchBuilding(candidates, key.Designation, key.Name); b != nil {
			v.Buildings.Matched = append(v.Buildings.Matched, BuildingMatch{BuildingKey: key, BuildingID: b.ID})
			continue
		}
		names := make([]string, 0, 2*len(candidates))
		for _, b := range candidates {
			names = append(names, b.Designation, b.Name)
		}
		v.Buildings.Unmatched = append(v.Buildings.Unmatched, UnmatchedBuilding{
			BuildingKey: key,
			Suggestions: Suggest(key.Designation, names),
		})
	}
}
