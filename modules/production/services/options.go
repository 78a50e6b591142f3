package services

import (
	"slices"
)

// Options tune a single FullSync run.
type Options struct {
	AutoCreateBuildings bool `json:"autoCreateBuildings"`
	// SelectedProjects limits the run to these project numbers when non-empty.
	SelectedProjects []string `json:"selectedProjects,omitempty"`
	// SelectedBuildings holds "{projectNumber}-{buildingDesignation}" keys.
	SelectedBuildings []string `json:"selectedBuildings,omitempty"`
	SyncRawData       bool     `json:"syncRawData"`
	SyncLogs          bool     `json:"syncLogs"`
}

func DefaultOptions() Options {
	return Options{
		AutoCreateBuildings: true,
		SyncRawData:         true,
		SyncLogs:            true,
	}
}

// BuildingSelectionKey builds the key used by Options.SelectedBuildings.
func BuildingSelectionKey(projectNumber, designation string) string {
	return projectNumber + "-" + designation
}

func (o Options) projectSelected(number string) bool {
	return len(o.SelectedProjects) == 0 || slices.Contains(o.SelectedProjects, number)
}

func (o Options) buildingSelected(projectNumber, designation string) bool {
	if len(o.SelectedBuildings) == 0 {
		return true
	}
	return slices.Contains(o.SelectedBuildings, BuildingSelectionKey(projectNumber, designation))
}
