package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/pkg/configuration"
)

func TestMatchBuilding_Priority(t *testing.T) {
	byDesignation := &building.Building{ID: uuid.New(), Designation: "Z8T", Name: "Main"}
	byNameEqualDesignation := &building.Building{ID: uuid.New(), Designation: "B2", Name: "Z8T"}
	byName := &building.Building{ID: uuid.New(), Designation: "B3", Name: "Tower 8"}
	all := []*building.Building{byName, byNameEqualDesignation, byDesignation}

	tests := []struct {
		name        string
		candidates  []*building.Building
		designation string
		buildingNm  string
		want        *building.Building
	}{
		{"designation wins", all, "Z8T", "Tower 8", byDesignation},
		{"name equal to designation", []*building.Building{byName, byNameEqualDesignation}, "Z8T", "Tower 8", byNameEqualDesignation},
		{"name fallback", []*building.Building{byName}, "Z8T", "Tower 8", byName},
		{"no match", all, "Q1", "Nowhere", nil},
		{"empty designation", all, "", "Tower 8", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, MatchBuilding(tt.candidates, tt.designation, tt.buildingNm))
		})
	}
}

func TestRemainingQty(t *testing.T) {
	tests := []struct {
		nominal, already, new, want int
	}{
		{10, 0, 1, 9},
		{10, 9, 1, 0},
		{10, 9, 5, 0},
		{3, 5, 1, 0},
		{4, 0, 0, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemainingQty(tt.nominal, tt.already, tt.new), "%+v", tt)
	}
}

func TestCompletionPercent(t *testing.T) {
	assert.Equal(t, 33, CompletionPercent(1, 3))
	assert.Equal(t, 67, CompletionPercent(2, 3))
	assert.Equal(t, 100, CompletionPercent(4, 4))
	assert.Equal(t, 0, CompletionPercent(0, 0))
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, []string{"254", "253"}, Suggest("2540", []string{"253", "254", "900"}))
	assert.Equal(t, []string{"Z8T"}, Suggest("z8t", []string{"Z8T", "Warehouse"}))
	assert.Empty(t, Suggest("254", []string{"254"}))
	assert.Len(t, Suggest("1", []string{"10", "11", "12", "13"}), 3)
}

func TestPartIndexLookup(t *testing.T) {
	a := partRef{part: &assemblypart.AssemblyPart{ID: uuid.New()}, projectNumber: "254"}
	b := partRef{part: &assemblypart.AssemblyPart{ID: uuid.New()}, projectNumber: "253"}
	idx := partIndex{"C-1": {a, b}, "C-2": {a}}

	ref, reason := idx.lookup("C-1", "253")
	require.Empty(t, reason)
	assert.Same(t, b.part, ref.part)

	_, reason = idx.lookup("C-1", "")
	assert.Equal(t, ReasonAmbiguousPart, reason)

	ref, reason = idx.lookup("C-2", "999")
	require.Empty(t, reason)
	assert.Same(t, a.part, ref.part)

	_, reason = idx.lookup("C-3", "254")
	assert.Equal(t, ReasonNoMatchingPart, reason)
}

func TestProjectPrefix(t *testing.T) {
	assert.Equal(t, "254", projectPrefix("254-Z8T-CO2"))
	assert.Equal(t, "NODASH", projectPrefix("NODASH"))
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(configuration.PTSOptions{
		RawDataSheet:     "Raw",
		LogSheet:         "Log",
		RawDataRange:     "A3:T500",
		LogRange:         "A2:R",
		BatchSize:        25,
		SourceTag:        "PTS",
		DateFallback:     configuration.DateFallbackError,
		MaxReportedItems: 10,
	}, configuration.LockOptions{TTL: 0})
	require.NoError(t, err)
	assert.Equal(t, pts.RangeSpec{StartCol: 0, StartRow: 3, EndCol: 19, EndRow: 500}, cfg.RawDataRange)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, configuration.DateFallbackError, cfg.DateFallback)
	assert.Equal(t, pts.DefaultColumnMapping(), cfg.Columns)

	_, err = NewConfig(configuration.PTSOptions{RawDataRange: "nope", LogRange: "A2:R"}, configuration.LockOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PTS_RAW_DATA_RANGE")
}

func TestSyncResult_BoundsLists(t *testing.T) {
	r := newSyncResult("batch", 1, fixedNow)
	r.skip(SkippedItem{RowNumber: 2, Type: ItemPart, Reason: ReasonBlankRow})
	r.skip(SkippedItem{RowNumber: 3, Type: ItemPart, Reason: ReasonBlankRow})
	assert.Len(t, r.SkippedItems, 1)
	assert.True(t, r.SkippedTruncated)
	assert.Equal(t, 2, r.SkippedCount())
}
