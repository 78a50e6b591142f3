package services

import (
	"time"
)

type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseRawData    Phase = "raw-data"
	PhaseLogs       Phase = "logs"
	PhaseComplete   Phase = "complete"
)

type ItemType string

const (
	ItemPart ItemType = "part"
	ItemLog  ItemType = "log"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

type Progress struct {
	Phase   Phase  `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressFunc receives progress after every chunk. Panics are recovered.
type ProgressFunc func(Progress)

type SkippedItem struct {
	RowNumber       int      `json:"rowNumber"`
	PartDesignation string   `json:"partDesignation"`
	ProjectNumber   string   `json:"projectNumber"`
	Reason          string   `json:"reason"`
	Type            ItemType `json:"type"`
}

type RowError struct {
	RowNumber       int      `json:"rowNumber"`
	PartDesignation string   `json:"partDesignation,omitempty"`
	Type            ItemType `json:"type"`
	Code            string   `json:"code,omitempty"`
	Message         string   `json:"message"`
}

type SyncedItem struct {
	PartDesignation string   `json:"partDesignation"`
	ProjectNumber   string   `json:"projectNumber"`
	BuildingName    *string  `json:"buildingName"`
	ProcessType     string   `json:"processType,omitempty"`
	Action          Action   `json:"action"`
	Type            ItemType `json:"type"`
}

// PhaseCounts holds one outcome per processed row.
type PhaseCounts struct {
	Rows    int `json:"rows"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// Consistent reports whether every row was classified exactly once.
func (c PhaseCounts) Consistent() bool {
	return c.Created+c.Updated+c.Skipped+c.Errored == c.Rows
}

type SyncResult struct {
	Success     bool   `json:"success"`
	SyncBatchID string `json:"syncBatchId"`

	PartsCreated int `json:"partsCreated"`
	PartsUpdated int `json:"partsUpdated"`
	LogsCreated  int `json:"logsCreated"`
	LogsUpdated  int `json:"logsUpdated"`

	RawData PhaseCounts `json:"rawData"`
	Logs    PhaseCounts `json:"logs"`

	Errors           []RowError    `json:"errors"`
	SkippedItems     []SkippedItem `json:"skippedItems"`
	SyncedItems      []SyncedItem  `json:"syncedItems"`
	ErrorsTruncated  bool          `json:"errorsTruncated,omitempty"`
	SkippedTruncated bool          `json:"skippedTruncated,omitempty"`
	SyncedTruncated  bool          `json:"syncedTruncated,omitempty"`

	// DatesDefaulted counts log rows whose date fell back to the run day.
	DatesDefaulted int    `json:"datesDefaulted"`
	FatalError     string `json:"fatalError,omitempty"`

	ProjectStats []ProjectSyncStats `json:"projectStats"`

	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration"`

	limit int
}

func newSyncResult(batchID string, limit int, startedAt time.Time) *SyncResult {
	return &SyncResult{
		SyncBatchID:  batchID,
		Errors:       []RowError{},
		SkippedItems: []SkippedItem{},
		SyncedItems:  []SyncedItem{},
		ProjectStats: []ProjectSyncStats{},
		StartedAt:    startedAt,
		limit:        limit,
	}
}

func (r *SyncResult) counts(t ItemType) *PhaseCounts {
	if t == ItemLog {
		return &r.Logs
	}
	return &r.RawData
}

func (r *SyncResult) skip(item SkippedItem) {
	c := r.counts(item.Type)
	c.Rows++
	c.Skipped++
	if len(r.SkippedItems) >= r.limit {
		r.SkippedTruncated = true
		return
	}
	r.SkippedItems = append(r.SkippedItems, item)
}

func (r *SyncResult) fail(e RowError) {
	c := r.counts(e.Type)
	c.Rows++
	c.Errored++
	if len(r.Errors) >= r.limit {
		r.ErrorsTruncated = true
		return
	}
	r.Errors = append(r.Errors, e)
}

func (r *SyncResult) synced(item SyncedItem) {
	c := r.counts(item.Type)
	c.Rows++
	switch item.Action {
	case ActionCreated:
		c.Created++
	case ActionUpdated:
		c.Updated++
	}
	if len(r.SyncedItems) >= r.limit {
		r.SyncedTruncated = true
		return
	}
	r.SyncedItems = append(r.SyncedItems, item)
}

// finish derives the totals and the success flag.
func (r *SyncResult) finish(finishedAt time.Time, fatal error) {
	r.PartsCreated = r.RawData.Created
	r.PartsUpdated = r.RawData.Updated
	r.LogsCreated = r.Logs.Created
	r.LogsUpdated = r.Logs.Updated
	if fatal != nil {
		r.FatalError = fatal.Error()
	}
	r.Success = fatal == nil && r.RawData.Errored == 0 && r.Logs.Errored == 0
	r.FinishedAt = finishedAt
	r.Duration = finishedAt.Sub(r.StartedAt)
	r.DurationMs = r.Duration.Milliseconds()
}

// ErrorCount is the exact number of errored rows, including truncated ones.
func (r *SyncResult) ErrorCount() int {
	return r.RawData.Errored + r.Logs.Errored
}

func (r *SyncResult) SkippedCount() int {
	return r.RawData.Skipped + r.Logs.Skipped
}
