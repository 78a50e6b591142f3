package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/constants"
	"github.com/iota-uz/pts-sync/pkg/httpapi"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

const maxHistoryLimit = 100

type PtsSyncController struct {
	svc      *services.PtsSyncService
	runner   *services.SyncRunner
	runs     syncrun.Repository
	basePath string
}

func NewPtsSyncController(app application.Application, runs syncrun.Repository) application.Controller {
	return &PtsSyncController{
		svc:      app.Service(services.PtsSyncService{}).(*services.PtsSyncService),
		runner:   app.Service(services.SyncRunner{}).(*services.SyncRunner),
		runs:     runs,
		basePath: "/pts-sync",
	}
}

func (c *PtsSyncController) Key() string {
	return c.basePath
}

func (c *PtsSyncController) Register(r *mux.Router) {
	api := r.PathPrefix(c.basePath).Subrouter()
	api.HandleFunc("/validate", c.Validate).Methods(http.MethodGet)
	api.HandleFunc("/run", c.Run).Methods(http.MethodPost)
	api.HandleFunc("/status", c.Status).Methods(http.MethodGet)
	api.HandleFunc("/history", c.History).Methods(http.MethodGet)
	api.HandleFunc("/stats", c.Stats).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectNumber}/rollback", c.Rollback).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectNumber}/rollback", c.RollbackPreview).Methods(http.MethodGet)
}

func (c *PtsSyncController) Validate(w http.ResponseWriter, r *http.Request) {
	v, err := c.svc.Validate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, v)
}

type runRequest struct {
	AutoCreateBuildings *bool    `json:"autoCreateBuildings"`
	SelectedProjects    []string `json:"selectedProjects" validate:"omitempty,dive,required"`
	SelectedBuildings   []string `json:"selectedBuildings" validate:"omitempty,dive,required"`
	SyncRawData         *bool    `json:"syncRawData"`
	SyncLogs            *bool    `json:"syncLogs"`
	// Wait runs the sync inside the request and returns its result.
	Wait bool `json:"wait"`
}

func (req *runRequest) options() services.Options {
	opts := services.DefaultOptions()
	if req.AutoCreateBuildings != nil {
		opts.AutoCreateBuildings = *req.AutoCreateBuildings
	}
	if req.SyncRawData != nil {
		opts.SyncRawData = *req.SyncRawData
	}
	if req.SyncLogs != nil {
		opts.SyncLogs = *req.SyncLogs
	}
	opts.SelectedProjects = req.SelectedProjects
	opts.SelectedBuildings = req.SelectedBuildings
	return opts
}

func decodeRunRequest(r *http.Request) (*runRequest, error) {
	req := &runRequest{}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := constants.Validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

func triggeredBy(r *http.Request) *uint {
	if id, ok := composables.UseUserID(r.Context()); ok {
		return &id
	}
	return nil
}

func (c *PtsSyncController) Run(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PTS_INVALID_REQUEST", err.Error(), nil)
		return
	}
	if req.Wait {
		result, err := c.svc.FullSync(r.Context(), triggeredBy(r), req.options(), nil)
		if err != nil {
			writeRunError(w, result, err)
			return
		}
		_ = httpapi.WriteJSON(w, http.StatusOK, result)
		return
	}
	if err := c.runner.Start(r.Context(), triggeredBy(r), req.options()); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusAccepted, c.runner.Status())
}

func (c *PtsSyncController) Status(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, c.runner.Status())
}

type syncRunResponse struct {
	SyncBatchID   string         `json:"syncBatchId"`
	Status        syncrun.Status `json:"status"`
	PartsCreated  int            `json:"partsCreated"`
	PartsUpdated  int            `json:"partsUpdated"`
	LogsCreated   int            `json:"logsCreated"`
	LogsUpdated   int            `json:"logsUpdated"`
	SkippedCount  int            `json:"skippedCount"`
	ErrorCount    int            `json:"errorCount"`
	FatalError    *string        `json:"fatalError,omitempty"`
	DurationMs    int64          `json:"duration"`
	TriggeredByID *uint          `json:"triggeredById,omitempty"`
	StartedAt     string         `json:"startedAt"`
	FinishedAt    string         `json:"finishedAt"`
}

func toSyncRunResponse(run *syncrun.SyncRun) syncRunResponse {
	return syncRunResponse{
		SyncBatchID:   run.SyncBatchID,
		Status:        run.Status,
		PartsCreated:  run.PartsCreated,
		PartsUpdated:  run.PartsUpdated,
		LogsCreated:   run.LogsCreated,
		LogsUpdated:   run.LogsUpdated,
		SkippedCount:  run.SkippedCount,
		ErrorCount:    run.ErrorCount,
		FatalError:    run.FatalError,
		DurationMs:    run.DurationMs,
		TriggeredByID: run.TriggeredByID,
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:    run.FinishedAt.UTC().Format(time.RFC3339),
	}
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func (c *PtsSyncController) History(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 20)
	if err == nil && limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, offErr := intQuery(r, "offset", 0)
	if err == nil {
		err = offErr
	}
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PTS_INVALID_QUERY", err.Error(), nil)
		return
	}
	params := &syncrun.FindParams{Limit: limit, Offset: offset}
	switch status := syncrun.Status(r.URL.Query().Get("status")); status {
	case "":
	case syncrun.StatusSuccess, syncrun.StatusPartial, syncrun.StatusFailed:
		params.Status = &status
	default:
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PTS_INVALID_QUERY", "status is invalid", nil)
		return
	}

	runs, err := c.runs.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	total, err := c.runs.Count(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]syncRunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, toSyncRunResponse(run))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, struct {
		Runs  []syncRunResponse `json:"runs"`
		Total int64             `json:"total"`
	}{Runs: items, Total: total})
}

func (c *PtsSyncController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.svc.GetStats(r.Context(), r.URL.Query()["project"]...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, stats)
}

func (c *PtsSyncController) RollbackPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := c.svc.PreviewRollback(r.Context(), mux.Vars(r)["projectNumber"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, preview)
}

func (c *PtsSyncController) Rollback(w http.ResponseWriter, r *http.Request) {
	result, err := c.svc.RollbackProject(r.Context(), mux.Vars(r)["projectNumber"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runlock.ErrLocked), errors.Is(err, runlock.ErrLeaseLost):
		return http.StatusConflict
	case errors.Is(err, services.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, pts.ErrSourceNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, pts.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortedRunResponse is the body of a waited run that stopped on a fatal
// error. Result holds whatever the run recorded before it stopped.
type abortedRunResponse struct {
	httpapi.ErrorEnvelope
	Result *services.SyncResult `json:"result,omitempty"`
}

func writeRunError(w http.ResponseWriter, result *services.SyncResult, err error) {
	if result == nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, statusFor(err), &abortedRunResponse{
		ErrorEnvelope: httpapi.ErrorEnvelope{
			Code:    httpapi.ErrorCode(err, "PTS_INTERNAL"),
			Message: err.Error(),
			Meta:    map[string]string{"syncBatchId": result.SyncBatchID},
		},
		Result: result,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	_ = httpapi.WriteServiceError(w, statusFor(err), "PTS_INTERNAL", err)
}
