package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/modules/production/handlers"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/memstore"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
	"github.com/iota-uz/pts-sync/pkg/eventbus"
	"github.com/iota-uz/pts-sync/pkg/httpapi"
	"github.com/iota-uz/pts-sync/pkg/logging"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

type staticSource map[string][][]string

func (s staticSource) FetchRange(_ context.Context, sheet string, _ pts.RangeSpec) ([][]string, error) {
	return s[sheet], nil
}

type brokenSource struct{ err error }

func (s brokenSource) FetchRange(context.Context, string, pts.RangeSpec) ([][]string, error) {
	return nil, s.err
}

type env struct {
	t      *testing.T
	store  *memstore.Store
	locker *runlock.MemoryLocker
	runner *services.SyncRunner
	router *mux.Router
}

func newEnv(t *testing.T, src pts.Source) *env {
	t.Helper()
	store := memstore.New()
	require.NoError(t, store.Projects().Create(context.Background(), &project.Project{Number: "254", Name: "Tower"}))

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logging.NopLogger()),
		Logger:   logging.NopLogger(),
	})
	locker := runlock.NewMemoryLocker()
	svc := services.NewPtsSyncService(src, services.Repositories{
		Projects:  store.Projects(),
		Buildings: store.Buildings(),
		Parts:     store.Parts(),
		Logs:      store.Logs(),
	}, app.EventPublisher(), locker, services.DefaultConfig())
	runner := services.NewSyncRunner(svc)
	app.RegisterServices(svc, runner)
	handlers.RegisterSyncRunHandler(app, store.SyncRuns())

	router := mux.NewRouter()
	NewPtsSyncController(app, store.SyncRuns()).Register(router)
	return &env{t: t, store: store, locker: locker, runner: runner, router: router}
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func partRow(designation, building string) []string {
	row := make([]string, 20)
	row[1] = "254"
	row[2] = designation
	row[7] = "2"
	row[17] = building
	return row
}

func sheetSource() staticSource {
	return staticSource{
		"02-Raw Data": {partRow("254-Z8T-CO2", "Z8T"), partRow("254-Z8T-CO3", "Z8T")},
		"04-Log":      {{"", "254-Z8T-CO2", "Fit-up", "1", "Mon-07-Oct-2024", "", "", "", "254"}},
	}
}

func TestPtsSyncController_RunAndWait(t *testing.T) {
	e := newEnv(t, sheetSource())

	rec := e.do(http.MethodPost, "/pts-sync/run", `{"wait": true, "selectedProjects": ["254"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[services.SyncResult](t, rec)
	require.True(t, result.Success)
	require.Equal(t, 2, result.PartsCreated)
	require.Equal(t, 1, result.LogsCreated)
	require.Len(t, result.ProjectStats, 1)
	require.Equal(t, 100, result.ProjectStats[0].CompletionPercent)

	rec = e.do(http.MethodGet, "/pts-sync/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Runs  []syncRunResponse `json:"runs"`
		Total int64             `json:"total"`
	}](t, rec)
	require.Equal(t, int64(1), history.Total)
	require.Equal(t, syncrun.StatusSuccess, history.Runs[0].Status)
	require.Equal(t, result.SyncBatchID, history.Runs[0].SyncBatchID)
}

func TestPtsSyncController_RunInBackground(t *testing.T) {
	e := newEnv(t, sheetSource())

	rec := e.do(http.MethodPost, "/pts-sync/run", `{"syncLogs": false}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	e.runner.Wait()

	rec = e.do(http.MethodGet, "/pts-sync/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[services.RunStatus](t, rec)
	require.False(t, status.Running)
	require.NotNil(t, status.LastResult)
	require.Equal(t, 2, status.LastResult.PartsCreated)
	require.Equal(t, 0, status.LastResult.Logs.Rows)
}

func TestPtsSyncController_RunConflict(t *testing.T) {
	e := newEnv(t, sheetSource())
	lease, err := e.locker.TryLock(context.Background(), services.LockKey, time.Minute)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	for _, body := range []string{`{}`, `{"wait": true}`} {
		rec := e.do(http.MethodPost, "/pts-sync/run", body)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "PTS_SYNC_RUNNING", decode[httpapi.ErrorEnvelope](t, rec).Code)
	}
}

func TestPtsSyncController_RejectsBadRequests(t *testing.T) {
	e := newEnv(t, sheetSource())

	rec := e.do(http.MethodPost, "/pts-sync/run", `{"selectedProjects": [""]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodPost, "/pts-sync/run", `{"unknown": 1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodGet, "/pts-sync/history?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodGet, "/pts-sync/history?status=odd", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPtsSyncController_Validate(t *testing.T) {
	e := newEnv(t, sheetSource())
	rec := e.do(http.MethodGet, "/pts-sync/validate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[services.Validation](t, rec)
	require.Equal(t, 2, v.NewParts)
	require.Equal(t, 1, v.NewLogs)

	parts, logs := e.store.Snapshot()
	require.Empty(t, parts)
	require.Empty(t, logs)
}

func TestPtsSyncController_SourceUnavailable(t *testing.T) {
	e := newEnv(t, pts.UnavailableSource(nil))
	rec := e.do(http.MethodGet, "/pts-sync/validate", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "PTS_SOURCE_NOT_INITIALIZED", decode[httpapi.ErrorEnvelope](t, rec).Code)
}

func TestPtsSyncController_RunAndWaitReportsFatalErrors(t *testing.T) {
	cases := []struct {
		name   string
		source pts.Source
		status int
		code   string
	}{
		{"source not initialized", pts.UnavailableSource(nil), http.StatusServiceUnavailable, "PTS_SOURCE_NOT_INITIALIZED"},
		{"fetch failed", brokenSource{err: context.DeadlineExceeded}, http.StatusBadGateway, "PTS_SOURCE_FETCH_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, tc.source)

			rec := e.do(http.MethodPost, "/pts-sync/run", `{"wait": true}`)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decode[struct {
				httpapi.ErrorEnvelope
				Result *services.SyncResult `json:"result"`
			}](t, rec)
			require.Equal(t, tc.code, body.Code)
			require.NotNil(t, body.Result)
			require.False(t, body.Result.Success)
			require.NotEmpty(t, body.Result.FatalError)
			require.Equal(t, body.Result.SyncBatchID, body.Meta["syncBatchId"])

			rec = e.do(http.MethodGet, "/pts-sync/history", "")
			history := decode[struct {
				Runs []syncRunResponse `json:"runs"`
			}](t, rec)
			require.Len(t, history.Runs, 1)
			require.Equal(t, syncrun.StatusFailed, history.Runs[0].Status)
		})
	}
}

func TestPtsSyncController_StatsAndRollback(t *testing.T) {
	e := newEnv(t, sheetSource())
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/pts-sync/run", `{"wait": true}`).Code)

	rec := e.do(http.MethodGet, "/pts-sync/stats?project=254", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[[]services.ProjectSyncStats](t, rec)
	require.Len(t, stats, 1)
	require.Equal(t, int64(2), stats[0].SyncedParts)

	rec = e.do(http.MethodGet, "/pts-sync/projects/254/rollback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1), decode[services.RollbackPreview](t, rec).TaggedLogs)

	rec = e.do(http.MethodPost, "/pts-sync/projects/254/rollback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[services.RollbackResult](t, rec)
	require.Equal(t, int64(1), res.LogsDeleted)
	require.Equal(t, int64(2), res.PartsDeleted)

	rec = e.do(http.MethodPost, "/pts-sync/projects/999/rollback", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "PTS_PROJECT_NOT_FOUND", decode[httpapi.ErrorEnvelope](t, rec).Code)
}
