package handlers

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
)

type syncMetrics struct {
	runsTotal       *prometheus.CounterVec
	rowsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	rollbackDeleted *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *syncMetrics {
	return &syncMetrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pts_sync",
			Name:      "runs_total",
			Help:      "Total number of finished sync runs by status.",
		}, []string{"status"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pts_sync",
			Name:      "rows_total",
			Help:      "Source rows processed, by phase and outcome.",
		}, []string{"phase", "outcome"}),
		runDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pts_sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),
		rollbackDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pts_sync",
			Name:      "rollback_deleted_total",
			Help:      "Records removed by provenance rollbacks.",
		}, []string{"project", "kind"}),
	}
})

// MetricsHandler feeds the Prometheus collectors from run events.
type MetricsHandler struct {
	m *syncMetrics
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{m: metricsSingleton()}
}

func RegisterMetricsHandlers(app application.Application) *MetricsHandler {
	h := NewMetricsHandler()
	app.EventPublisher().Subscribe(h.OnSyncCompleted)
	app.EventPublisher().Subscribe(h.OnRollbackCompleted)
	return h
}

func (h *MetricsHandler) OnSyncCompleted(event *services.SyncCompletedEvent) {
	if event == nil || event.Result == nil {
		return
	}
	r := event.Result
	h.m.runsTotal.WithLabelValues(string(RunStatus(r, event.Err))).Inc()
	h.m.runDuration.Observe(r.Duration.Seconds())
	h.addRows(services.PhaseRawData, r.RawData)
	h.addRows(services.PhaseLogs, r.Logs)
}

func (h *MetricsHandler) addRows(phase services.Phase, c services.PhaseCounts) {
	for outcome, n := range map[string]int{
		"created": c.Created,
		"updated": c.Updated,
		"skipped": c.Skipped,
		"errored": c.Errored,
	} {
		if n > 0 {
			h.m.rowsTotal.WithLabelValues(string(phase), outcome).Add(float64(n))
		}
	}
}

func (h *MetricsHandler) OnRollbackCompleted(event *services.RollbackCompletedEvent) {
	if event == nil || event.Result == nil {
		return
	}
	r := event.Result
	h.m.rollbackDeleted.WithLabelValues(r.ProjectNumber, "log").Add(float64(r.LogsDeleted))
	h.m.rollbackDeleted.WithLabelValues(r.ProjectNumber, "part").Add(float64(r.PartsDeleted))
}
