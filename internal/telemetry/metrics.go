package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/taskdep/internal/domain"
)

// Metrics — Prometheus метрики выполнения графов.
//
// Реализует engine.Observer, поэтому передаётся в engine.Config
// напрямую. Все методы безопасны для nil получателя.
type Metrics struct {
	tasksExecuted prometheus.Counter
	tasksFailed   prometheus.Counter
	cycles        prometheus.Counter
	taskDuration  prometheus.Histogram
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		tasksExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskdep_tasks_executed_total",
			Help: "Total tasks whose action completed",
		}),
		tasksFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskdep_tasks_failed_total",
			Help: "Total tasks whose action returned an error",
		}),
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskdep_cycles_detected_total",
			Help: "Total circular references detected during traversal",
		}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskdep_task_duration_seconds",
			Help:    "Task action duration",
			Buckets: prometheus.DefBuckets,
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdep_runs_total",
			Help: "Total finished runs by status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskdep_run_duration_seconds",
			Help:    "Run duration from start to finish",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdep_http_requests_total",
			Help: "API requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskdep_http_request_duration_seconds",
			Help:    "API request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// TaskCompleted фиксирует успешное выполнение действия.
func (m *Metrics) TaskCompleted(_ string, d time.Duration) {
	if m == nil {
		return
	}
	m.tasksExecuted.Inc()
	m.taskDuration.Observe(d.Seconds())
}

// TaskFailed фиксирует ошибку действия.
func (m *Metrics) TaskFailed(_ string, _ error) {
	if m == nil {
		return
	}
	m.tasksFailed.Inc()
}

// CycleDetected фиксирует обнаруженный цикл.
func (m *Metrics) CycleDetected(_ []string) {
	if m == nil {
		return
	}
	m.cycles.Inc()
}

// RunFinished фиксирует завершённый run.
func (m *Metrics) RunFinished(run *domain.Run) {
	if m == nil || run == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(run.Status)).Inc()
	if d := run.Duration(); d > 0 {
		m.runDuration.Observe(d.Seconds())
	}
}

// HTTPRequest фиксирует обработанный запрос API. route — шаблон маршрута,
// а не путь, чтобы ID в пути не раздували число серий.
func (m *Metrics) HTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
