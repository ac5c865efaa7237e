// Package metrics 导入、收获状态变更与 HTTP 请求的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合，使用独立的 Registry
// 所有方法对 nil 接收者安全，未启用指标时直接传 nil
type Metrics struct {
	registry *prometheus.Registry

	importsTotal        *prometheus.CounterVec
	importRowsTotal     *prometheus.CounterVec
	statusUpdatesTotal  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New 创建并注册全部指标
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colheita_imports_total",
			Help: "Total number of spreadsheet imports",
		},
		[]string{"strategy", "result"}, // result: success, error
	)
	m.importRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colheita_import_rows_total",
			Help: "Spreadsheet rows seen by imports",
		},
		[]string{"outcome"}, // outcome: parsed, skipped, new
	)
	m.statusUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colheita_status_updates_total",
			Help: "Plots whose harvest status was written",
		},
		[]string{"op"}, // op: scan, group, batch, undo
	)
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colheita_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colheita_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	for _, c := range []prometheus.Collector{
		m.importsTotal,
		m.importRowsTotal,
		m.statusUpdatesTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler /metrics 的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveImport 记录一次导入
func (m *Metrics) ObserveImport(strategy, result string) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(strategy, result).Inc()
}

// AddImportRows 累加导入行数
func (m *Metrics) AddImportRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRowsTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveStatusUpdate 记录收获状态写入的地块数
func (m *Metrics) ObserveStatusUpdate(op string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.statusUpdatesTotal.WithLabelValues(op).Add(float64(n))
}

// ObserveHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
