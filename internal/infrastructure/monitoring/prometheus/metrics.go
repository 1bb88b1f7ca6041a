package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Expiry engine
	ExpiryActionsTotal        CounterVec
	ExpiryUndoRejectedTotal   CounterVec
	ExpiryNotificationsTotal  CounterVec
	ExpiryWorklistItems       GaugeVec
	ExpiryWorklistUnprocessed GaugeVec
	ExpiryArchivesTotal       CounterVec
	ExpiryArchivedEntries     CounterVec

	// Infrastructure
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	HealthCheckStatus      GaugeVec
	ErrorsTotal            CounterVec
}

var DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewAppMetrics registers every application metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.ExpiryActionsTotal = collector.RegisterCounter("expiry_actions_total", "Ledger entries recorded", "action_type")
	m.ExpiryUndoRejectedTotal = collector.RegisterCounter("expiry_undo_rejected_total", "Rejected undo requests", "reason")
	m.ExpiryNotificationsTotal = collector.RegisterCounter("expiry_notifications_total", "Reports handed to the notifier", "kind", "result")
	m.ExpiryWorklistItems = collector.RegisterGauge("expiry_worklist_items", "Items in the last computed worklist", "band")
	m.ExpiryWorklistUnprocessed = collector.RegisterGauge("expiry_worklist_unprocessed", "Unprocessed items in the last computed worklist", "band")
	m.ExpiryArchivesTotal = collector.RegisterCounter("expiry_archives_total", "Ledger days archived")
	m.ExpiryArchivedEntries = collector.RegisterCounter("expiry_archived_entries_total", "Ledger entries written to the archive")

	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// RecordHTTPRequest counts one finished request. path must be the route
// template, never the raw URL.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordHealth(metrics *AppMetrics, component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordPoolStats(metrics *AppMetrics, db string, total, acquired int32) {
	metrics.DBConnectionPoolSize.WithLabelValues(db).Set(float64(total))
	metrics.DBConnectionPoolActive.WithLabelValues(db).Set(float64(acquired))
}

func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// ExpiryMetrics feeds engine events into AppMetrics. It satisfies the
// application's Metrics interface.
type ExpiryMetrics struct {
	m *AppMetrics
}

func NewExpiryMetrics(m *AppMetrics) *ExpiryMetrics { return &ExpiryMetrics{m: m} }

func (e *ExpiryMetrics) ActionRecorded(actionType string) {
	e.m.ExpiryActionsTotal.WithLabelValues(actionType).Inc()
}

func (e *ExpiryMetrics) UndoRejected(reason string) {
	e.m.ExpiryUndoRejectedTotal.WithLabelValues(reason).Inc()
}

func (e *ExpiryMetrics) NotificationSent(kind string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	e.m.ExpiryNotificationsTotal.WithLabelValues(kind, result).Inc()
}

func (e *ExpiryMetrics) WorklistObserved(band string, total, unprocessed int) {
	e.m.ExpiryWorklistItems.WithLabelValues(band).Set(float64(total))
	e.m.ExpiryWorklistUnprocessed.WithLabelValues(band).Set(float64(unprocessed))
}

func (e *ExpiryMetrics) ArchiveWritten(entries int) {
	e.m.ExpiryArchivesTotal.WithLabelValues().Inc()
	e.m.ExpiryArchivedEntries.WithLabelValues().Add(float64(entries))
}
