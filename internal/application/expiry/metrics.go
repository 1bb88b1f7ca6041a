package expiry

// Metrics receives engine events. The Prometheus adapter lives in
// infrastructure/monitoring/prometheus.
type Metrics interface {
	ActionRecorded(actionType string)
	UndoRejected(reason string)
	NotificationSent(kind string, delivered bool)
	WorklistObserved(band string, total, unprocessed int)
	ArchiveWritten(entries int)
}

type noopMetrics struct{}

func (noopMetrics) ActionRecorded(string)              {}
func (noopMetrics) UndoRejected(string)                {}
func (noopMetrics) NotificationSent(string, bool)      {}
func (noopMetrics) WorklistObserved(string, int, int)  {}
func (noopMetrics) ArchiveWritten(int)                 {}
