package expiry

import (
	"context"
	"time"
)

// ReportKind tells the mail collaborator which template to use.
type ReportKind string

const (
	ReportDailyReminder     ReportKind = "daily_reminder"
	ReportUnprocessedCounts ReportKind = "unprocessed_counts"
)

// ReportItem is one unprocessed product listed in a report.
type ReportItem struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Band            Band   `json:"band"`
	DaysUntilExpiry int    `json:"daysUntilExpiry"`
}

// Report is what the engine hands to the notification sender.
type Report struct {
	Kind                ReportKind   `json:"kind"`
	Date                string       `json:"date"`
	Timezone            string       `json:"timezone"`
	Enabled             bool         `json:"enabled"`
	CriticalUnprocessed int          `json:"criticalUnprocessed"`
	WarningUnprocessed  int          `json:"warningUnprocessed"`
	CriticalTotal       int          `json:"criticalTotal"`
	WarningTotal        int          `json:"warningTotal"`
	Items               []ReportItem `json:"items,omitempty"`
	GeneratedAt         time.Time    `json:"generatedAt"`
}

// Notifier delivers reports to the mail collaborator. Delivery is fire and
// forget from the engine's point of view.
type Notifier interface {
	Notify(ctx context.Context, r Report) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, r Report) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, r Report) error { return f(ctx, r) }

// ArchiveStore receives exported ledger documents.
type ArchiveStore interface {
	PutDocument(ctx context.Context, key string, body []byte, contentType string) error
}
