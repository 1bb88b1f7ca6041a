// Package expiry is the application service of the freshness lifecycle
// engine. It loads products, ledger and settings from the store, runs the
// domain classifier, resolver, gate and aggregator, and records mutations
// under a per-product lock inside one store transaction.
//
//	Depends on: internal/domain/expiry, pkg/errors, monitoring/logging
//	Depended by: interfaces/http/handlers, interfaces/cli
package expiry

import (
	"context"
	"time"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
)

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service is the application contract of the expiry engine.
type Service interface {
	// CriticalProducts returns the raw critical list with each product's last
	// action embedded. Products handled today stay in the band they were
	// handled in.
	CriticalProducts(ctx context.Context) ([]domainExpiry.WorkItem, error)
	// WarningProducts is the warning counterpart of CriticalProducts.
	WarningProducts(ctx context.Context) ([]domainExpiry.WorkItem, error)
	// Worklist deduplicates the raw lists, applies the daily gate and
	// aggregates completion per band and category.
	Worklist(ctx context.Context, q WorklistQuery) (*Worklist, error)
	// Status classifies and gates a single product.
	Status(ctx context.Context, productID string) (*ProductStatus, error)
	History(ctx context.Context, q HistoryQuery) ([]HistoryItem, error)

	Settings(ctx context.Context) (domainExpiry.Settings, error)
	UpdateSettings(ctx context.Context, s domainExpiry.Settings) (domainExpiry.Settings, error)

	Label(ctx context.Context, req LabelRequest) (*domainExpiry.ActionEntry, error)
	RemoveCritical(ctx context.Context, req RemoveCriticalRequest) (*domainExpiry.ActionEntry, error)
	Deactivate(ctx context.Context, req DeactivateRequest) (*domainExpiry.ActionEntry, error)
	// Remove dispatches to Deactivate or RemoveCritical on ExcludeFromCheck.
	Remove(ctx context.Context, req RemoveRequest) (*domainExpiry.ActionEntry, error)
	UpdateExpiryDate(ctx context.Context, req UpdateDateRequest) (*domainExpiry.ActionEntry, error)
	Undo(ctx context.Context, req UndoRequest) (*UndoResult, error)

	// DailyReminder forwards today's reminder to the notifier. Delivery
	// failures are reported in the result, never as an error.
	DailyReminder(ctx context.Context) (*NotifyResult, error)
	// CheckAndNotify forwards the current unprocessed counts.
	CheckAndNotify(ctx context.Context) (*NotifyResult, error)
	// ArchiveDay exports one civil day of the ledger to the archive store.
	ArchiveDay(ctx context.Context, day time.Time) (*ArchiveResult, error)
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds engine tunables.
type Config struct {
	FallbackPolicy domainExpiry.FallbackPolicy
	// UndoRestoresDate rolls the live expiry date back to the entry's prior
	// date and clears a deactivation's exclusion flag on undo.
	UndoRestoresDate    bool
	HistoryDefaultLimit int
	HistoryMaxLimit     int
	MaxNoteLength       int
	ArchivePrefix       string
	// ReminderItemLimit caps the items listed in a daily reminder.
	ReminderItemLimit int
}

// DefaultConfig returns the defaults used for zero fields.
func DefaultConfig() Config {
	return Config{
		FallbackPolicy:      domainExpiry.FallbackWarning,
		HistoryDefaultLimit: 50,
		HistoryMaxLimit:     500,
		MaxNoteLength:       500,
		ArchivePrefix:       "ledger",
		ReminderItemLimit:   50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FallbackPolicy == "" {
		c.FallbackPolicy = d.FallbackPolicy
	}
	if c.HistoryDefaultLimit <= 0 {
		c.HistoryDefaultLimit = d.HistoryDefaultLimit
	}
	if c.HistoryMaxLimit <= 0 {
		c.HistoryMaxLimit = d.HistoryMaxLimit
	}
	if c.HistoryDefaultLimit > c.HistoryMaxLimit {
		c.HistoryDefaultLimit = c.HistoryMaxLimit
	}
	if c.MaxNoteLength <= 0 {
		c.MaxNoteLength = d.MaxNoteLength
	}
	if c.ArchivePrefix == "" {
		c.ArchivePrefix = d.ArchivePrefix
	}
	if c.ReminderItemLimit <= 0 {
		c.ReminderItemLimit = d.ReminderItemLimit
	}
	return c
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type serviceImpl struct {
	store    domainExpiry.Store
	calendar *domainExpiry.Calendar
	cfg      Config
	locker   Locker
	notifier domainExpiry.Notifier
	archive  domainExpiry.ArchiveStore
	metrics  Metrics
	logger   logging.Logger
	newID    func() string
}

// Option configures optional collaborators.
type Option func(*serviceImpl)

// WithLocker replaces the in-process LocalLocker.
func WithLocker(l Locker) Option { return func(s *serviceImpl) { s.locker = l } }

// WithNotifier sets the mail collaborator.
func WithNotifier(n domainExpiry.Notifier) Option { return func(s *serviceImpl) { s.notifier = n } }

// WithArchive sets the ledger archive store.
func WithArchive(a domainExpiry.ArchiveStore) Option { return func(s *serviceImpl) { s.archive = a } }

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option { return func(s *serviceImpl) { s.metrics = m } }

// WithIDGenerator overrides action id generation.
func WithIDGenerator(f func() string) Option { return func(s *serviceImpl) { s.newID = f } }

// NewService constructs the engine service.
func NewService(
	store domainExpiry.Store,
	calendar *domainExpiry.Calendar,
	cfg Config,
	logger logging.Logger,
	opts ...Option,
) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		store:    store,
		calendar: calendar,
		cfg:      cfg.withDefaults(),
		locker:   NewLocalLocker(),
		metrics:  noopMetrics{},
		logger:   logger.Named("expiry"),
		newID:    newActionID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
