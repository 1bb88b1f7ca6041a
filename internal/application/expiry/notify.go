package expiry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

// DailyReminder implements Service. The "already sent today" guard belongs
// to the caller; every call forwards a reminder.
func (s *serviceImpl) DailyReminder(ctx context.Context) (*NotifyResult, error) {
	report, err := s.report(ctx, domainExpiry.ReportDailyReminder, true)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, report), nil
}

// CheckAndNotify implements Service.
func (s *serviceImpl) CheckAndNotify(ctx context.Context) (*NotifyResult, error) {
	report, err := s.report(ctx, domainExpiry.ReportUnprocessedCounts, false)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, report), nil
}

// report builds counts from the deduplicated worklist. Excluded products
// are left out of the counts and item list.
func (s *serviceImpl) report(ctx context.Context, kind domainExpiry.ReportKind, withItems bool) (domainExpiry.Report, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return domainExpiry.Report{}, err
	}
	wl := s.buildWorklist(snap, WorklistQuery{IncludeProcessed: true})

	all := append(append([]domainExpiry.WorkItem{}, wl.Critical...), wl.Warning...)
	critical, warning := domainExpiry.CountUnprocessed(all)
	r := domainExpiry.Report{
		Kind:                kind,
		Date:                wl.Date,
		Timezone:            s.calendar.Location().String(),
		Enabled:             snap.settings.Enabled,
		CriticalUnprocessed: critical,
		WarningUnprocessed:  warning,
		CriticalTotal:       len(wl.Critical),
		WarningTotal:        len(wl.Warning),
		GeneratedAt:         s.calendar.Now().UTC(),
	}
	if withItems {
		for _, it := range all {
			if len(r.Items) >= s.cfg.ReminderItemLimit {
				break
			}
			if !it.Unprocessed || it.Product.ExcludeFromExpiryCheck {
				continue
			}
			r.Items = append(r.Items, domainExpiry.ReportItem{
				ProductID:       it.Product.ID,
				Name:            it.Product.Name,
				Category:        it.Product.Category,
				Band:            it.Band,
				DaysUntilExpiry: it.Classification.DaysUntilExpiry,
			})
		}
	}
	return r, nil
}

// deliver hands r to the notifier. Failures are logged and reported in the
// result only.
func (s *serviceImpl) deliver(ctx context.Context, r domainExpiry.Report) *NotifyResult {
	res := &NotifyResult{Report: r}
	if s.notifier == nil {
		res.Error = "no notifier configured"
		s.logger.Warn("notification skipped", logging.String("kind", string(r.Kind)))
		s.metrics.NotificationSent(string(r.Kind), false)
		return res
	}
	if err := s.notifier.Notify(ctx, r); err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrCodeNotificationFailed, "notification delivery failed")
		res.Error = wrapped.Error()
		s.logger.Error("notification failed",
			logging.String("kind", string(r.Kind)),
			logging.Int("critical_unprocessed", r.CriticalUnprocessed),
			logging.Int("warning_unprocessed", r.WarningUnprocessed),
			logging.Err(err))
		s.metrics.NotificationSent(string(r.Kind), false)
		return res
	}
	res.Delivered = true
	s.metrics.NotificationSent(string(r.Kind), true)
	s.logger.Info("notification sent",
		logging.String("kind", string(r.Kind)),
		logging.Int("critical_unprocessed", r.CriticalUnprocessed),
		logging.Int("warning_unprocessed", r.WarningUnprocessed))
	return res
}

// archiveDocument is the JSON layout of an exported ledger day.
type archiveDocument struct {
	Date        string                      `json:"date"`
	Timezone    string                      `json:"timezone"`
	GeneratedAt time.Time                   `json:"generatedAt"`
	Entries     []*domainExpiry.ActionEntry `json:"entries"`
}

// ArchiveDay implements Service.
func (s *serviceImpl) ArchiveDay(ctx context.Context, day time.Time) (*ArchiveResult, error) {
	if s.archive == nil {
		return nil, apperrors.New(apperrors.ErrCodeArchiveFailed, "no archive store configured")
	}
	day = domainExpiry.DateOnly(day)
	if day.After(s.calendar.Today()) {
		return nil, apperrors.Validation("cannot archive a future day")
	}
	from, to := s.calendar.DayBounds(day)
	entries, err := s.store.Ledger().List(ctx, domainExpiry.HistoryFilter{From: from, To: to})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "list ledger day")
	}
	if entries == nil {
		entries = []*domainExpiry.ActionEntry{}
	}

	date := day.Format(domainExpiry.DateLayout)
	body, err := json.MarshalIndent(archiveDocument{
		Date:        date,
		Timezone:    s.calendar.Location().String(),
		GeneratedAt: s.calendar.Now().UTC(),
		Entries:     entries,
	}, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSerialization, "encode ledger archive")
	}

	key := fmt.Sprintf("%s/%04d/%02d/%s.json", s.cfg.ArchivePrefix, day.Year(), int(day.Month()), date)
	if err := s.archive.PutDocument(ctx, key, body, "application/json"); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeArchiveFailed, "upload ledger archive").WithDetail("key=" + key)
	}
	s.metrics.ArchiveWritten(len(entries))
	s.logger.Info("ledger day archived",
		logging.String("key", key),
		logging.Int("entries", len(entries)),
		logging.Int("bytes", len(body)))
	return &ArchiveResult{Key: key, Date: date, Entries: len(entries), Bytes: len(body)}, nil
}
