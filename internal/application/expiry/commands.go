package expiry

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

func newActionID() string { return uuid.NewString() }

// mutation is the state a command sees inside its transaction.
type mutation struct {
	tx       domainExpiry.Store
	product  *domainExpiry.Product
	class    domainExpiry.Classification
	settings domainExpiry.Settings
	now      time.Time
}

func (s *serviceImpl) validateActor(adminID, productID, note string) error {
	if strings.TrimSpace(productID) == "" {
		return apperrors.Validation("product id is required")
	}
	if strings.TrimSpace(adminID) == "" {
		return apperrors.Validation("admin id is required")
	}
	if utf8.RuneCountInString(note) > s.cfg.MaxNoteLength {
		return apperrors.Validation(fmt.Sprintf("note exceeds %d characters", s.cfg.MaxNoteLength))
	}
	return nil
}

func requireDate(d *time.Time) error {
	if d == nil || d.IsZero() {
		return apperrors.New(apperrors.ErrCodeExpiryDateRequired, "new expiry date is required")
	}
	return nil
}

// withProduct serializes fn on productID: first the Locker, then a store
// transaction holding the product row lock.
func (s *serviceImpl) withProduct(ctx context.Context, productID string, fn func(m *mutation) error) error {
	release, err := s.locker.Acquire(ctx, productID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeLockNotAcquired, "acquire product lock").
			WithDetail("product_id=" + productID)
	}
	defer release()

	return s.store.WithTx(ctx, func(tx domainExpiry.Store) error {
		p, err := tx.Products().LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		settings, err := tx.Settings().GetSettings(ctx)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeUnknown, "load settings")
		}
		return fn(&mutation{
			tx:       tx,
			product:  p,
			class:    domainExpiry.Classify(p, settings, s.calendar.Today()),
			settings: settings,
			now:      s.calendar.Now().UTC(),
		})
	})
}

func (s *serviceImpl) newEntry(m *mutation, typ domainExpiry.ActionType, adminID, note string) *domainExpiry.ActionEntry {
	e := &domainExpiry.ActionEntry{
		ID:        s.newID(),
		ProductID: m.product.ID,
		AdminID:   adminID,
		Type:      typ,
		Note:      strings.TrimSpace(note),
		CreatedAt: m.now,
	}
	e.Snapshot(m.product, m.class)
	return e
}

// changeDate records the date change on e and writes it to the product.
func changeDate(ctx context.Context, m *mutation, e *domainExpiry.ActionEntry, date time.Time) error {
	next := domainExpiry.DateOnly(date)
	e.PriorExpiryDate = e.ExpiryDateAtAction
	e.NewExpiryDate = &next
	if err := m.tx.Products().UpdateExpiryDate(ctx, m.product.ID, &next); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "update expiry date")
	}
	m.product.ExpiryDate = &next
	return nil
}

func (s *serviceImpl) record(ctx context.Context, m *mutation, e *domainExpiry.ActionEntry) error {
	if err := m.tx.Ledger().Append(ctx, e); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "append ledger entry")
	}
	return nil
}

func (s *serviceImpl) recorded(e *domainExpiry.ActionEntry) {
	s.metrics.ActionRecorded(string(e.Type))
	s.logger.Info("action recorded",
		logging.String("action_id", e.ID),
		logging.String("product_id", e.ProductID),
		logging.String("admin_id", e.AdminID),
		logging.String("action_type", string(e.Type)),
		logging.Bool("excluded_from_check", e.ExcludedFromCheck),
		logging.String("band_at_action", string(e.BandAtAction)),
		logging.Date("prior_expiry_date", e.PriorExpiryDate),
		logging.Date("new_expiry_date", e.NewExpiryDate))
}

// Label implements Service.
func (s *serviceImpl) Label(ctx context.Context, req LabelRequest) (*domainExpiry.ActionEntry, error) {
	if err := s.validateActor(req.AdminID, req.ProductID, req.Note); err != nil {
		return nil, err
	}
	var entry *domainExpiry.ActionEntry
	err := s.withProduct(ctx, req.ProductID, func(m *mutation) error {
		if m.product.ExcludeFromExpiryCheck {
			return apperrors.New(apperrors.ErrCodeProductDeactivated, "cannot label a deactivated product").
				WithDetail("product_id=" + req.ProductID)
		}
		entry = s.newEntry(m, domainExpiry.ActionLabeled, req.AdminID, req.Note)
		return s.record(ctx, m, entry)
	})
	if err != nil {
		return nil, err
	}
	s.recorded(entry)
	return entry, nil
}

// RemoveCritical implements Service.
func (s *serviceImpl) RemoveCritical(ctx context.Context, req RemoveCriticalRequest) (*domainExpiry.ActionEntry, error) {
	if err := s.validateActor(req.AdminID, req.ProductID, req.Note); err != nil {
		return nil, err
	}
	if err := requireDate(req.NewExpiryDate); err != nil {
		return nil, err
	}
	var entry *domainExpiry.ActionEntry
	err := s.withProduct(ctx, req.ProductID, func(m *mutation) error {
		entry = s.newEntry(m, domainExpiry.ActionRemoved, req.AdminID, req.Note)
		if err := changeDate(ctx, m, entry, *req.NewExpiryDate); err != nil {
			return err
		}
		return s.record(ctx, m, entry)
	})
	if err != nil {
		return nil, err
	}
	s.recorded(entry)
	return entry, nil
}

// Deactivate implements Service.
func (s *serviceImpl) Deactivate(ctx context.Context, req DeactivateRequest) (*domainExpiry.ActionEntry, error) {
	if err := s.validateActor(req.AdminID, req.ProductID, req.Note); err != nil {
		return nil, err
	}
	var entry *domainExpiry.ActionEntry
	err := s.withProduct(ctx, req.ProductID, func(m *mutation) error {
		entry = s.newEntry(m, domainExpiry.ActionRemoved, req.AdminID, req.Note)
		entry.ExcludedFromCheck = true
		if req.NewExpiryDate != nil && !req.NewExpiryDate.IsZero() {
			if err := changeDate(ctx, m, entry, *req.NewExpiryDate); err != nil {
				return err
			}
		}
		if err := m.tx.Products().SetExcluded(ctx, m.product.ID, true); err != nil {
			return apperrors.Wrap(err, apperrors.CodeUnknown, "exclude product")
		}
		return s.record(ctx, m, entry)
	})
	if err != nil {
		return nil, err
	}
	s.recorded(entry)
	return entry, nil
}

// Remove implements Service.
func (s *serviceImpl) Remove(ctx context.Context, req RemoveRequest) (*domainExpiry.ActionEntry, error) {
	if req.ExcludeFromCheck {
		return s.Deactivate(ctx, DeactivateRequest{
			ProductID:     req.ProductID,
			AdminID:       req.AdminID,
			NewExpiryDate: req.NewExpiryDate,
			Note:          req.Note,
		})
	}
	return s.RemoveCritical(ctx, RemoveCriticalRequest{
		ProductID:     req.ProductID,
		AdminID:       req.AdminID,
		NewExpiryDate: req.NewExpiryDate,
		Note:          req.Note,
	})
}

// UpdateExpiryDate implements Service. An excluded product stays excluded.
func (s *serviceImpl) UpdateExpiryDate(ctx context.Context, req UpdateDateRequest) (*domainExpiry.ActionEntry, error) {
	if err := s.validateActor(req.AdminID, req.ProductID, req.Note); err != nil {
		return nil, err
	}
	if err := requireDate(req.NewExpiryDate); err != nil {
		return nil, err
	}
	var entry *domainExpiry.ActionEntry
	err := s.withProduct(ctx, req.ProductID, func(m *mutation) error {
		entry = s.newEntry(m, domainExpiry.ActionDateUpdated, req.AdminID, req.Note)
		if err := changeDate(ctx, m, entry, *req.NewExpiryDate); err != nil {
			return err
		}
		return s.record(ctx, m, entry)
	})
	if err != nil {
		return nil, err
	}
	s.recorded(entry)
	return entry, nil
}

// Undo implements Service. Only the product's current last action can be
// undone; undo markers and already undone entries are rejected.
func (s *serviceImpl) Undo(ctx context.Context, req UndoRequest) (*UndoResult, error) {
	if strings.TrimSpace(req.ActionID) == "" {
		return nil, apperrors.Validation("action id is required")
	}
	if strings.TrimSpace(req.AdminID) == "" {
		return nil, apperrors.Validation("admin id is required")
	}
	target, err := s.store.Ledger().Get(ctx, req.ActionID)
	if err != nil {
		return nil, err
	}

	result := &UndoResult{}
	err = s.withProduct(ctx, target.ProductID, func(m *mutation) error {
		entry, err := m.tx.Ledger().Get(ctx, req.ActionID)
		if err != nil {
			return err
		}
		if err := s.checkUndoable(ctx, m, entry); err != nil {
			return err
		}
		if err := m.tx.Ledger().MarkUndone(ctx, entry.ID, m.now, req.AdminID); err != nil {
			return apperrors.Wrap(err, apperrors.CodeUnknown, "mark entry undone")
		}
		entry.IsUndone = true
		entry.UndoneAt = &m.now
		entry.UndoneBy = req.AdminID

		marker := s.newEntry(m, domainExpiry.ActionUndone, req.AdminID, "undo "+string(entry.Type))
		marker.UndoesActionID = entry.ID
		if s.cfg.UndoRestoresDate {
			restored, err := s.restore(ctx, m, entry, marker)
			if err != nil {
				return err
			}
			result.DateRestored = restored
		}
		if err := s.record(ctx, m, marker); err != nil {
			return err
		}

		status, err := s.statusOf(ctx, m.tx, m.product.ID)
		if err != nil {
			return err
		}
		result.Undone, result.Marker, result.Status = entry, marker, status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ActionRecorded(string(domainExpiry.ActionUndone))
	s.logger.Info("action undone",
		logging.String("action_id", result.Undone.ID),
		logging.String("product_id", result.Undone.ProductID),
		logging.String("admin_id", req.AdminID),
		logging.String("undone_type", string(result.Undone.Type)),
		logging.Bool("date_restored", result.DateRestored),
		logging.Bool("unprocessed", result.Status.Unprocessed))
	return result, nil
}

func (s *serviceImpl) checkUndoable(ctx context.Context, m *mutation, entry *domainExpiry.ActionEntry) error {
	reject := func(code apperrors.ErrorCode, reason, msg string) error {
		s.metrics.UndoRejected(reason)
		return apperrors.New(code, msg).WithDetail("action_id=" + entry.ID)
	}
	if entry.Type == domainExpiry.ActionUndone {
		return reject(apperrors.ErrCodeActionNotReversible, "undo_marker", "undo entries cannot be undone")
	}
	if entry.IsUndone {
		return reject(apperrors.ErrCodeActionAlreadyUndone, "already_undone", "action already undone")
	}
	entries, err := m.tx.Ledger().ListByProduct(ctx, entry.ProductID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnknown, "load ledger")
	}
	if last := domainExpiry.LastAction(entries); last == nil || last.ID != entry.ID {
		return reject(apperrors.ErrCodeActionNotReversible, "not_latest", "only the most recent action can be undone")
	}
	return nil
}

// restore rolls back the live product fields changed by entry. The date is
// only restored while the product still carries the date entry set.
func (s *serviceImpl) restore(ctx context.Context, m *mutation, entry, marker *domainExpiry.ActionEntry) (bool, error) {
	restored := false
	if entry.NewExpiryDate != nil && sameDate(m.product.ExpiryDate, entry.NewExpiryDate) {
		if err := m.tx.Products().UpdateExpiryDate(ctx, m.product.ID, entry.PriorExpiryDate); err != nil {
			return false, apperrors.Wrap(err, apperrors.CodeUnknown, "restore expiry date")
		}
		marker.PriorExpiryDate = m.product.ExpiryDate
		marker.NewExpiryDate = entry.PriorExpiryDate
		m.product.ExpiryDate = entry.PriorExpiryDate
		restored = true
	}
	if entry.ExcludedFromCheck && m.product.ExcludeFromExpiryCheck {
		if err := m.tx.Products().SetExcluded(ctx, m.product.ID, false); err != nil {
			return false, apperrors.Wrap(err, apperrors.CodeUnknown, "clear exclusion")
		}
		m.product.ExcludeFromExpiryCheck = false
	}
	return restored, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return domainExpiry.DateOnly(*a).Equal(domainExpiry.DateOnly(*b))
}
