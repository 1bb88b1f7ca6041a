package expiry

import (
	"context"
	"strings"
	"time"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

// snapshot is everything one read request works from. It is built fresh on
// every call.
type snapshot struct {
	settings domainExpiry.Settings
	today    time.Time
	critical []domainExpiry.Candidate
	warning  []domainExpiry.Candidate
}

// loadSnapshot runs the two raw band queries. A product belongs to a raw list
// when its current band matches, or when its last action was taken today
// while it was in that band.
func (s *serviceImpl) loadSnapshot(ctx context.Context) (*snapshot, error) {
	settings, err := s.store.Settings().GetSettings(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "load settings")
	}
	snap := &snapshot{settings: settings, today: s.calendar.Today()}
	if !settings.Enabled {
		return snap, nil
	}

	cutoff := snap.today.AddDate(0, 0, settings.WarningDays)
	products, err := s.store.Products().ListExpiringBy(ctx, cutoff)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "list expiring products")
	}

	start, end := s.calendar.DayBounds(snap.today)
	todays, err := s.store.Ledger().List(ctx, domainExpiry.HistoryFilter{From: start, To: end})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "list today's actions")
	}

	known := make(map[string]struct{}, len(products))
	for _, p := range products {
		known[p.ID] = struct{}{}
	}
	var extra []string
	for _, e := range todays {
		if !e.Effective() || !e.BandAtAction.IsRisk() {
			continue
		}
		if _, ok := known[e.ProductID]; ok {
			continue
		}
		known[e.ProductID] = struct{}{}
		extra = append(extra, e.ProductID)
	}
	if len(extra) > 0 {
		more, err := s.store.Products().ListByIDs(ctx, extra)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "load handled products")
		}
		products = append(products, more...)
	}
	if len(products) == 0 {
		return snap, nil
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	history, err := s.store.Ledger().ListByProducts(ctx, ids)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "load ledger")
	}

	for _, p := range products {
		c := domainExpiry.Candidate{
			Product:        p,
			Classification: domainExpiry.Classify(p, settings, snap.today),
			LastAction:     domainExpiry.LastAction(history[p.ID]),
		}
		handledIn := domainExpiry.Band("")
		if c.LastAction != nil && s.calendar.IsToday(c.LastAction.CreatedAt) {
			handledIn = c.LastAction.BandAtAction
		}
		if c.Classification.Band == domainExpiry.BandCritical || handledIn == domainExpiry.BandCritical {
			snap.critical = append(snap.critical, c)
		}
		if c.Classification.Band == domainExpiry.BandWarning || handledIn == domainExpiry.BandWarning {
			snap.warning = append(snap.warning, c)
		}
	}
	return snap, nil
}

func (s *serviceImpl) gate(c domainExpiry.Candidate, band domainExpiry.Band) domainExpiry.WorkItem {
	return domainExpiry.WorkItem{
		Candidate:   c,
		Band:        band,
		Unprocessed: domainExpiry.IsUnprocessed(c.Product, c.Classification, c.LastAction, s.calendar),
	}
}

func (s *serviceImpl) gateAll(list []domainExpiry.Candidate, band domainExpiry.Band) []domainExpiry.WorkItem {
	out := make([]domainExpiry.WorkItem, 0, len(list))
	for _, c := range list {
		out = append(out, s.gate(c, band))
	}
	return out
}

// CriticalProducts implements Service.
func (s *serviceImpl) CriticalProducts(ctx context.Context) ([]domainExpiry.WorkItem, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.gateAll(snap.critical, domainExpiry.BandCritical), nil
}

// WarningProducts implements Service.
func (s *serviceImpl) WarningProducts(ctx context.Context) ([]domainExpiry.WorkItem, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.gateAll(snap.warning, domainExpiry.BandWarning), nil
}

// Worklist implements Service.
func (s *serviceImpl) Worklist(ctx context.Context, q WorklistQuery) (*Worklist, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildWorklist(snap, q), nil
}

func (s *serviceImpl) buildWorklist(snap *snapshot, q WorklistQuery) *Worklist {
	res := domainExpiry.Resolve(snap.critical, snap.warning, snap.settings, snap.today, s.cfg.FallbackPolicy)
	critical := s.gateAll(res.Critical, domainExpiry.BandCritical)
	warning := s.gateAll(res.Warning, domainExpiry.BandWarning)

	all := make([]domainExpiry.WorkItem, 0, len(critical)+len(warning))
	all = append(all, critical...)
	all = append(all, warning...)
	summary := domainExpiry.Summarize(all)
	for _, g := range summary.ByBand {
		s.metrics.WorklistObserved(g.Key, g.Total, g.Unprocessed)
	}
	if len(res.Fallbacks) > 0 {
		s.logger.Info("dedup fallback applied",
			logging.String("policy", string(s.cfg.FallbackPolicy)),
			logging.String("product_ids", strings.Join(res.Fallbacks, ",")))
	}

	if !q.IncludeProcessed {
		critical = onlyUnprocessed(critical)
		warning = onlyUnprocessed(warning)
	}
	return &Worklist{
		Date:      snap.today.Format(domainExpiry.DateLayout),
		Settings:  snap.settings,
		Critical:  critical,
		Warning:   warning,
		Summary:   summary,
		Fallbacks: res.Fallbacks,
	}
}

func onlyUnprocessed(items []domainExpiry.WorkItem) []domainExpiry.WorkItem {
	out := make([]domainExpiry.WorkItem, 0, len(items))
	for _, it := range items {
		if it.Unprocessed {
			out = append(out, it)
		}
	}
	return out
}

// Status implements Service.
func (s *serviceImpl) Status(ctx context.Context, productID string) (*ProductStatus, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.Validation("product id is required")
	}
	st, err := s.statusOf(ctx, s.store, productID)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *serviceImpl) statusOf(ctx context.Context, store domainExpiry.Store, productID string) (ProductStatus, error) {
	p, err := store.Products().GetProduct(ctx, productID)
	if err != nil {
		return ProductStatus{}, err
	}
	settings, err := store.Settings().GetSettings(ctx)
	if err != nil {
		return ProductStatus{}, apperrors.Wrap(err, apperrors.CodeUnknown, "load settings")
	}
	entries, err := store.Ledger().ListByProduct(ctx, productID)
	if err != nil {
		return ProductStatus{}, apperrors.Wrap(err, apperrors.CodeUnknown, "load ledger")
	}
	c := domainExpiry.Candidate{
		Product:        p,
		Classification: domainExpiry.Classify(p, settings, s.calendar.Today()),
		LastAction:     domainExpiry.LastAction(entries),
	}
	return s.gate(c, c.Classification.Band), nil
}

// History implements Service.
func (s *serviceImpl) History(ctx context.Context, q HistoryQuery) ([]HistoryItem, error) {
	limit := q.Limit
	switch {
	case limit < 0:
		return nil, apperrors.Validation("limit must not be negative")
	case limit == 0:
		limit = s.cfg.HistoryDefaultLimit
	case limit > s.cfg.HistoryMaxLimit:
		limit = s.cfg.HistoryMaxLimit
	}

	var f domainExpiry.HistoryFilter
	if q.Date != nil {
		f.From, f.To = s.calendar.DayBounds(domainExpiry.DateOnly(*q.Date))
	}
	if !q.LatestPerProduct {
		f.Limit = limit
	}
	entries, err := s.store.Ledger().List(ctx, f)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "list history")
	}
	if q.LatestPerProduct {
		actions := entries[:0]
		for _, e := range entries {
			if e.Type != domainExpiry.ActionUndone {
				actions = append(actions, e)
			}
		}
		entries = domainExpiry.LatestPerProduct(actions)
		if len(entries) > limit {
			entries = entries[:limit]
		}
	}
	return s.withProductNames(ctx, entries)
}

func (s *serviceImpl) withProductNames(ctx context.Context, entries []*domainExpiry.ActionEntry) ([]HistoryItem, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range entries {
		if _, ok := seen[e.ProductID]; !ok {
			seen[e.ProductID] = struct{}{}
			ids = append(ids, e.ProductID)
		}
	}
	byID := make(map[string]*domainExpiry.Product, len(ids))
	if len(ids) > 0 {
		products, err := s.store.Products().ListByIDs(ctx, ids)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeUnknown, "load products for history")
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}
	out := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := HistoryItem{ActionEntry: e}
		if p, ok := byID[e.ProductID]; ok {
			item.ProductName = p.Name
			item.Category = p.Category
		}
		out = append(out, item)
	}
	return out, nil
}

// Settings implements Service.
func (s *serviceImpl) Settings(ctx context.Context) (domainExpiry.Settings, error) {
	settings, err := s.store.Settings().GetSettings(ctx)
	if err != nil {
		return domainExpiry.Settings{}, apperrors.Wrap(err, apperrors.CodeUnknown, "load settings")
	}
	return settings, nil
}

// UpdateSettings implements Service.
func (s *serviceImpl) UpdateSettings(ctx context.Context, next domainExpiry.Settings) (domainExpiry.Settings, error) {
	if err := next.Validate(); err != nil {
		return domainExpiry.Settings{}, err
	}
	if err := s.store.Settings().SaveSettings(ctx, next); err != nil {
		return domainExpiry.Settings{}, apperrors.Wrap(err, apperrors.CodeUnknown, "save settings")
	}
	s.logger.Info("settings updated",
		logging.Bool("enabled", next.Enabled),
		logging.Int("warning_days", next.WarningDays),
		logging.Int("critical_days", next.CriticalDays))
	return next, nil
}
