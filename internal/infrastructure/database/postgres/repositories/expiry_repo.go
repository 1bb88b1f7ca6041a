// Package repositories holds the PostgreSQL implementations of the domain
// storage contracts.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// ExpiryStore
// ─────────────────────────────────────────────────────────────────────────────

// ExpiryStore implements expiry.Store over the products, expiry_actions and
// expiry_settings tables.
type ExpiryStore struct {
	pool     *pgxpool.Pool
	q        querier
	inTx     bool
	defaults expiry.Settings
	log      logging.Logger
}

// StoreOption configures an ExpiryStore.
type StoreOption func(*ExpiryStore)

// WithDefaultSettings sets the thresholds reported until a settings row exists.
func WithDefaultSettings(s expiry.Settings) StoreOption {
	return func(st *ExpiryStore) { st.defaults = s }
}

// NewExpiryStore returns a store backed by pool.
func NewExpiryStore(pool *pgxpool.Pool, log logging.Logger, opts ...StoreOption) *ExpiryStore {
	s := &ExpiryStore{pool: pool, q: pool, defaults: expiry.DefaultSettings(), log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *ExpiryStore) Products() expiry.ProductStore  { return &productRepo{s} }
func (s *ExpiryStore) Ledger() expiry.Ledger          { return &ledgerRepo{s} }
func (s *ExpiryStore) Settings() expiry.SettingsStore { return &settingsRepo{s} }

// Ping checks database reachability.
func (s *ExpiryStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDBConnError, "database unreachable")
	}
	return nil
}

// WithTx runs fn in a database transaction. Calls made on an already
// transactional store run inline.
func (s *ExpiryStore) WithTx(ctx context.Context, fn func(tx expiry.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return postgres.WithTransaction(ctx, s.pool, func(tx pgx.Tx, _ context.Context) error {
		return fn(&ExpiryStore{pool: s.pool, q: tx, inTx: true, defaults: s.defaults, log: s.log})
	})
}

// UpsertProduct inserts or replaces a catalog row. The catalog owns product
// data; this serves seeding and tests.
func (s *ExpiryStore) UpsertProduct(ctx context.Context, p *expiry.Product) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO products (id, name, category, barcode, expiry_date, exclude_from_expiry_check, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			barcode = EXCLUDED.barcode,
			expiry_date = EXCLUDED.expiry_date,
			exclude_from_expiry_check = EXCLUDED.exclude_from_expiry_check,
			updated_at = NOW()`,
		p.ID, p.Name, p.Category, p.Barcode, p.ExpiryDate, p.ExcludeFromExpiryCheck,
	)
	if err != nil {
		return queryError(err, "failed to upsert product")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Products
// ─────────────────────────────────────────────────────────────────────────────

type productRepo struct{ s *ExpiryStore }

const productColumns = `id, name, category, barcode, expiry_date, exclude_from_expiry_check`

func productNotFound(id string) error {
	return apperrors.New(apperrors.ErrCodeProductNotFound, "product not found").WithDetail("id=" + id)
}

func (r *productRepo) GetProduct(ctx context.Context, id string) (*expiry.Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// LockProduct takes a row lock with SELECT ... FOR UPDATE. Outside a
// transaction the lock ends with the statement.
func (r *productRepo) LockProduct(ctx context.Context, id string) (*expiry.Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *productRepo) one(ctx context.Context, sql, id string) (*expiry.Product, error) {
	p, err := scanProduct(r.s.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, productNotFound(id)
		}
		r.s.log.Error("product lookup failed", logging.String("product_id", id), logging.Err(err))
		return nil, queryError(err, "failed to load product")
	}
	return p, nil
}

func (r *productRepo) ListExpiringBy(ctx context.Context, cutoff time.Time) ([]*expiry.Product, error) {
	rows, err := r.s.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE expiry_date IS NOT NULL AND expiry_date <= $1
		ORDER BY expiry_date, name, id`, expiry.DateOnly(cutoff))
	if err != nil {
		return nil, queryError(err, "failed to list expiring products")
	}
	return scanProducts(rows)
}

func (r *productRepo) ListByIDs(ctx context.Context, ids []string) ([]*expiry.Product, error) {
	if len(ids) == 0 {
		return []*expiry.Product{}, nil
	}
	rows, err := r.s.q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, queryError(err, "failed to list products")
	}
	found, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*expiry.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]*expiry.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *productRepo) UpdateExpiryDate(ctx context.Context, id string, date *time.Time) error {
	var v *time.Time
	if date != nil {
		v = expiry.DatePtr(*date)
	}
	return r.update(ctx, id, `UPDATE products SET expiry_date = $2, updated_at = NOW() WHERE id = $1`, v)
}

func (r *productRepo) SetExcluded(ctx context.Context, id string, excluded bool) error {
	return r.update(ctx, id, `UPDATE products SET exclude_from_expiry_check = $2, updated_at = NOW() WHERE id = $1`, excluded)
}

func (r *productRepo) update(ctx context.Context, id, sql string, arg any) error {
	tag, err := r.s.q.Exec(ctx, sql, id, arg)
	if err != nil {
		return queryError(err, "failed to update product")
	}
	if tag.RowsAffected() == 0 {
		return productNotFound(id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*expiry.Product, error) {
	var p expiry.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.ExpiryDate, &p.ExcludeFromExpiryCheck); err != nil {
		return nil, err
	}
	if p.ExpiryDate != nil {
		p.ExpiryDate = expiry.DatePtr(*p.ExpiryDate)
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]*expiry.Product, error) {
	defer rows.Close()
	var out []*expiry.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, queryError(err, "failed to scan product row")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "row iteration error")
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ledger
// ─────────────────────────────────────────────────────────────────────────────

type ledgerRepo struct{ s *ExpiryStore }

const actionColumns = `id, product_id, admin_id, action_type, excluded_from_check, note,
	expiry_date_at_action, days_until_expiry_at_action, band_at_action,
	prior_expiry_date, new_expiry_date, undoes_action_id,
	created_at, is_undone, undone_at, undone_by`

func actionNotFound(id string) error {
	return apperrors.New(apperrors.ErrCodeActionNotFound, "action not found").WithDetail("id=" + id)
}

func (r *ledgerRepo) Append(ctx context.Context, e *expiry.ActionEntry) error {
	_, err := r.s.q.Exec(ctx, `
		INSERT INTO expiry_actions (`+actionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.ProductID, e.AdminID, string(e.Type), e.ExcludedFromCheck, e.Note,
		e.ExpiryDateAtAction, e.DaysUntilExpiryAtAction, string(e.BandAtAction),
		e.PriorExpiryDate, e.NewExpiryDate, nullString(e.UndoesActionID),
		e.CreatedAt.UTC(), e.IsUndone, e.UndoneAt, e.UndoneBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.New(apperrors.CodeConflict, "duplicate action id").WithDetail("id=" + e.ID)
		}
		r.s.log.Error("ledger append failed", logging.String("action_id", e.ID), logging.Err(err))
		return queryError(err, "failed to append action")
	}
	return nil
}

func (r *ledgerRepo) Get(ctx context.Context, id string) (*expiry.ActionEntry, error) {
	e, err := scanAction(r.s.q.QueryRow(ctx, `SELECT `+actionColumns+` FROM expiry_actions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, actionNotFound(id)
		}
		return nil, queryError(err, "failed to load action")
	}
	return e, nil
}

func (r *ledgerRepo) ListByProduct(ctx context.Context, productID string) ([]*expiry.ActionEntry, error) {
	m, err := r.ListByProducts(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	return m[productID], nil
}

func (r *ledgerRepo) ListByProducts(ctx context.Context, productIDs []string) (map[string][]*expiry.ActionEntry, error) {
	out := make(map[string][]*expiry.ActionEntry, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.s.q.Query(ctx, `
		SELECT `+actionColumns+` FROM expiry_actions
		WHERE product_id = ANY($1)
		ORDER BY created_at DESC, id DESC`, productIDs)
	if err != nil {
		return nil, queryError(err, "failed to list actions")
	}
	entries, err := scanActions(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.ProductID] = append(out[e.ProductID], e)
	}
	for _, list := range out {
		expiry.SortNewestFirst(list)
	}
	return out, nil
}

func (r *ledgerRepo) List(ctx context.Context, f expiry.HistoryFilter) ([]*expiry.ActionEntry, error) {
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	rows, err := r.s.q.Query(ctx, `
		SELECT `+actionColumns+` FROM expiry_actions
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, queryError(err, "failed to list history")
	}
	entries, err := scanActions(rows)
	if err != nil {
		return nil, err
	}
	expiry.SortNewestFirst(entries)
	return entries, nil
}

// MarkUndone flips is_undone only on a row that is not undone yet, so two
// concurrent undos cannot both succeed.
func (r *ledgerRepo) MarkUndone(ctx context.Context, id string, at time.Time, by string) error {
	tag, err := r.s.q.Exec(ctx, `
		UPDATE expiry_actions SET is_undone = TRUE, undone_at = $2, undone_by = $3
		WHERE id = $1 AND NOT is_undone`, id, at.UTC(), by)
	if err != nil {
		return queryError(err, "failed to mark action undone")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return apperrors.New(apperrors.ErrCodeActionAlreadyUndone, "action already undone").WithDetail("id=" + id)
}

func scanAction(row pgx.Row) (*expiry.ActionEntry, error) {
	var (
		e        expiry.ActionEntry
		typ      string
		band     string
		undoesID *string
	)
	err := row.Scan(
		&e.ID, &e.ProductID, &e.AdminID, &typ, &e.ExcludedFromCheck, &e.Note,
		&e.ExpiryDateAtAction, &e.DaysUntilExpiryAtAction, &band,
		&e.PriorExpiryDate, &e.NewExpiryDate, &undoesID,
		&e.CreatedAt, &e.IsUndone, &e.UndoneAt, &e.UndoneBy,
	)
	if err != nil {
		return nil, err
	}
	e.Type = expiry.ActionType(typ)
	e.BandAtAction = expiry.Band(band)
	e.UndoesActionID = derefString(undoesID)
	e.CreatedAt = e.CreatedAt.UTC()
	if e.UndoneAt != nil {
		t := e.UndoneAt.UTC()
		e.UndoneAt = &t
	}
	for _, d := range []**time.Time{&e.ExpiryDateAtAction, &e.PriorExpiryDate, &e.NewExpiryDate} {
		if *d != nil {
			*d = expiry.DatePtr(**d)
		}
	}
	return &e, nil
}

func scanActions(rows pgx.Rows) ([]*expiry.ActionEntry, error) {
	defer rows.Close()
	var out []*expiry.ActionEntry
	for rows.Next() {
		e, err := scanAction(rows)
		if err != nil {
			return nil, queryError(err, "failed to scan action row")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "row iteration error")
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

type settingsRepo struct{ s *ExpiryStore }

func (r *settingsRepo) GetSettings(ctx context.Context) (expiry.Settings, error) {
	var out expiry.Settings
	err := r.s.q.QueryRow(ctx,
		`SELECT enabled, warning_days, critical_days FROM expiry_settings WHERE id = 1`,
	).Scan(&out.Enabled, &out.WarningDays, &out.CriticalDays)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.s.defaults, nil
	}
	if err != nil {
		return expiry.Settings{}, queryError(err, "failed to load settings")
	}
	return out, nil
}

func (r *settingsRepo) SaveSettings(ctx context.Context, s expiry.Settings) error {
	_, err := r.s.q.Exec(ctx, `
		INSERT INTO expiry_settings (id, enabled, warning_days, critical_days, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			warning_days = EXCLUDED.warning_days,
			critical_days = EXCLUDED.critical_days,
			updated_at = NOW()`,
		s.Enabled, s.WarningDays, s.CriticalDays)
	if err != nil {
		return queryError(err, "failed to save settings")
	}
	return nil
}

var _ expiry.Store = (*ExpiryStore)(nil)
