// Package memory is an in-process implementation of the expiry Store used
// by the dev profile and by tests. State can optionally be snapshotted to a
// JSON file after every committed write so a dev server survives restarts.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/FreshGuard/internal/domain/expiry"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

type state struct {
	Products map[string]*expiry.Product     `json:"products"`
	Entries  map[string]*expiry.ActionEntry `json:"entries"`
	Settings *expiry.Settings               `json:"settings,omitempty"`
}

func newState() *state {
	return &state{
		Products: make(map[string]*expiry.Product),
		Entries:  make(map[string]*expiry.ActionEntry),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, p := range s.Products {
		c.Products[id] = p.Clone()
	}
	for id, e := range s.Entries {
		c.Entries[id] = e.Clone()
	}
	if s.Settings != nil {
		v := *s.Settings
		c.Settings = &v
	}
	return c
}

// Store keeps products, ledger and settings in memory.
type Store struct {
	mu           sync.RWMutex
	txMu         sync.Mutex
	data         *state
	snapshotPath string
	defaults     expiry.Settings
}

// Option configures a Store.
type Option func(*Store)

// WithSnapshot persists state to path after each commit and loads it on start.
func WithSnapshot(path string) Option {
	return func(s *Store) { s.snapshotPath = path }
}

// WithDefaultSettings sets the thresholds reported until settings are saved.
func WithDefaultSettings(d expiry.Settings) Option {
	return func(s *Store) { s.defaults = d }
}

// NewStore returns an empty Store, or one restored from its snapshot file.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{data: newState(), defaults: expiry.DefaultSettings()}
	for _, o := range opts {
		o(s)
	}
	if s.snapshotPath == "" {
		return s, nil
	}
	raw, err := os.ReadFile(s.snapshotPath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: read snapshot: %w", err)
	}
	loaded := newState()
	if err := json.Unmarshal(raw, loaded); err != nil {
		return nil, fmt.Errorf("memory: decode snapshot: %w", err)
	}
	s.data = loaded
	return s, nil
}

// PutProduct inserts or replaces a catalog product. The catalog owns product
// CRUD; this exists for seeding dev data and tests.
func (s *Store) PutProduct(p *expiry.Product) error {
	return s.write(func(d *state) error {
		c := p.Clone()
		if c.ExpiryDate != nil {
			c.ExpiryDate = expiry.DatePtr(*c.ExpiryDate)
		}
		d.Products[p.ID] = c
		return nil
	})
}

// UpsertProduct is PutProduct with the signature shared with the Postgres
// store.
func (s *Store) UpsertProduct(_ context.Context, p *expiry.Product) error {
	return s.PutProduct(p)
}

func (s *Store) Products() expiry.ProductStore { return &view{store: s} }
func (s *Store) Ledger() expiry.Ledger         { return &view{store: s} }
func (s *Store) Settings() expiry.SettingsStore { return &view{store: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// WithTx runs fn against a private copy of the state and swaps it in when
// fn succeeds. Transactions are serialized, so a product read inside fn
// cannot change underneath it.
func (s *Store) WithTx(ctx context.Context, fn func(tx expiry.Store) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Dependency(err, "transaction cancelled")
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := &Store{data: s.data.clone(), defaults: s.defaults}
	s.mu.RUnlock()

	if err := fn(&txStore{Store: work}); err != nil {
		return err
	}
	if err := s.persist(work.data); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work.data
	s.mu.Unlock()
	return nil
}

// txStore runs nested WithTx calls inline in the enclosing transaction.
type txStore struct {
	*Store
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx expiry.Store) error) error {
	return fn(t)
}

// write applies fn to the live state outside any transaction. It takes the
// transaction mutex so a concurrent commit cannot overwrite the change.
func (s *Store) write(fn func(d *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	next := s.data
	if s.snapshotPath != "" {
		next = s.data.clone()
	}
	err := fn(next)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if next == s.data {
		return nil
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

func (s *Store) persist(data *state) error {
	if s.snapshotPath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSerialization, "encode snapshot")
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		return apperrors.Dependency(err, "create snapshot directory")
	}
	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return apperrors.Dependency(err, "write snapshot")
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return apperrors.Dependency(err, "replace snapshot")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// view implements ProductStore, Ledger and SettingsStore over one Store.
// ─────────────────────────────────────────────────────────────────────────────

type view struct {
	store *Store
}

func productNotFound(id string) error {
	return apperrors.New(apperrors.ErrCodeProductNotFound, "product not found").WithDetail("id=" + id)
}

func (v *view) GetProduct(_ context.Context, id string) (*expiry.Product, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	p, ok := v.store.data.Products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	return p.Clone(), nil
}

func (v *view) LockProduct(ctx context.Context, id string) (*expiry.Product, error) {
	return v.GetProduct(ctx, id)
}

func (v *view) ListExpiringBy(_ context.Context, cutoff time.Time) ([]*expiry.Product, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	var out []*expiry.Product
	for _, p := range v.store.data.Products {
		if p.ExpiryDate != nil && !p.ExpiryDate.After(cutoff) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(*out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) ListByIDs(_ context.Context, ids []string) ([]*expiry.Product, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	out := make([]*expiry.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := v.store.data.Products[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (v *view) UpdateExpiryDate(_ context.Context, id string, date *time.Time) error {
	return v.store.write(func(d *state) error {
		p, ok := d.Products[id]
		if !ok {
			return productNotFound(id)
		}
		if date == nil {
			p.ExpiryDate = nil
		} else {
			p.ExpiryDate = expiry.DatePtr(*date)
		}
		return nil
	})
}

func (v *view) SetExcluded(_ context.Context, id string, excluded bool) error {
	return v.store.write(func(d *state) error {
		p, ok := d.Products[id]
		if !ok {
			return productNotFound(id)
		}
		p.ExcludeFromExpiryCheck = excluded
		return nil
	})
}

func (v *view) Append(_ context.Context, e *expiry.ActionEntry) error {
	return v.store.write(func(d *state) error {
		if _, exists := d.Entries[e.ID]; exists {
			return apperrors.New(apperrors.CodeConflict, "duplicate action id").WithDetail("id=" + e.ID)
		}
		d.Entries[e.ID] = e.Clone()
		return nil
	})
}

func (v *view) Get(_ context.Context, id string) (*expiry.ActionEntry, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	e, ok := v.store.data.Entries[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeActionNotFound, "action not found").WithDetail("id=" + id)
	}
	return e.Clone(), nil
}

func (v *view) ListByProduct(ctx context.Context, productID string) ([]*expiry.ActionEntry, error) {
	m, err := v.ListByProducts(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	return m[productID], nil
}

func (v *view) ListByProducts(_ context.Context, productIDs []string) (map[string][]*expiry.ActionEntry, error) {
	want := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		want[id] = struct{}{}
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	out := make(map[string][]*expiry.ActionEntry, len(productIDs))
	for _, e := range v.store.data.Entries {
		if _, ok := want[e.ProductID]; ok {
			out[e.ProductID] = append(out[e.ProductID], e.Clone())
		}
	}
	for _, list := range out {
		expiry.SortNewestFirst(list)
	}
	return out, nil
}

func (v *view) List(_ context.Context, f expiry.HistoryFilter) ([]*expiry.ActionEntry, error) {
	v.store.mu.RLock()
	var out []*expiry.ActionEntry
	for _, e := range v.store.data.Entries {
		if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, e.Clone())
	}
	v.store.mu.RUnlock()

	expiry.SortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (v *view) MarkUndone(_ context.Context, id string, at time.Time, by string) error {
	return v.store.write(func(d *state) error {
		e, ok := d.Entries[id]
		if !ok {
			return apperrors.New(apperrors.ErrCodeActionNotFound, "action not found").WithDetail("id=" + id)
		}
		if e.IsUndone {
			return apperrors.New(apperrors.ErrCodeActionAlreadyUndone, "action already undone").WithDetail("id=" + id)
		}
		e.IsUndone = true
		e.UndoneAt = &at
		e.UndoneBy = by
		return nil
	})
}

func (v *view) GetSettings(context.Context) (expiry.Settings, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	if v.store.data.Settings == nil {
		return v.store.defaults, nil
	}
	return *v.store.data.Settings, nil
}

func (v *view) SaveSettings(_ context.Context, s expiry.Settings) error {
	return v.store.write(func(d *state) error {
		d.Settings = &s
		return nil
	})
}

var _ expiry.Store = (*Store)(nil)
