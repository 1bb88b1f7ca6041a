package expiry

import (
	"context"
	"time"
)

// ProductStore is the catalog collaborator as seen by the engine.
type ProductStore interface {
	// GetProduct returns ErrCodeProductNotFound for unknown ids.
	GetProduct(ctx context.Context, id string) (*Product, error)
	// LockProduct loads the product and holds a row lock until the enclosing
	// transaction ends. Outside a transaction it behaves like GetProduct.
	LockProduct(ctx context.Context, id string) (*Product, error)
	// ListExpiringBy returns dated products whose expiry date is on or
	// before cutoff, ordered by expiry date then name.
	ListExpiringBy(ctx context.Context, cutoff time.Time) ([]*Product, error)
	// ListByIDs returns the known products among ids. Unknown ids are skipped.
	ListByIDs(ctx context.Context, ids []string) ([]*Product, error)
	UpdateExpiryDate(ctx context.Context, id string, date *time.Time) error
	SetExcluded(ctx context.Context, id string, excluded bool) error
}

// HistoryFilter selects ledger entries. Zero From/To mean unbounded; a
// non-positive Limit means no limit.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Ledger is the append-only action store.
type Ledger interface {
	Append(ctx context.Context, entry *ActionEntry) error
	// Get returns ErrCodeActionNotFound for unknown ids.
	Get(ctx context.Context, id string) (*ActionEntry, error)
	ListByProduct(ctx context.Context, productID string) ([]*ActionEntry, error)
	ListByProducts(ctx context.Context, productIDs []string) (map[string][]*ActionEntry, error)
	// List returns entries with From <= CreatedAt < To, newest first.
	List(ctx context.Context, filter HistoryFilter) ([]*ActionEntry, error)
	// MarkUndone flips IsUndone on an entry that is not undone yet. It returns
	// ErrCodeActionAlreadyUndone when the flag was already set.
	MarkUndone(ctx context.Context, id string, at time.Time, by string) error
}

// SettingsStore holds the single threshold record.
type SettingsStore interface {
	// GetSettings returns DefaultSettings when nothing was stored yet.
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Store bundles the three collaborators and provides transactions.
type Store interface {
	Products() ProductStore
	Ledger() Ledger
	Settings() SettingsStore
	// WithTx runs fn against a transactional view of the store. fn's writes
	// are committed together when it returns nil and discarded otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
