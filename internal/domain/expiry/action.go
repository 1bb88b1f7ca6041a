package expiry

import (
	"fmt"
	"sort"
	"time"
)

// ActionType is the closed set of ledger entry kinds.
type ActionType string

const (
	// ActionLabeled marks an item as discount-labeled ("Reduziert!").
	ActionLabeled ActionType = "labeled"
	// ActionRemoved sorts an item out. ExcludedFromCheck on the entry tells a
	// permanent deactivation apart from a same-day removal.
	ActionRemoved ActionType = "removed"
	// ActionDateUpdated corrects the expiry date.
	ActionDateUpdated ActionType = "date_updated"
	// ActionUndone is the marker appended when another entry is undone.
	ActionUndone ActionType = "undone"
)

// ParseActionType parses an action type name.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionLabeled, ActionRemoved, ActionDateUpdated, ActionUndone:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// ActionEntry is one immutable ledger row. After creation only IsUndone,
// UndoneAt and UndoneBy change.
type ActionEntry struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"productId"`
	AdminID           string     `json:"adminId"`
	Type              ActionType `json:"actionType"`
	ExcludedFromCheck bool       `json:"excludedFromCheck"`
	Note              string     `json:"note,omitempty"`

	// Snapshot of the product immediately before the action.
	ExpiryDateAtAction      *time.Time `json:"expiryDateAtAction"`
	DaysUntilExpiryAtAction *int       `json:"daysUntilExpiryAtAction"`
	BandAtAction            Band       `json:"bandAtAction"`

	// PriorExpiryDate and NewExpiryDate are set when the action changed the
	// product's expiry date.
	PriorExpiryDate *time.Time `json:"priorExpiryDate,omitempty"`
	NewExpiryDate   *time.Time `json:"newExpiryDate,omitempty"`

	// UndoesActionID is set on ActionUndone markers only.
	UndoesActionID string `json:"undoesActionId,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	IsUndone  bool       `json:"isUndone"`
	UndoneAt  *time.Time `json:"undoneAt,omitempty"`
	UndoneBy  string     `json:"undoneBy,omitempty"`
}

// Clone returns a deep copy of e.
func (e *ActionEntry) Clone() *ActionEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.ExpiryDateAtAction = cloneDate(e.ExpiryDateAtAction)
	c.PriorExpiryDate = cloneDate(e.PriorExpiryDate)
	c.NewExpiryDate = cloneDate(e.NewExpiryDate)
	c.UndoneAt = cloneDate(e.UndoneAt)
	if e.DaysUntilExpiryAtAction != nil {
		d := *e.DaysUntilExpiryAtAction
		c.DaysUntilExpiryAtAction = &d
	}
	return &c
}

// Effective reports whether e can be the last action of its product.
func (e *ActionEntry) Effective() bool {
	return e != nil && !e.IsUndone && e.Type != ActionUndone
}

// Snapshot fills the at-action fields from the product state before the
// action is applied.
func (e *ActionEntry) Snapshot(p *Product, c Classification) {
	e.ExpiryDateAtAction = cloneDate(p.ExpiryDate)
	e.BandAtAction = c.Band
	if c.Dated {
		d := c.DaysUntilExpiry
		e.DaysUntilExpiryAtAction = &d
	}
}

// LastAction returns the effective entry with the latest CreatedAt, or nil.
// Ties are broken by ID so the choice is stable.
func LastAction(entries []*ActionEntry) *ActionEntry {
	var last *ActionEntry
	for _, e := range entries {
		if !e.Effective() {
			continue
		}
		if last == nil || e.CreatedAt.After(last.CreatedAt) ||
			(e.CreatedAt.Equal(last.CreatedAt) && e.ID > last.ID) {
			last = e
		}
	}
	return last
}

// SortNewestFirst orders entries by CreatedAt descending, then ID descending.
func SortNewestFirst(entries []*ActionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}

// LatestPerProduct keeps the newest entry of every product, preserving the
// newest-first order. entries must already be sorted newest first.
func LatestPerProduct(entries []*ActionEntry) []*ActionEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]*ActionEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ProductID]; ok {
			continue
		}
		seen[e.ProductID] = struct{}{}
		out = append(out, e)
	}
	return out
}
