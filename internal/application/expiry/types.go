package expiry

import (
	"time"

	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// LabelRequest marks a product as discount-labeled.
type LabelRequest struct {
	ProductID string
	AdminID   string
	Note      string
}

// RemoveCriticalRequest sorts an item out of the critical shelf. A
// replacement expiry date is mandatory.
type RemoveCriticalRequest struct {
	ProductID     string
	AdminID       string
	NewExpiryDate *time.Time
	Note          string
}

// DeactivateRequest permanently excludes a product from expiry checks. A new
// expiry date may be recorded at the same time.
type DeactivateRequest struct {
	ProductID     string
	AdminID       string
	NewExpiryDate *time.Time
	Note          string
}

// RemoveRequest is the combined remove endpoint payload.
type RemoveRequest struct {
	ProductID        string
	AdminID          string
	ExcludeFromCheck bool
	NewExpiryDate    *time.Time
	Note             string
}

// UpdateDateRequest corrects a product's expiry date.
type UpdateDateRequest struct {
	ProductID     string
	AdminID       string
	NewExpiryDate *time.Time
	Note          string
}

// UndoRequest reverses one ledger entry.
type UndoRequest struct {
	ActionID string
	AdminID  string
}

// WorklistQuery controls the deduplicated, gated view.
type WorklistQuery struct {
	// IncludeProcessed keeps handled items in the item lists. The summary
	// always covers every item.
	IncludeProcessed bool
}

// HistoryQuery filters the ledger.
type HistoryQuery struct {
	// Date restricts entries to one civil day in the configured zone.
	Date *time.Time
	// Limit defaults to Config.HistoryDefaultLimit and is capped at
	// Config.HistoryMaxLimit.
	Limit int
	// LatestPerProduct keeps only the newest entry of every product.
	LatestPerProduct bool
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// ProductStatus is a product with everything the gate looked at.
type ProductStatus = domainExpiry.WorkItem

// Worklist is the deduplicated, gated and aggregated view of one day.
type Worklist struct {
	Date      string                  `json:"date"`
	Settings  domainExpiry.Settings   `json:"settings"`
	Critical  []domainExpiry.WorkItem `json:"critical"`
	Warning   []domainExpiry.WorkItem `json:"warning"`
	Summary   domainExpiry.Summary    `json:"summary"`
	Fallbacks []string                `json:"fallbacks,omitempty"`
}

// HistoryItem is a ledger entry with the product's display fields.
type HistoryItem struct {
	*domainExpiry.ActionEntry
	ProductName string `json:"productName"`
	Category    string `json:"category"`
}

// UndoResult reports the reversed entry, the marker appended for it and the
// product's state afterwards.
type UndoResult struct {
	Undone *domainExpiry.ActionEntry `json:"undone"`
	Marker *domainExpiry.ActionEntry `json:"marker"`
	Status ProductStatus             `json:"status"`
	// DateRestored is true when the live expiry date was rolled back.
	DateRestored bool `json:"dateRestored"`
}

// NotifyResult reports what was forwarded to the mail collaborator.
type NotifyResult struct {
	Report    domainExpiry.Report `json:"report"`
	Delivered bool                `json:"delivered"`
	Error     string              `json:"error,omitempty"`
}

// ArchiveResult describes an exported ledger day.
type ArchiveResult struct {
	Key     string `json:"key"`
	Date    string `json:"date"`
	Entries int    `json:"entries"`
	Bytes   int    `json:"bytes"`
}
