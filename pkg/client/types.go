package client

import "time"

// Band values as reported by the API.
const (
	BandCritical = "critical"
	BandWarning  = "warning"
	BandNormal   = "normal"
)

type Product struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Category               string     `json:"category"`
	Barcode                string     `json:"barcode,omitempty"`
	ExpiryDate             *time.Time `json:"expiryDate"`
	ExcludeFromExpiryCheck bool       `json:"excludeFromExpiryCheck"`
}

type Classification struct {
	DaysUntilExpiry int    `json:"daysUntilExpiry"`
	Band            string `json:"band"`
	Dated           bool   `json:"dated"`
}

// Action is one ledger entry.
type Action struct {
	ID                      string     `json:"id"`
	ProductID               string     `json:"productId"`
	AdminID                 string     `json:"adminId"`
	ActionType              string     `json:"actionType"`
	ExcludedFromCheck       bool       `json:"excludedFromCheck"`
	Note                    string     `json:"note,omitempty"`
	ExpiryDateAtAction      *time.Time `json:"expiryDateAtAction"`
	DaysUntilExpiryAtAction *int       `json:"daysUntilExpiryAtAction"`
	BandAtAction            string     `json:"bandAtAction"`
	PriorExpiryDate         *time.Time `json:"priorExpiryDate,omitempty"`
	NewExpiryDate           *time.Time `json:"newExpiryDate,omitempty"`
	UndoesActionID          string     `json:"undoesActionId,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	IsUndone                bool       `json:"isUndone"`
	UndoneAt                *time.Time `json:"undoneAt,omitempty"`
	UndoneBy                string     `json:"undoneBy,omitempty"`
}

// WorkItem is a product with its resolved band and processing state.
type WorkItem struct {
	Product        *Product       `json:"product"`
	Classification Classification `json:"classification"`
	LastAction     *Action        `json:"lastAction"`
	ResolvedBand   string         `json:"resolvedBand"`
	Unprocessed    bool           `json:"unprocessed"`
}

type Settings struct {
	Enabled      bool `json:"enabled"`
	WarningDays  int  `json:"warningDays"`
	CriticalDays int  `json:"criticalDays"`
}

type GroupSummary struct {
	Key             string  `json:"key"`
	Total           int     `json:"total"`
	Processed       int     `json:"processed"`
	Unprocessed     int     `json:"unprocessed"`
	Excluded        int     `json:"excluded"`
	PercentComplete float64 `json:"percentComplete"`
}

type Summary struct {
	Overall    GroupSummary   `json:"overall"`
	ByBand     []GroupSummary `json:"byBand"`
	ByCategory []GroupSummary `json:"byCategory"`
}

type Worklist struct {
	Date      string     `json:"date"`
	Settings  Settings   `json:"settings"`
	Critical  []WorkItem `json:"critical"`
	Warning   []WorkItem `json:"warning"`
	Summary   Summary    `json:"summary"`
	Fallbacks []string   `json:"fallbacks,omitempty"`
}

// HistoryItem is a ledger entry with the product's display fields.
type HistoryItem struct {
	Action
	ProductName string `json:"productName"`
	Category    string `json:"category"`
}

type UndoResult struct {
	Undone       *Action  `json:"undone"`
	Marker       *Action  `json:"marker"`
	Status       WorkItem `json:"status"`
	DateRestored bool     `json:"dateRestored"`
}

type ReportItem struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Band            string `json:"band"`
	DaysUntilExpiry int    `json:"daysUntilExpiry"`
}

type Report struct {
	Kind                string       `json:"kind"`
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

type NotifyResult struct {
	Report    Report `json:"report"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type ArchiveResult struct {
	Key     string `json:"key"`
	Date    string `json:"date"`
	Entries int    `json:"entries"`
	Bytes   int    `json:"bytes"`
}

// HistoryOptions filters History. A zero Date means all days.
type HistoryOptions struct {
	Date   time.Time
	Limit  int
	Latest bool
}

// RemoveOptions describes a removal. Without NewExpiryDate and with
// ExcludeFromCheck unset the product keeps its date.
type RemoveOptions struct {
	ExcludeFromCheck bool
	NewExpiryDate    *time.Time
	Note             string
}
