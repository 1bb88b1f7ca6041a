package expiry

import "time"

// Product is the catalog's view of an item, referenced here by id. The
// catalog owns it; this package only reads it and writes ExpiryDate and
// ExcludeFromExpiryCheck.
type Product struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Category               string     `json:"category"`
	Barcode                string     `json:"barcode,omitempty"`
	ExpiryDate             *time.Time `json:"expiryDate"`
	ExcludeFromExpiryCheck bool       `json:"excludeFromExpiryCheck"`
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.ExpiryDate = cloneDate(p.ExpiryDate)
	return &c
}

func cloneDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// DatePtr returns a pointer to the civil date of t.
func DatePtr(t time.Time) *time.Time {
	d := DateOnly(t)
	return &d
}
