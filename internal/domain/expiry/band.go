package expiry

import (
	"fmt"
	"time"
)

// Band is the urgency classification of a product.
type Band string

const (
	BandCritical Band = "critical"
	BandWarning  Band = "warning"
	BandNormal   Band = "normal"
)

// Urgency orders bands: Normal < Warning < Critical.
func (b Band) Urgency() int {
	switch b {
	case BandCritical:
		return 2
	case BandWarning:
		return 1
	default:
		return 0
	}
}

// IsRisk reports whether b is Critical or Warning.
func (b Band) IsRisk() bool { return b == BandCritical || b == BandWarning }

// ParseBand parses a band name.
func ParseBand(s string) (Band, error) {
	switch Band(s) {
	case BandCritical, BandWarning, BandNormal:
		return Band(s), nil
	}
	return "", fmt.Errorf("unknown band %q", s)
}

// Classification is the result of classifying one product on one day.
type Classification struct {
	DaysUntilExpiry int  `json:"daysUntilExpiry"`
	Band            Band `json:"band"`
	// Dated is false when the product has no expiry date; such products are
	// always Normal.
	Dated bool `json:"dated"`
}

// Classify computes days-until-expiry and the band for p. Already expired
// products have negative days and are Critical. Excluded products are
// classified like any other.
func Classify(p *Product, s Settings, today time.Time) Classification {
	if p == nil || p.ExpiryDate == nil {
		return Classification{Band: BandNormal}
	}
	days := DaysBetween(today, *p.ExpiryDate)
	return Classification{DaysUntilExpiry: days, Band: s.BandFor(days), Dated: true}
}
