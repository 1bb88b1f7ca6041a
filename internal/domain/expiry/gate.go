package expiry

// IsUnprocessed reports whether staff still need to act on p today. It is
// derived on every read from the product, its current classification and its
// last effective action; nothing about it is stored.
//
//   - excluded products need attention unless their last action is from today
//   - a date update today only counts as handled if it moved the product out
//     of the risk bands
//   - any other action today counts as handled
//   - no action today means unprocessed
func IsUnprocessed(p *Product, c Classification, last *ActionEntry, cal *Calendar) bool {
	actedToday := last.Effective() && cal.IsToday(last.CreatedAt)

	if p.ExcludeFromExpiryCheck {
		return !actedToday
	}
	if !actedToday {
		return true
	}
	if last.Type == ActionDateUpdated {
		return c.Band.IsRisk()
	}
	return false
}
