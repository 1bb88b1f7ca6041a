package expiry

import "sort"

// UncategorizedKey groups products without a category.
const UncategorizedKey = "uncategorized"

// WorkItem is one deduplicated product with its resolved band and gate state.
type WorkItem struct {
	Candidate
	Band        Band `json:"resolvedBand"`
	Unprocessed bool `json:"unprocessed"`
}

// GroupSummary holds completion counts for one group. Excluded products are
// counted in Total and Excluded only; PercentComplete is taken over
// Processed+Unprocessed.
type GroupSummary struct {
	Key             string  `json:"key"`
	Total           int     `json:"total"`
	Processed       int     `json:"processed"`
	Unprocessed     int     `json:"unprocessed"`
	Excluded        int     `json:"excluded"`
	PercentComplete float64 `json:"percentComplete"`
}

// Summary is the read-side view over a worklist.
type Summary struct {
	Overall    GroupSummary   `json:"overall"`
	ByBand     []GroupSummary `json:"byBand"`
	ByCategory []GroupSummary `json:"byCategory"`
}

func (it WorkItem) excluded() bool {
	return it.Product != nil && it.Product.ExcludeFromExpiryCheck
}

func (g *GroupSummary) add(it WorkItem) {
	g.Total++
	switch {
	case it.excluded():
		g.Excluded++
	case it.Unprocessed:
		g.Unprocessed++
	default:
		g.Processed++
	}
}

func (g *GroupSummary) finish() {
	counted := g.Processed + g.Unprocessed
	if counted == 0 {
		g.PercentComplete = 100
		return
	}
	g.PercentComplete = float64(g.Processed) * 100 / float64(counted)
}

// Summarize groups items by band and by category. Bands are always reported
// critical first; categories are sorted by name.
func Summarize(items []WorkItem) Summary {
	sum := Summary{Overall: GroupSummary{Key: "all"}}
	bands := map[Band]*GroupSummary{
		BandCritical: {Key: string(BandCritical)},
		BandWarning:  {Key: string(BandWarning)},
	}
	cats := make(map[string]*GroupSummary)

	for _, it := range items {
		sum.Overall.add(it)
		if g, ok := bands[it.Band]; ok {
			g.add(it)
		}
		key := UncategorizedKey
		if it.Product != nil && it.Product.Category != "" {
			key = it.Product.Category
		}
		g, ok := cats[key]
		if !ok {
			g = &GroupSummary{Key: key}
			cats[key] = g
		}
		g.add(it)
	}

	sum.Overall.finish()
	for _, b := range []Band{BandCritical, BandWarning} {
		bands[b].finish()
		sum.ByBand = append(sum.ByBand, *bands[b])
	}
	keys := make([]string, 0, len(cats))
	for k := range cats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cats[k].finish()
		sum.ByCategory = append(sum.ByCategory, *cats[k])
	}
	return sum
}

// CountUnprocessed counts unprocessed items per band, skipping products that
// are administratively excluded.
func CountUnprocessed(items []WorkItem) (critical, warning int) {
	for _, it := range items {
		if !it.Unprocessed || it.excluded() {
			continue
		}
		switch it.Band {
		case BandCritical:
			critical++
		case BandWarning:
			warning++
		}
	}
	return critical, warning
}
