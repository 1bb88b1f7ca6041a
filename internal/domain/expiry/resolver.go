package expiry

import (
	"fmt"
	"strings"
	"time"
)

// FallbackPolicy decides where a product goes when it was surfaced by both
// raw band queries, now lies outside both windows, and its history holds no
// usable prior classification.
type FallbackPolicy string

const (
	// FallbackWarning places such products in the warning list.
	FallbackWarning FallbackPolicy = "warning"
	// FallbackCritical places such products in the critical list.
	FallbackCritical FallbackPolicy = "critical"
)

// ParseFallbackPolicy parses a policy name; empty means FallbackWarning.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackWarning:
		return FallbackWarning, nil
	case FallbackCritical:
		return FallbackCritical, nil
	}
	return "", fmt.Errorf("unknown dedup fallback policy %q", s)
}

func (p FallbackPolicy) band() Band {
	if p == FallbackCritical {
		return BandCritical
	}
	return BandWarning
}

// Candidate is a product returned by a raw band query together with what the
// resolver and gate need to know about it.
type Candidate struct {
	Product        *Product       `json:"product"`
	Classification Classification `json:"classification"`
	LastAction     *ActionEntry   `json:"lastAction"`
}

// Resolution is the deduplicated, disjoint split of the raw band lists.
type Resolution struct {
	Critical []Candidate
	Warning  []Candidate
	// Fallbacks lists product ids placed by the fallback policy.
	Fallbacks []string
}

type sighting struct {
	candidate  Candidate
	inCritical bool
	inWarning  bool
}

// Resolve merges the raw critical and warning query results into two
// disjoint lists. The current classification wins whenever it lands in a
// risk band. Products now outside both windows stay in the only list that
// returned them; if both did, the band of the last action's snapshot is
// used, then the band of its prior expiry date, then policy.
func Resolve(critical, warning []Candidate, s Settings, today time.Time, policy FallbackPolicy) Resolution {
	order := make([]string, 0, len(critical)+len(warning))
	seen := make(map[string]*sighting, len(critical)+len(warning))

	mark := func(list []Candidate, inCritical bool) {
		for _, c := range list {
			if c.Product == nil {
				continue
			}
			st, ok := seen[c.Product.ID]
			if !ok {
				st = &sighting{candidate: c}
				seen[c.Product.ID] = st
				order = append(order, c.Product.ID)
			}
			if inCritical {
				st.inCritical = true
			} else {
				st.inWarning = true
			}
		}
	}
	mark(critical, true)
	mark(warning, false)

	var res Resolution
	for _, id := range order {
		st := seen[id]
		band := st.candidate.Classification.Band
		if !band.IsRisk() {
			switch {
			case st.inCritical && !st.inWarning:
				band = BandCritical
			case st.inWarning && !st.inCritical:
				band = BandWarning
			default:
				var recovered bool
				band, recovered = priorBand(st.candidate.LastAction, s, today)
				if !recovered {
					band = policy.band()
					res.Fallbacks = append(res.Fallbacks, id)
				}
			}
		}
		if band == BandCritical {
			res.Critical = append(res.Critical, st.candidate)
		} else {
			res.Warning = append(res.Warning, st.candidate)
		}
	}
	return res
}

// priorBand recovers the risk band a product had before its last action.
func priorBand(last *ActionEntry, s Settings, today time.Time) (Band, bool) {
	if last == nil {
		return "", false
	}
	if last.DaysUntilExpiryAtAction != nil {
		if b := s.BandFor(*last.DaysUntilExpiryAtAction); b.IsRisk() {
			return b, true
		}
	}
	if last.PriorExpiryDate != nil {
		if b := s.BandFor(DaysBetween(today, *last.PriorExpiryDate)); b.IsRisk() {
			return b, true
		}
	}
	return "", false
}
