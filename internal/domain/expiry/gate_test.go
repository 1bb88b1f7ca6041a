package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsUnprocessed(t *testing.T) {
	now := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	cal := NewCalendar(FixedClock{T: now}, time.UTC)
	s := Settings{Enabled: true, CriticalDays: 0, WarningDays: 3}

	todayAt := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	yesterday := time.Date(2024, 6, 9, 18, 0, 0, 0, time.UTC)

	entry := func(typ ActionType, at time.Time) *ActionEntry {
		return &ActionEntry{ID: "e", ProductID: "p", Type: typ, CreatedAt: at}
	}

	cases := []struct {
		name     string
		expiry   time.Time
		excluded bool
		last     *ActionEntry
		want     bool
	}{
		{"no action", Date(2024, 6, 11), false, nil, true},
		{"action yesterday", Date(2024, 6, 11), false, entry(ActionLabeled, yesterday), true},
		{"labeled today", Date(2024, 6, 11), false, entry(ActionLabeled, todayAt), false},
		{"removed today", Date(2024, 6, 10), false, entry(ActionRemoved, todayAt), false},
		{"date updated out of risk", Date(2024, 7, 1), false, entry(ActionDateUpdated, todayAt), false},
		{"date updated still critical", Date(2024, 6, 10), false, entry(ActionDateUpdated, todayAt), true},
		{"date updated still warning", Date(2024, 6, 12), false, entry(ActionDateUpdated, todayAt), true},
		{"excluded no action", Date(2024, 6, 10), true, nil, true},
		{"excluded deactivated yesterday", Date(2024, 6, 10), true, &ActionEntry{Type: ActionRemoved, ExcludedFromCheck: true, CreatedAt: yesterday}, true},
		{"excluded reconfirmed today", Date(2024, 6, 10), true, entry(ActionRemoved, todayAt), false},
		{"excluded date updated today into risk", Date(2024, 6, 10), true, entry(ActionDateUpdated, todayAt), false},
		{"undone entry is ignored", Date(2024, 6, 11), false, &ActionEntry{Type: ActionLabeled, CreatedAt: todayAt, IsUndone: true}, true},
		{"undo marker is ignored", Date(2024, 6, 11), false, entry(ActionUndone, todayAt), true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := dated("p", tc.expiry)
			p.ExcludeFromExpiryCheck = tc.excluded
			c := Classify(p, s, cal.Today())
			assert.Equal(t, tc.want, IsUnprocessed(p, c, tc.last, cal))
		})
	}
}

func TestIsUnprocessed_DailyReset(t *testing.T) {
	deactivatedAt := time.Date(2024, 6, 9, 10, 0, 0, 0, time.UTC)
	last := &ActionEntry{Type: ActionRemoved, ExcludedFromCheck: true, CreatedAt: deactivatedAt}
	p := dated("p", Date(2024, 6, 9))
	p.ExcludeFromExpiryCheck = true
	s := DefaultSettings()

	sameDay := NewCalendar(FixedClock{T: deactivatedAt.Add(time.Hour)}, time.UTC)
	assert.False(t, IsUnprocessed(p, Classify(p, s, sameDay.Today()), last, sameDay))

	nextDay := NewCalendar(FixedClock{T: deactivatedAt.Add(24 * time.Hour)}, time.UTC)
	assert.True(t, IsUnprocessed(p, Classify(p, s, nextDay.Today()), last, nextDay))
}

func TestIsUnprocessed_MidnightInConfiguredZone(t *testing.T) {
	loc := berlin(t)
	// 23:30 Berlin on June 9 is 21:30 UTC; a check at 00:30 Berlin on June 10
	// is a new civil day even though UTC is still June 9.
	acted := time.Date(2024, 6, 9, 23, 30, 0, 0, loc)
	check := time.Date(2024, 6, 10, 0, 30, 0, 0, loc)
	cal := NewCalendar(FixedClock{T: check}, loc)

	p := dated("p", Date(2024, 6, 11))
	last := &ActionEntry{Type: ActionLabeled, CreatedAt: acted.UTC()}
	assert.True(t, IsUnprocessed(p, Classify(p, DefaultSettings(), cal.Today()), last, cal))
}
