package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastAction(t *testing.T) {
	base := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	e1 := &ActionEntry{ID: "1", Type: ActionLabeled, CreatedAt: base}
	e2 := &ActionEntry{ID: "2", Type: ActionDateUpdated, CreatedAt: base.Add(time.Hour)}
	e3 := &ActionEntry{ID: "3", Type: ActionRemoved, CreatedAt: base.Add(2 * time.Hour), IsUndone: true}
	marker := &ActionEntry{ID: "4", Type: ActionUndone, UndoesActionID: "3", CreatedAt: base.Add(3 * time.Hour)}

	assert.Nil(t, LastAction(nil))
	assert.Same(t, e2, LastAction([]*ActionEntry{marker, e3, e1, e2}))
	assert.Nil(t, LastAction([]*ActionEntry{e3, marker}))

	tieA := &ActionEntry{ID: "a", Type: ActionLabeled, CreatedAt: base}
	tieB := &ActionEntry{ID: "b", Type: ActionLabeled, CreatedAt: base}
	assert.Same(t, tieB, LastAction([]*ActionEntry{tieB, tieA}))
}

func TestActionEntry_Snapshot(t *testing.T) {
	p := dated("p", Date(2024, 6, 12))
	e := &ActionEntry{}
	e.Snapshot(p, Classify(p, DefaultSettings(), Date(2024, 6, 10)))

	require.NotNil(t, e.DaysUntilExpiryAtAction)
	assert.Equal(t, 2, *e.DaysUntilExpiryAtAction)
	assert.Equal(t, BandWarning, e.BandAtAction)
	require.NotNil(t, e.ExpiryDateAtAction)
	*p.ExpiryDate = Date(2025, 1, 1)
	assert.Equal(t, Date(2024, 6, 12), *e.ExpiryDateAtAction)

	undated := &ActionEntry{}
	undated.Snapshot(&Product{ID: "u"}, Classification{Band: BandNormal})
	assert.Nil(t, undated.DaysUntilExpiryAtAction)
	assert.Nil(t, undated.ExpiryDateAtAction)
}

func TestActionEntry_CloneIsDeep(t *testing.T) {
	days := 2
	prior := Date(2024, 6, 10)
	e := &ActionEntry{ID: "1", DaysUntilExpiryAtAction: &days, PriorExpiryDate: &prior}
	c := e.Clone()
	*c.DaysUntilExpiryAtAction = 7
	*c.PriorExpiryDate = Date(2030, 1, 1)
	assert.Equal(t, 2, *e.DaysUntilExpiryAtAction)
	assert.Equal(t, Date(2024, 6, 10), *e.PriorExpiryDate)
	assert.Nil(t, (*ActionEntry)(nil).Clone())
}

func TestSortAndLatestPerProduct(t *testing.T) {
	base := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	entries := []*ActionEntry{
		{ID: "1", ProductID: "a", CreatedAt: base},
		{ID: "2", ProductID: "b", CreatedAt: base.Add(time.Minute)},
		{ID: "3", ProductID: "a", CreatedAt: base.Add(2 * time.Minute)},
	}
	SortNewestFirst(entries)
	assert.Equal(t, "3", entries[0].ID)
	assert.Equal(t, "1", entries[2].ID)

	latest := LatestPerProduct(entries)
	require.Len(t, latest, 2)
	assert.Equal(t, "3", latest[0].ID)
	assert.Equal(t, "2", latest[1].ID)
}

func TestParseActionType(t *testing.T) {
	for _, s := range []string{"labeled", "removed", "date_updated", "undone"} {
		_, err := ParseActionType(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseActionType("deactivated")
	assert.Error(t, err)
}
