package expiry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/memory"
)

// testClock is a movable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMetrics struct {
	mu            sync.Mutex
	actions       map[string]int
	undoRejected  map[string]int
	notifications map[string]int
	archived      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		actions:       map[string]int{},
		undoRejected:  map[string]int{},
		notifications: map[string]int{},
	}
}

func (m *recordingMetrics) ActionRecorded(t string) {
	m.mu.Lock()
	m.actions[t]++
	m.mu.Unlock()
}

func (m *recordingMetrics) UndoRejected(reason string) {
	m.mu.Lock()
	m.undoRejected[reason]++
	m.mu.Unlock()
}

func (m *recordingMetrics) NotificationSent(kind string, delivered bool) {
	m.mu.Lock()
	m.notifications[fmt.Sprintf("%s/%t", kind, delivered)]++
	m.mu.Unlock()
}

func (m *recordingMetrics) WorklistObserved(string, int, int) {}

func (m *recordingMetrics) ArchiveWritten(n int) {
	m.mu.Lock()
	m.archived += n
	m.mu.Unlock()
}

type fakeArchive struct {
	key  string
	body []byte
	err  error
}

func (f *fakeArchive) PutDocument(_ context.Context, key string, body []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.key, f.body = key, body
	return nil
}

type fixture struct {
	svc     Service
	store   *memory.Store
	clock   *testClock
	metrics *recordingMetrics
	reports []domainExpiry.Report
	notify  func(domainExpiry.Report) error
	archive *fakeArchive
}

// 2024-06-10 10:00 in UTC; the calendar uses UTC so days are easy to read.
var scenarioNow = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)
	f := &fixture{
		store:   store,
		clock:   &testClock{now: scenarioNow},
		metrics: newRecordingMetrics(),
		archive: &fakeArchive{},
	}
	var mu sync.Mutex
	notifier := domainExpiry.NotifierFunc(func(_ context.Context, r domainExpiry.Report) error {
		mu.Lock()
		defer mu.Unlock()
		f.reports = append(f.reports, r)
		if f.notify != nil {
			return f.notify(r)
		}
		return nil
	})
	n := 0
	f.svc = NewService(store, domainExpiry.NewCalendar(f.clock, time.UTC), cfg, nil,
		WithNotifier(notifier),
		WithMetrics(f.metrics),
		WithArchive(f.archive),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("act-%03d", n)
		}),
	)
	require.NoError(t, store.Settings().SaveSettings(context.Background(),
		domainExpiry.Settings{Enabled: true, CriticalDays: 0, WarningDays: 3}))
	return f
}

func (f *fixture) put(t *testing.T, id, category string, expiry *time.Time) {
	t.Helper()
	require.NoError(t, f.store.PutProduct(&domainExpiry.Product{
		ID: id, Name: "Product " + id, Category: category, ExpiryDate: expiry,
	}))
}

func day(y int, m time.Month, d int) *time.Time {
	v := domainExpiry.Date(y, m, d)
	return &v
}

func productIDs(items []domainExpiry.WorkItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Product.ID)
	}
	return out
}

// seedScenario adds A (critical), B (warning) and C (normal).
func (f *fixture) seedScenario(t *testing.T) {
	f.put(t, "A", "Dairy", day(2024, 6, 10))
	f.put(t, "B", "Bakery", day(2024, 6, 12))
	f.put(t, "C", "Dairy", day(2024, 6, 20))
}
