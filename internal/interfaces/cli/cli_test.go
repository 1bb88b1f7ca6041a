package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appExpiry "github.com/turtacn/FreshGuard/internal/application/expiry"
	"github.com/turtacn/FreshGuard/internal/config"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/memory"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/redis"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
)

const testConfig = `
log:
  level: warn
  format: console
expiry:
  timezone: UTC
  warning_days: 3
  critical_days: 0
`

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "freshguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// fakeEnv backs the commands with an in-memory store, a fixed clock and a
// recording notifier.
type fakeEnv struct {
	store     *memory.Store
	reports   []domainExpiry.Report
	notifyErr error
	redisAddr string
	boots     int
}

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)
	return &fakeEnv{store: store}
}

func (f *fakeEnv) factory(ctx context.Context, cfg *config.Config, logger logging.Logger, opts BootstrapOptions) (*App, error) {
	f.boots++
	cal := domainExpiry.NewCalendar(domainExpiry.FixedClock{T: testNow}, time.UTC)
	notifier := domainExpiry.NotifierFunc(func(_ context.Context, r domainExpiry.Report) error {
		f.reports = append(f.reports, r)
		return f.notifyErr
	})
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Calendar: cal,
		Store:    f.store,
		Service:  appExpiry.NewService(f.store, cal, appExpiry.Config{}, logger, appExpiry.WithNotifier(notifier)),
	}
	if opts.Redis {
		client, err := redis.NewClient(config.RedisConfig{Addr: f.redisAddr, KeyPrefix: "test:"}, logger)
		if err != nil {
			return nil, err
		}
		app.Redis = client
		app.closers = append(app.closers, func() { _ = client.Close() })
	}
	return app, nil
}

func run(t *testing.T, factory appFactory, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(factory)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", writeConfig(t, testConfig)}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedCritical(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	d := domainExpiry.Date(2024, 3, 10)
	require.NoError(t, store.PutProduct(&domainExpiry.Product{ID: id, Name: "Yoghurt", Category: "dairy", ExpiryDate: &d}))
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "remind", "notify", "archive", "classify", "import"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, err := run(t, newFakeEnv(t).factory, "--log-level", "loud", "classify", "--expiry", "2024-03-12")
	assert.ErrorContains(t, err, "invalid --log-level")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	cmd := newRootCommand(newFakeEnv(t).factory)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "classify", "--expiry", "2024-03-12"})
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "config initialization failed")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		args   []string
		expect string
	}{
		{"critical today", []string{"--expiry", "2024-03-10", "--today", "2024-03-10"}, "critical (days until expiry: 0"},
		{"expired", []string{"--expiry", "2024-03-08", "--today", "2024-03-10"}, "critical (days until expiry: -2"},
		{"warning", []string{"--expiry", "2024-03-12", "--today", "2024-03-10"}, "warning (days until expiry: 2"},
		{"normal", []string{"--expiry", "2024-03-20", "--today", "2024-03-10"}, "normal (days until expiry: 10"},
		{"override thresholds", []string{"--expiry", "2024-03-12", "--today", "2024-03-10", "--critical-days", "2"}, "critical"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, nil, append([]string{"classify"}, tc.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tc.expect)
		})
	}
}

func TestClassify_JSONAndValidation(t *testing.T) {
	out, err := run(t, nil, "-o", "json", "classify", "--expiry", "2024-03-11", "--today", "2024-03-10")
	require.NoError(t, err)
	var res classifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, domainExpiry.BandWarning, res.Result.Band)
	assert.Equal(t, 1, res.Result.DaysUntilExpiry)

	_, err = run(t, nil, "classify", "--expiry", "11.03.2024")
	assert.ErrorContains(t, err, "--expiry must be YYYY-MM-DD")

	_, err = run(t, nil, "classify", "--expiry", "2024-03-11", "--warning-days", "1", "--critical-days", "2")
	assert.Error(t, err)

	_, err = run(t, nil, "classify")
	assert.Error(t, err)
}

func TestNotify_Delivered(t *testing.T) {
	env := newFakeEnv(t)
	seedCritical(t, env.store, "p-1")

	out, err := run(t, env.factory, "notify")
	require.NoError(t, err)
	assert.Contains(t, out, "unprocessed_counts 2024-03-10: critical 1/1 unprocessed")
	require.Len(t, env.reports, 1)
	assert.Equal(t, domainExpiry.ReportUnprocessedCounts, env.reports[0].Kind)
}

func TestNotify_DeliveryFailureExitsNonZero(t *testing.T) {
	env := newFakeEnv(t)
	env.notifyErr = errors.New("broker down")

	out, err := run(t, env.factory, "notify")
	assert.ErrorContains(t, err, "not delivered")
	assert.Contains(t, out, "NOT delivered")
}

func TestRemind_OncePerDay(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newFakeEnv(t)
	env.redisAddr = mr.Addr()
	seedCritical(t, env.store, "p-1")

	out, err := run(t, env.factory, "remind", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "daily_reminder 2024-03-10")
	require.Len(t, env.reports, 1)
	require.Len(t, env.reports[0].Items, 1)
	assert.Equal(t, "p-1", env.reports[0].Items[0].ProductID)

	out, err = run(t, env.factory, "remind", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "already sent today")
	assert.Len(t, env.reports, 1)
	assert.True(t, mr.Exists("test:daily:daily_reminder:2024-03-10"))

	_, err = run(t, env.factory, "remind")
	require.NoError(t, err)
	assert.Len(t, env.reports, 2)
}

func TestImport(t *testing.T) {
	env := newFakeEnv(t)
	file := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"id":"p-1","name":"Milk","category":"dairy","expiryDate":"2024-03-11"},
		{"id":"p-2","name":"Salt","category":"dry"}
	]`), 0o600))

	out, err := run(t, env.factory, "import", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 products")

	p, err := env.store.Products().GetProduct(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, domainExpiry.Date(2024, 3, 11), *p.ExpiryDate)

	p, err = env.store.Products().GetProduct(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Nil(t, p.ExpiryDate)
}

func TestImport_RejectsBadRecordsBeforeWriting(t *testing.T) {
	env := newFakeEnv(t)
	file := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"id":"p-1"},{"id":"p-2","expiryDate":"soon"}]`), 0o600))

	_, err := run(t, env.factory, "import", "--file", file)
	assert.ErrorContains(t, err, "product p-2")
	assert.Equal(t, 0, env.boots)

	_, err = env.store.Products().GetProduct(context.Background(), "p-1")
	assert.Error(t, err)
}

func TestArchive_RequiresMinIO(t *testing.T) {
	env := newFakeEnv(t)
	_, err := run(t, env.factory, "archive", "--date", "2024-03-09")
	assert.ErrorContains(t, err, "minio.enabled")
	assert.Equal(t, 0, env.boots)
}

func TestMigrateForce_InvalidVersion(t *testing.T) {
	_, err := run(t, nil, "migrate", "force", "latest")
	assert.ErrorContains(t, err, `invalid version "latest"`)
}

func TestBootstrap_MemoryBackend(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	app, err := Bootstrap(context.Background(), cfg, logging.NewNopLogger(), BootstrapOptions{})
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Service)
	assert.NotNil(t, app.Collector)
	assert.NotNil(t, app.Metrics)
	assert.Nil(t, app.Redis)
	assert.Nil(t, app.Producer)
	assert.Nil(t, app.Archive)
	assert.Empty(t, app.Checkers)

	settings, err := app.Service.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainExpiry.Settings{Enabled: true, WarningDays: 3, CriticalDays: 0}, settings)
	_, ok := app.Store.(ProductImporter)
	assert.True(t, ok)
}

func TestBootstrap_RedisLockUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg, err := config.Load(writeConfig(t, testConfig+"  lock_backend: redis\nredis:\n  addr: "+addr+"\n"))
	require.NoError(t, err)

	_, err = Bootstrap(context.Background(), cfg, logging.NewNopLogger(), BootstrapOptions{})
	assert.Error(t, err)
}

func TestPrintResult_DefaultsToText(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, PrintResult(cmd, migrationStatus{Version: 1, Dirty: true}))
	assert.Equal(t, "version 1 (dirty)\n", out.String())
}

func TestCLIOutputPaths(t *testing.T) {
	assert.Equal(t, []string{"stderr"}, cliOutputPaths(nil))
	assert.Equal(t, []string{"stderr", "/var/log/fg.log"}, cliOutputPaths([]string{"stdout", "/var/log/fg.log"}))
}
