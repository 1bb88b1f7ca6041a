package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeLockNotAcquired, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeLockNotAcquired, "lock not held by this owner")
)

// LockOption tunes a Mutex.
type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

// WithWatchdog keeps extending the TTL while the lock is held, so a slow
// transaction does not lose its lock halfway.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

func newLockConfig(opts []LockOption) lockConfig {
	cfg := lockConfig{ttl: 10 * time.Second, retryDelay: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.watchdogInterval = cfg.ttl / 3
	return cfg
}

var mutexUnlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var mutexExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// ─────────────────────────────────────────────────────────────────────────────
// Mutex
// ─────────────────────────────────────────────────────────────────────────────

// Mutex is a single-owner lock on one key. The owner token is random per
// Mutex, so only the instance that locked can unlock.
type Mutex struct {
	rdb    redis.UniversalClient
	key    string
	value  string
	config lockConfig
	logger logging.Logger

	mu             sync.Mutex
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

// NewMutex returns an unlocked Mutex on the prefixed key "lock:<name>".
func (c *Client) NewMutex(name string, opts ...LockOption) *Mutex {
	return &Mutex{
		rdb:    c.rdb,
		key:    c.Key("lock", name),
		value:  uuid.NewString(),
		config: newLockConfig(opts),
		logger: c.logger,
	}
}

// Lock retries until the key is free or ctx is done.
func (m *Mutex) Lock(ctx context.Context) error {
	for {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockNotAcquired.WithCause(ctx.Err()).WithDetail("key=" + m.key)
		case <-time.After(m.config.retryDelay):
		}
	}
}

// TryLock makes one attempt.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.rdb.SetNX(ctx, m.key, m.value, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheError, "failed to set lock")
	}
	if ok && m.config.watchdogEnabled {
		m.startWatchdog()
	}
	return ok, nil
}

// Unlock deletes the key if this Mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	res, err := mutexUnlockScript.Run(ctx, m.rdb, []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld.WithDetail("key=" + m.key)
	}
	return nil
}

// Extend resets the TTL if this Mutex still owns the key.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := mutexExtendScript.Run(ctx, m.rdb, []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheError, "failed to extend lock")
	}
	return res == 1, nil
}

// TTL reports the remaining lifetime of the key.
func (m *Mutex) TTL(ctx context.Context) (time.Duration, error) {
	return m.rdb.PTTL(ctx, m.key).Result()
}

func (m *Mutex) startWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchdogCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})
	go runWatchdog(ctx, m.Extend, m.config.watchdogInterval, m.config.ttl, m.logger, m.watchdogDone)
}

func (m *Mutex) stopWatchdog() {
	m.mu.Lock()
	cancel, done := m.watchdogCancel, m.watchdogDone
	m.watchdogCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func runWatchdog(ctx context.Context, extendFn func(context.Context, time.Duration) (bool, error), interval, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extendFn(ctx, ttl)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("watchdog failed to extend lock", logging.Err(err))
				}
				return
			}
			if !ok {
				log.Warn("watchdog lost lock")
				return
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ProductLocker
// ─────────────────────────────────────────────────────────────────────────────

// ProductLocker serializes product mutations across instances. It satisfies
// the engine's Locker contract.
type ProductLocker struct {
	client *Client
	opts   []LockOption
}

// NewProductLocker returns a locker whose keys live under "lock:product:".
func NewProductLocker(client *Client, ttl time.Duration) *ProductLocker {
	return &ProductLocker{client: client, opts: []LockOption{WithLockTTL(ttl), WithWatchdog(true)}}
}

// Acquire blocks until the product key is free or ctx is done.
func (l *ProductLocker) Acquire(ctx context.Context, productID string) (func(), error) {
	m := l.client.NewMutex("product:"+productID, l.opts...)
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := m.Unlock(unlockCtx); err != nil {
				l.client.logger.Warn("product lock release failed",
					logging.String("product_id", productID), logging.Err(err))
			}
		})
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily guard
// ─────────────────────────────────────────────────────────────────────────────

// ClaimDaily reports whether this caller is the first to claim job for day
// (YYYY-MM-DD). Schedulers on several hosts use it so a reminder goes out
// once per day.
func (c *Client) ClaimDaily(ctx context.Context, job, day string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.Key("daily", job, day), time.Now().UTC().Format(time.RFC3339), 48*time.Hour).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheError, "failed to claim daily job")
	}
	return ok, nil
}
