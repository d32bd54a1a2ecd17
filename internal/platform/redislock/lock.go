package redislock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

// ErrNotAcquired is returned when the wait deadline passes before the lock
// frees up.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive named locks. The returned release func is safe
// to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Options struct {
	Prefix string
	// TTL bounds how long a crashed holder blocks others. A held lock is
	// extended every RenewInterval, so work may outlast TTL.
	TTL           time.Duration
	RenewInterval time.Duration
	Wait          time.Duration
	PollInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = "mb:lock:"
	}
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.RenewInterval <= 0 || o.RenewInterval >= o.TTL {
		o.RenewInterval = o.TTL / 3
	}
	if o.Wait <= 0 {
		o.Wait = 2 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	return o
}

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's expiry only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type redisLocker struct {
	log  *logger.Logger
	rdb  redis.UniversalClient
	opts Options
}

func NewRedis(log *logger.Logger, rdb redis.UniversalClient, opts Options) Locker {
	return &redisLocker{log: log.With("service", "RedisLocker"), rdb: rdb, opts: opts.withDefaults()}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	full := l.opts.Prefix + strings.TrimSpace(key)
	token := uuid.NewString()
	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(waitCtx, full, token, l.opts.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis setnx %s: %w", full, err)
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				keepAlive(stop, l.opts.RenewInterval, func(rctx context.Context) (bool, error) {
					n, err := renewScript.Run(rctx, l.rdb, []string{full}, token, l.opts.TTL.Milliseconds()).Int()
					return n == 1, err
				}, func(err error) {
					l.log.Warn("redis lock renewal failed", "key", full, "error", err)
				})
			}()
			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer rcancel()
					if err := releaseScript.Run(rctx, l.rdb, []string{full}, token).Err(); err != nil {
						l.log.Warn("redis lock release failed", "key", full, "error", err)
					}
				})
			}, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, full)
		case <-ticker.C:
		}
	}
}

var errLockLost = errors.New("lock lost to expiry or another holder")

// keepAlive calls extend every interval until stop closes. It gives up once
// extend reports the lock is no longer ours. Transient errors are reported
// through warn and retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, extend func(context.Context) (bool, error), warn func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		held, err := extend(ctx)
		cancel()
		switch {
		case err != nil:
			warn(err)
		case !held:
			warn(errLockLost)
			return
		}
	}
}

// Local is an in-process keyed mutex used when Redis is not configured.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: map[string]chan struct{}{}}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-slot }) }, nil
}

// NewClient dials Redis and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
