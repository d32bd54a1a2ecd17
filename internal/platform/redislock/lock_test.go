package redislock

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "module-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxInside)
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	r1, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer r1()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r2, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	r2()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	r1, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer r1()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalReleaseIsIdempotent(t *testing.T) {
	l := NewLocal()
	r, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	r()
	r()
	r2, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	r2()
}

func TestKeepAliveExtendsUntilStopped(t *testing.T) {
	var extends int32
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, 5*time.Millisecond, func(context.Context) (bool, error) {
			atomic.AddInt32(&extends, 1)
			return true, nil
		}, func(err error) { t.Errorf("unexpected warning: %v", err) })
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&extends) >= 3 }, time.Second, time.Millisecond)
	close(stop)
	<-done
	after := atomic.LoadInt32(&extends)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&extends), "no renewals after stop")
}

func TestKeepAliveStopsWhenLockIsLost(t *testing.T) {
	var extends int32
	var warned []error
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(make(chan struct{}), 2*time.Millisecond, func(context.Context) (bool, error) {
			if atomic.AddInt32(&extends, 1) == 1 {
				return false, errors.New("connection reset")
			}
			return false, nil
		}, func(err error) { warned = append(warned, err) })
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept running after the lock was lost")
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&extends))
	require.Len(t, warned, 2)
	assert.ErrorIs(t, warned[1], errLockLost)
}

func TestOptionsRenewIntervalDefaultsBelowTTL(t *testing.T) {
	o := Options{TTL: 90 * time.Second}.withDefaults()
	assert.Equal(t, 30*time.Second, o.RenewInterval)
	o = Options{TTL: time.Second, RenewInterval: 2 * time.Second}.withDefaults()
	assert.Equal(t, time.Second/3, o.RenewInterval)
}

func startRedis(t *testing.T, ctx context.Context) string {
	t.Helper()
	if addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR")); addr != "" {
		return addr
	}
	if os.Getenv("REDIS_INTEGRATION") != "1" {
		t.Skip("set REDIS_TEST_ADDR or REDIS_INTEGRATION=1 to run redis lock tests")
	}
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return host + ":" + port.Port()
}

func TestRedisLockerAgainstServer(t *testing.T) {
	addr := startRedis(t, context.Background())
	rdb, err := NewClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	l := NewRedis(logger.Nop(), rdb, Options{Prefix: "mb:test:" + uuid.NewString() + ":", Wait: 100 * time.Millisecond, PollInterval: 10 * time.Millisecond})
	release, err := l.Acquire(context.Background(), "m1")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "m1")
	assert.True(t, errors.Is(err, ErrNotAcquired), "got %v", err)

	release()
	release2, err := l.Acquire(context.Background(), "m1")
	require.NoError(t, err)
	release2()
}

func TestRedisLockOutlivesTTLWhileHeld(t *testing.T) {
	ctx := context.Background()
	rdb, err := NewClient(ctx, startRedis(t, ctx), "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	prefix := "mb:test:" + uuid.NewString() + ":"
	l := NewRedis(logger.Nop(), rdb, Options{Prefix: prefix, TTL: 300 * time.Millisecond, Wait: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond})
	release, err := l.Acquire(ctx, "m1")
	require.NoError(t, err)

	time.Sleep(time.Second)
	_, err = l.Acquire(ctx, "m1")
	assert.True(t, errors.Is(err, ErrNotAcquired), "lock expired while held: %v", err)
	ttl, err := rdb.PTTL(ctx, prefix+"m1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	release()
	n, err := rdb.Exists(ctx, prefix+"m1").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
