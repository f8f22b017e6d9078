package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// TripLocker serializes writers to a single trip's waypoint set.
type TripLocker interface {
	Lock(ctx context.Context, tripID string) (unlock func(), err error)
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// LocalLocker serializes writers within one process.
type LocalLocker struct {
	locks *xsync.MapOf[string, *localLock]
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: xsync.NewMapOf[string, *localLock]()}
}

func (l *LocalLocker) acquire(tripID string) *localLock {
	lock, _ := l.locks.Compute(tripID, func(old *localLock, loaded bool) (*localLock, bool) {
		if !loaded {
			old = &localLock{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})
	return lock
}

func (l *LocalLocker) release(tripID string) {
	l.locks.Compute(tripID, func(old *localLock, loaded bool) (*localLock, bool) {
		if !loaded {
			return old, true
		}
		old.refs--
		return old, old.refs == 0
	})
}

func (l *LocalLocker) Lock(ctx context.Context, tripID string) (func(), error) {
	lock := l.acquire(tripID)
	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(tripID)
		return nil, ctx.Err()
	}
	return func() {
		<-lock.sem
		l.release(tripID)
	}, nil
}

// Len reports how many trips currently have a holder or waiter.
func (l *LocalLocker) Len() int {
	return l.locks.Size()
}

const (
	redisLockPrefix       = "itinerary:lock:trip:"
	DefaultRedisLockTTL   = 30 * time.Second
	defaultRedisLockRetry = 50 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes writers across every server sharing a Redis.
// The key expires after ttl if its holder dies; a live holder renews it
// every ttl/3 until unlocked.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultRedisLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, retry: defaultRedisLockRetry}
}

func (l *RedisLocker) Lock(ctx context.Context, tripID string) (func(), error) {
	key := redisLockPrefix + tripID
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to acquire trip lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(key, token, tripID, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				slog.Warn("Failed to release trip lock", "trip_id", tripID, "error", err)
			}
		})
	}, nil
}

// keepAlive extends the key while it still carries token. It gives up once
// the key is gone or owned by someone else.
func (l *RedisLocker) keepAlive(key, token, tripID string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		held, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil && !errors.Is(err, redis.Nil):
			slog.Warn("Failed to renew trip lock", "trip_id", tripID, "error", err)
		case held == 0:
			slog.Error("Trip lock lost before release", "trip_id", tripID)
			return
		}
	}
}
