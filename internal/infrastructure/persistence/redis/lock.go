package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock that another replica re-acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock: held by another owner")

// Locker hands out SET NX PX locks.
type Locker struct {
	cache *Cache
	ttl   time.Duration
}

func NewLocker(cache *Cache, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	return &Locker{cache: cache, ttl: ttl}
}

// Acquire takes the named lock. The returned release func is safe to call
// once the context used for acquiring has ended.
func (l *Locker) Acquire(ctx context.Context, name string) (release func(), err error) {
	key := l.cache.Key(PrefixLock, name)
	token := uuid.NewString()

	ok, err := l.cache.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.cache.Client(), []string{key}, token).Err()
	}, nil
}
