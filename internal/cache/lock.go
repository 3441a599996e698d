package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// releaseScript deletes the lock only while it still carries our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// TryLock acquires the lock at key with SET NX EX. The returned unlock must
// be called to release it; a lost lock expires after ttl.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Released on a fresh context so a cancelled request still unlocks.
		_ = r.client.Eval(context.Background(), releaseScript, []string{key}, token).Err()
	}, nil
}

// Lock polls TryLock every retry until the lock is taken or ctx is done.
func Lock(ctx context.Context, r *Redis, key string, ttl, retry time.Duration) (unlock func(), err error) {
	for {
		unlock, err := TryLock(ctx, r, key, ttl)
		if !errors.Is(err, ErrLocked) {
			return unlock, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cache lock %s: %w", key, ctx.Err())
		case <-time.After(retry):
		}
	}
}
