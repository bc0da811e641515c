package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 15 * time.Minute
)

// LoginThrottle counts signin attempts per username in Redis. A successful
// signin clears the counter, so what remains are the failures.
// Key format: signin:failures:<lowercased username>
// The window starts at the first attempt and the key expires with it.
type LoginThrottle struct {
	client      redis.Cmdable
	maxFailures int64
	window      time.Duration
}

// NewLoginThrottle locks a username after maxFailures failures within window.
func NewLoginThrottle(client redis.Cmdable, maxFailures int, window time.Duration) *LoginThrottle {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if window <= 0 {
		window = defaultLockout
	}
	return &LoginThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

// Reserve counts a signin attempt for username and reports whether it may
// proceed. The counter is created with the window TTL and incremented in one
// MULTI/EXEC, so concurrent attempts each see a distinct count and the key
// always expires. Attempts past maxFailures are refused until the window ends.
func (t *LoginThrottle) Reserve(ctx context.Context, username string) (bool, error) {
	key := t.key(username)
	var incr *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, t.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("throttle reserve: %w", err)
	}
	return incr.Val() <= t.maxFailures, nil
}

// Reset clears the counter after a successful signin.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	return t.client.Del(ctx, t.key(username)).Err()
}

func (t *LoginThrottle) key(username string) string {
	return "signin:failures:" + strings.ToLower(username)
}
