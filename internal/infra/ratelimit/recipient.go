package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ notification.RecipientRateLimiter = (*RedisRecipientLimiter)(nil)

const keyPrefix = "appetite:ambient:"

// slidingWindow trims the window, then admits one entry if the recipient is under the cap.
// Running it as one script keeps concurrent dispatches from both slipping under the cap.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]

redis.call("ZREMRANGEBYSCORE", key, "-inf", ARGV[2])
if redis.call("ZCARD", key) >= tonumber(ARGV[3]) then
	return 0
end
redis.call("ZADD", key, ARGV[1], ARGV[4])
redis.call("PEXPIRE", key, ARGV[5])
return 1
`)

// RedisRecipientLimiter caps ambient notifications (truck nearby, deals) per user using
// a Redis sorted set per recipient: each admitted notification is a member scored by its
// timestamp in milliseconds.
type RedisRecipientLimiter struct {
	client     *redis.Client
	maxPerHour int
	window     time.Duration
	now        func() time.Time
}

// NewRedisRecipientLimiter creates a new Redis-based per-recipient rate limiter.
func NewRedisRecipientLimiter(client *redis.Client, maxPerHour int) *RedisRecipientLimiter {
	return &RedisRecipientLimiter{
		client:     client,
		maxPerHour: maxPerHour,
		window:     time.Hour,
		now:        time.Now,
	}
}

// Allow checks whether another ambient notification can go to the recipient.
// A non-positive cap disables the limiter.
func (r *RedisRecipientLimiter) Allow(ctx context.Context, recipient string) (bool, error) {
	if r.maxPerHour <= 0 {
		return true, nil
	}

	now := r.now()
	res, err := slidingWindow.Run(ctx, r.client,
		[]string{keyPrefix + recipient},
		now.UnixMilli(),
		now.Add(-r.window).UnixMilli(),
		r.maxPerHour,
		uuid.NewString(),
		(r.window + time.Minute).Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("checking ambient rate limit: %w", err)
	}
	return res == 1, nil
}
