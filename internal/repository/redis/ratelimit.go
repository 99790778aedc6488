package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// KEYS[1] sorted set of event timestamps (ms)
// ARGV[1] now ms, ARGV[2] window ms, ARGV[3] max count, ARGV[4] member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RateLimitStore keeps one sorted set per (action, subject). The script runs
// atomically on the server, so concurrent callers never overshoot the ceiling.
type RateLimitStore struct {
	client *redis.Client
}

func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

func (s *RateLimitStore) CheckAndRecord(ctx context.Context, subjectID, action string, maxCount int, window time.Duration, now time.Time) (bool, error) {
	key := rateLimitKeyPrefix + action + ":" + subjectID
	res, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		maxCount,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, errors.Wrap(err, "redis sliding window")
	}
	return res == 1, nil
}

// PurgeBefore is a no-op: PEXPIRE and ZREMRANGEBYSCORE already bound every key.
func (s *RateLimitStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
