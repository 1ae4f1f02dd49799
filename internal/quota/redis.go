package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "quota:imagine:"

// allowScript increments the counter only while it is below the limit, so
// rejected calls leave the count untouched.
var allowScript = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then
  return {0, n}
end
n = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return {1, n}
`)

// RedisGate shares counters across instances through Redis. Keys expire at
// the next local midnight.
type RedisGate struct {
	client redis.Scripter
	limit  int
	loc    *time.Location
	now    func() time.Time
}

func NewRedisGate(client redis.Scripter, limit int, loc *time.Location) *RedisGate {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.Local
	}
	return &RedisGate{client: client, limit: limit, loc: loc, now: time.Now}
}

func (g *RedisGate) key(identity string, now time.Time) string {
	return keyPrefix + normalizeIdentity(identity) + ":" + dayKey(now, g.loc)
}

func (g *RedisGate) Allow(ctx context.Context, identity string) (Decision, error) {
	now := g.now()
	res, err := allowScript.Run(ctx, g.client,
		[]string{g.key(identity, now)},
		g.limit, nextMidnight(now, g.loc).Unix(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("quota: redis allow: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("quota: unexpected redis reply %v", res)
	}
	if res[0] == 0 {
		return Decision{Allowed: false, Remaining: 0, Limit: g.limit}, nil
	}
	return decide(int(res[1]), g.limit), nil
}

var _ Gate = (*RedisGate)(nil)
