package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

// RedisTracker keeps one sorted set per room: member = token ID,
// score = last heartbeat in unix milliseconds. Members are never removed.
type RedisTracker struct {
	client *redis.Client
	clock  clock.Clock
	ttl    time.Duration
}

var _ Tracker = (*RedisTracker)(nil)

// NewRedisTracker 생성자
func NewRedisTracker(client *redis.Client, clk clock.Clock) *RedisTracker {
	return &RedisTracker{client: client, clock: clk, ttl: LeaseTTL}
}

// Key 생성 유틸
func (t *RedisTracker) roomKey(roomID int64) string {
	return fmt.Sprintf("presence:room:%d", roomID)
}

// Heartbeat 생존 신고 (score 갱신)
func (t *RedisTracker) Heartbeat(ctx context.Context, roomID, tokenID int64) error {
	now := t.clock.Now().UnixMilli()
	return t.client.ZAdd(ctx, t.roomKey(roomID), redis.Z{
		Score:  float64(now),
		Member: strconv.FormatInt(tokenID, 10),
	}).Err()
}

// ActiveCount counts members whose score is strictly inside the TTL window.
func (t *RedisTracker) ActiveCount(ctx context.Context, roomID int64) (int, error) {
	floor := "(" + strconv.FormatInt(t.clock.Now().UnixMilli()-t.ttl.Milliseconds(), 10)
	n, err := t.client.ZCount(ctx, t.roomKey(roomID), floor, "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
