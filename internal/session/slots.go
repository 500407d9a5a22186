package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voice-broker/pkg/metrics"
	"voice-broker/pkg/utils"
)

// SlotLimiter bounds concurrent calls per channel.
type SlotLimiter interface {
	Acquire(ctx context.Context, channelID int64) (bool, error)
	Release(ctx context.Context, channelID int64) error
}

// RedisSlots is a SlotLimiter shared by every broker process through Redis.
// Slots expire after ttl so a client that never leaves cannot pin one forever.
type RedisSlots struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisSlots(rdb *redis.Client, limit int, ttl time.Duration) *RedisSlots {
	return &RedisSlots{rdb: rdb, limit: limit, ttl: ttl}
}

func slotKey(channelID int64) string {
	return fmt.Sprintf("calls:active:channel:%d", channelID)
}

func (s *RedisSlots) Acquire(ctx context.Context, channelID int64) (bool, error) {
	ok, err := utils.AcquireConcurrencyCap(ctx, s.rdb, slotKey(channelID), s.limit, s.ttl)
	if ok {
		metrics.ActiveCallSlots.Inc()
	}
	return ok, err
}

func (s *RedisSlots) Release(ctx context.Context, channelID int64) error {
	if err := utils.ReleaseConcurrencyCap(ctx, s.rdb, slotKey(channelID)); err != nil {
		return err
	}
	metrics.ActiveCallSlots.Dec()
	return nil
}
