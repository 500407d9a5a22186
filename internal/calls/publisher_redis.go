package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StatusChannel is the pub/sub channel carrying JSON-encoded Status values.
	StatusChannel = "call-status"

	statusTTL = 24 * time.Hour
)

// RedisPublisher keeps the latest status per conversation in a hash and
// announces every change on StatusChannel.
type RedisPublisher struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, ttl: statusTTL}
}

// StatusKey is the hash holding the latest status of one conversation.
func StatusKey(accountID, displayID int64) string {
	return fmt.Sprintf("call:status:%d:%d", accountID, displayID)
}

func (p *RedisPublisher) Publish(ctx context.Context, s Status) error {
	if p.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	key := StatusKey(s.AccountID, s.DisplayID)

	pipe := p.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"conversation_id", strconv.FormatInt(s.ConversationID, 10),
		"room_name", s.RoomName,
		"status", string(s.Status),
		"updated_at", s.UpdatedAt.Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, p.ttl)
	pipe.Publish(ctx, StatusChannel, payload)
	_, err = pipe.Exec(ctx)
	return err
}
