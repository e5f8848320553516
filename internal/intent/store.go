package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"intent-engine-sol/internal/types"

	"github.com/redis/go-redis/v9"
)

// Store 意图历史持久化接口：按活跃钱包地址区分，整表快照读写
type Store interface {
	Load(ctx context.Context, owner types.Pubkey) ([]TrackedIntent, error)
	Save(ctx context.Context, owner types.Pubkey, intents []TrackedIntent) error
}

const historyKeyPrefix = "intent-engine:history"

// RedisStore 基于 Redis 的意图历史存储
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func historyKey(owner types.Pubkey) string {
	return fmt.Sprintf("%s:%s", historyKeyPrefix, owner)
}

func (s *RedisStore) Load(ctx context.Context, owner types.Pubkey) ([]TrackedIntent, error) {
	raw, err := s.rdb.Get(ctx, historyKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get intent history: %w", err)
	}
	var intents []TrackedIntent
	if err := json.Unmarshal(raw, &intents); err != nil {
		return nil, fmt.Errorf("unmarshal intent history: %w", err)
	}
	return intents, nil
}

func (s *RedisStore) Save(ctx context.Context, owner types.Pubkey, intents []TrackedIntent) error {
	raw, err := json.Marshal(intents)
	if err != nil {
		return fmt.Errorf("marshal intent history: %w", err)
	}
	if err := s.rdb.Set(ctx, historyKey(owner), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set intent history: %w", err)
	}
	return nil
}
