package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"intent-engine-sol/internal/types"

	"github.com/redis/go-redis/v9"
)

// PooledWallet 池内钱包的持久化条目
type PooledWallet struct {
	PublicKey       types.Pubkey `json:"public_key"`
	SecretKey       []byte       `json:"secret_key"` // ed25519 私钥（整条目对外部不可见）
	BalanceLamports uint64       `json:"balance_lamports"`
	LastCheckedAt   int64        `json:"last_checked_at"` // 余额最后刷新时间（Unix 秒）
	InUse           bool         `json:"in_use"`
}

// Store 钱包池持久化接口。每次 Save 写入完整快照，不存在部分写竞态
type Store interface {
	Load(ctx context.Context) ([]PooledWallet, error)
	Save(ctx context.Context, wallets []PooledWallet) error
}

const walletPoolKey = "intent-engine:wallet:pool"

// RedisStore 基于 Redis 的钱包池存储
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context) ([]PooledWallet, error) {
	raw, err := s.rdb.Get(ctx, walletPoolKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get wallet pool: %w", err)
	}
	var wallets []PooledWallet
	if err := json.Unmarshal(raw, &wallets); err != nil {
		return nil, fmt.Errorf("unmarshal wallet pool: %w", err)
	}
	return wallets, nil
}

func (s *RedisStore) Save(ctx context.Context, wallets []PooledWallet) error {
	raw, err := json.Marshal(wallets)
	if err != nil {
		return fmt.Errorf("marshal wallet pool: %w", err)
	}
	if err := s.rdb.Set(ctx, walletPoolKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set wallet pool: %w", err)
	}
	return nil
}
