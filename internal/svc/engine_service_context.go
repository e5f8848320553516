package svc

import (
	"context"
	"time"

	"intent-engine-sol/internal/config"
	"intent-engine-sol/internal/consts"
	"intent-engine-sol/internal/intent"
	"intent-engine-sol/internal/rpcx"
	"intent-engine-sol/internal/wallet"
	"intent-engine-sol/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// EngineServiceContext 包含引擎的共享资源
type EngineServiceContext struct {
	Config config.EngineConfig
	Redis  *redis.Client
	RPC    *rpcx.Client
	Pool   *wallet.Pool
}

// NewEngineServiceContext 创建引擎服务上下文
func NewEngineServiceContext(c config.EngineConfig) (*EngineServiceContext, error) {
	logger.Init(c.LogConf.ToLogOption())

	if c.ActiveNetwork == "" {
		c.ActiveNetwork = consts.NetworkDevnet
	}
	if c.TimeConf.ConfirmTimeoutSec <= 0 {
		c.TimeConf.ConfirmTimeoutSec = 30
	}
	if c.TimeConf.ConfirmPollIntervalMs <= 0 {
		c.TimeConf.ConfirmPollIntervalMs = 2000
	}

	// 1. RPC 客户端（端点轮换）
	rpcClient, err := rpcx.New(c.Networks, c.ActiveNetwork)
	if err != nil {
		logger.Errorf("RPC 客户端初始化失败: %v", err)
		return nil, err
	}

	// 2. Redis（钱包池 + 意图历史持久化）
	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr, // eg: "127.0.0.1:6379"
	})

	// 3. 钱包池
	pool := wallet.NewPool(wallet.NewRedisStore(rdb), rpcClient, c.WalletPoolConf, c.TimeConf.BalanceRefreshStaleSec)
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Initialize(initCtx); err != nil {
		logger.Errorf("钱包池初始化失败: %v", err)
		return nil, err
	}

	ctx := &EngineServiceContext{
		Config: c,
		Redis:  rdb,
		RPC:    rpcClient,
		Pool:   pool,
	}
	logger.Infof("引擎服务上下文初始化完成, network=%s", c.ActiveNetwork)
	return ctx, nil
}

// NewTracker 为指定签名方构建意图追踪器（每个活跃钱包一个逻辑实例）
func (ctx *EngineServiceContext) NewTracker(bg context.Context, owner wallet.Signer) (*intent.Tracker, error) {
	return intent.NewTracker(
		bg,
		owner,
		ctx.RPC,
		intent.NewRedisStore(ctx.Redis),
		time.Duration(ctx.Config.TimeConf.ConfirmTimeoutSec)*time.Second,
		time.Duration(ctx.Config.TimeConf.ConfirmPollIntervalMs)*time.Millisecond,
	)
}

// Close 关闭服务上下文中的资源
func (ctx *EngineServiceContext) Close() {
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
}
