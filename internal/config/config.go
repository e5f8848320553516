package config

import (
	"fmt"

	"intent-engine-sol/pkg/logger"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// NetworkConfig 表示单个网络（devnet/mainnet）的接入配置
type NetworkConfig struct {
	Name             string   `yaml:"name"`              // 网络名称：devnet / mainnet
	RpcEndpoints     []string `yaml:"rpc_endpoints"`     // RPC 端点列表，按优先级排序（index 0 为主端点）
	WsEndpoint       string   `yaml:"ws_endpoint"`       // WebSocket 端点
	IntentProgram    string   `yaml:"intent_program"`    // Intent 程序地址（base58）
	LaunchpadProgram string   `yaml:"launchpad_program"` // Launchpad 程序地址（base58）
	Commitment       string   `yaml:"commitment"`        // 确认级别：processed / confirmed / finalized
}

// WalletPoolConfig 表示本地资金钱包池配置
type WalletPoolConfig struct {
	Size               int     `yaml:"size"`                 // 池内钱包数量（首次初始化时生成）
	FundedThresholdSol float64 `yaml:"funded_threshold_sol"` // 视为"有资金"的余额阈值（SOL）
	MinBalanceSol      float64 `yaml:"min_balance_sol"`      // 可用的最低余额（SOL）
	AirdropSol         float64 `yaml:"airdrop_sol"`          // 单次 airdrop 请求量（SOL，保守值以避开限流）
}

// TimeConfig 表示各种超时配置
type TimeConfig struct {
	ConfirmTimeoutSec      int `yaml:"confirm_timeout_sec"`       // 交易确认最长等待（秒）
	ConfirmPollIntervalMs  int `yaml:"confirm_poll_interval_ms"`  // 确认状态轮询间隔（毫秒）
	ReconcileIntervalSec   int `yaml:"reconcile_interval_sec"`    // 超时意图的对账轮询间隔（秒）
	BalanceSyncIntervalSec int `yaml:"balance_sync_interval_sec"` // 钱包池余额刷新间隔（秒）
	BalanceRefreshStaleSec int `yaml:"balance_refresh_stale_sec"` // 余额视为过期的阈值（秒）
}

// EngineConfig 是主配置结构体，用于驱动 intent 引擎
type EngineConfig struct {
	LogConf        LogConfig        `yaml:"logger"`        // 日志配置
	ActiveNetwork  string           `yaml:"active_network"` // 启动时选用的网络
	Networks       []NetworkConfig  `yaml:"networks"`      // 所有可切换网络
	WalletPoolConf WalletPoolConfig `yaml:"wallet_pool"`   // 钱包池配置
	TimeConf       TimeConfig       `yaml:"time_conf"`     // 时间相关配置

	RedisAddr string `yaml:"redis_addr"` // Redis 地址（意图历史 + 钱包池持久化）
}

// Network 按名称查找网络配置
func (c *EngineConfig) Network(name string) (NetworkConfig, error) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, nil
		}
	}
	return NetworkConfig{}, fmt.Errorf("network %q not found in config", name)
}

// Dump 输出 YAML 形式的配置快照（启动日志用）
func (c *EngineConfig) Dump() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("marshal config failed: %v", err)
	}
	return string(out)
}
