package rpcx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intent-engine-sol/internal/config"
	"intent-engine-sol/internal/consts"
	"intent-engine-sol/internal/types"
	"intent-engine-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// solClient 是单个 RPC 端点的最小操作面，*client.Client 天然满足；
// 测试通过注入 fake 实现替换真实网络
type solClient interface {
	GetBalance(ctx context.Context, base58Addr string) (uint64, error)
	GetAccountInfo(ctx context.Context, base58Addr string) (client.AccountInfo, error)
	SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	RequestAirdrop(ctx context.Context, base58Addr string, lamports uint64) (string, error)
}

// Network 当前生效网络的元信息（对上层只读）
type Network struct {
	Name             string
	IntentProgram    types.Pubkey
	LaunchpadProgram types.Pubkey
	Commitment       rpc.Commitment
}

// Client 在单网络的端点列表上做限流轮换：
// Primary(index=0) --限流信号--> Rotated(index=i)，耗尽后返回 ErrRateLimited；
// 高价值操作成功后回到主端点。切换网络会重建端点并复位轮换。
type Client struct {
	mu       sync.Mutex
	networks map[string]config.NetworkConfig
	factory  func(url string) solClient

	active    Network
	urls      []string
	endpoints []solClient
	index     int
}

// New 构建客户端并激活 active 指定的网络
func New(networks []config.NetworkConfig, active string) (*Client, error) {
	return newWithFactory(networks, active, func(url string) solClient {
		return client.NewClient(url)
	})
}

func newWithFactory(networks []config.NetworkConfig, active string, factory func(url string) solClient) (*Client, error) {
	c := &Client{
		networks: make(map[string]config.NetworkConfig, len(networks)),
		factory:  factory,
	}
	for _, n := range networks {
		if len(n.RpcEndpoints) == 0 {
			return nil, fmt.Errorf("network %q has no rpc endpoints", n.Name)
		}
		c.networks[n.Name] = n
	}
	if err := c.SwitchNetwork(active); err != nil {
		return nil, err
	}
	return c, nil
}

// SwitchNetwork 切换到指定网络：重建端点列表、复位轮换索引、恢复该网络的程序地址
func (c *Client) SwitchNetwork(name string) error {
	cfg, ok := c.networks[name]
	if !ok {
		return fmt.Errorf("unknown network %q", name)
	}
	intentProgram, err := types.TryPubkeyFromBase58(cfg.IntentProgram)
	if err != nil {
		return fmt.Errorf("network %q intent program: %w", name, err)
	}
	launchpadProgram, err := types.TryPubkeyFromBase58(cfg.LaunchpadProgram)
	if err != nil {
		return fmt.Errorf("network %q launchpad program: %w", name, err)
	}

	endpoints := make([]solClient, 0, len(cfg.RpcEndpoints))
	for _, url := range cfg.RpcEndpoints {
		endpoints = append(endpoints, c.factory(url))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = Network{
		Name:             name,
		IntentProgram:    intentProgram,
		LaunchpadProgram: launchpadProgram,
		Commitment:       parseCommitment(cfg.Commitment),
	}
	c.urls = cfg.RpcEndpoints
	c.endpoints = endpoints
	c.index = 0
	logger.Infof("[rpcx] 已切换网络: %s, 端点数=%d, commitment=%s", name, len(endpoints), c.active.Commitment)
	return nil
}

// CurrentNetwork 返回当前网络元信息
func (c *Client) CurrentNetwork() Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// CurrentEndpointIndex 当前轮换位置（0 为主端点）
func (c *Client) CurrentEndpointIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func parseCommitment(s string) rpc.Commitment {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// withRotation 在当前端点上执行 op：
// - 瞬时错误在同一端点重试一次；
// - 限流信号触发轮换到下一端点；
// - 已在最后端点仍被限流时返回 ErrRateLimited（不无限重试）。
func (c *Client) withRotation(op func(sc solClient) error) error {
	for {
		c.mu.Lock()
		idx := c.index
		ep := c.endpoints[idx]
		url := c.urls[idx]
		c.mu.Unlock()

		err := op(ep)
		if err == nil {
			return nil
		}

		if !isRateLimitSignal(err) {
			// 瞬时网络错误：同一端点最多重试一次
			retryErr := op(ep)
			if retryErr == nil {
				return nil
			}
			if !isRateLimitSignal(retryErr) {
				return retryErr
			}
			err = retryErr
		}

		c.mu.Lock()
		if c.index != idx {
			// 其他调用已轮换，跟随新端点重试
			c.mu.Unlock()
			continue
		}
		if c.index >= len(c.endpoints)-1 {
			c.mu.Unlock()
			return fmt.Errorf("endpoint %s: %v: %w", url, err, ErrRateLimited)
		}
		c.index++
		next := c.urls[c.index]
		c.mu.Unlock()
		logger.Warnf("[rpcx] 检测到限流, 端点轮换: %s -> %s", url, next)
	}
}

// resetToPrimary 高价值操作成功后回到主端点
func (c *Client) resetToPrimary() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index != 0 {
		logger.Infof("[rpcx] 端点复位: index %d -> 0", c.index)
		c.index = 0
	}
}

// GetBalance 查询 lamports 余额
func (c *Client) GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error) {
	var balance uint64
	err := c.withRotation(func(sc solClient) error {
		b, err := sc.GetBalance(ctx, addr.String())
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

// GetAccountInfo 查询账户数据（owner + data，供 codec 解码）
func (c *Client) GetAccountInfo(ctx context.Context, addr types.Pubkey) (client.AccountInfo, error) {
	var info client.AccountInfo
	err := c.withRotation(func(sc solClient) error {
		i, err := sc.GetAccountInfo(ctx, addr.String())
		if err != nil {
			return err
		}
		info = i
		return nil
	})
	return info, err
}

// GetLatestBlockhash 获取最新 blockhash（交易构建用）
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var blockhash string
	err := c.withRotation(func(sc solClient) error {
		v, err := sc.GetLatestBlockhash(ctx)
		if err != nil {
			return err
		}
		blockhash = v.Blockhash
		return nil
	})
	return blockhash, err
}

// SendTransaction 发送已签名交易，成功后复位到主端点
func (c *Client) SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error) {
	var sig string
	err := c.withRotation(func(sc solClient) error {
		s, err := sc.SendTransaction(ctx, tx)
		if err != nil {
			return err
		}
		sig = s
		return nil
	})
	if err != nil {
		return "", err
	}
	c.resetToPrimary()
	return sig, nil
}

// ConfirmTransaction 轮询签名状态直到达到当前网络的 commitment 级别。
// 超时返回 *ConfirmationTimeoutError（带签名），不会无限阻塞。
func (c *Client) ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)
	target := c.CurrentNetwork().Commitment

	for {
		var status *rpc.SignatureStatus
		err := c.withRotation(func(sc solClient) error {
			s, err := sc.GetSignatureStatus(ctx, signature)
			if err != nil {
				return err
			}
			status = s
			return nil
		})
		if err != nil {
			return err
		}

		if status != nil {
			if status.Err != nil {
				return &TransactionFailedError{Signature: signature, Detail: fmt.Sprintf("%v", status.Err)}
			}
			if status.ConfirmationStatus != nil && commitmentReached(*status.ConfirmationStatus, target) {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return &ConfirmationTimeoutError{Signature: signature}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// GetSignatureStatus 单次查询签名状态（对账服务用，不轮询）
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error) {
	var status *rpc.SignatureStatus
	err := c.withRotation(func(sc solClient) error {
		s, err := sc.GetSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		status = s
		return nil
	})
	return status, err
}

// RequestAirdrop 请求测试币，仅 devnet 支持
func (c *Client) RequestAirdrop(ctx context.Context, addr types.Pubkey, lamports uint64) (string, error) {
	if c.CurrentNetwork().Name != consts.NetworkDevnet {
		return "", ErrNotSupportedOnMainnet
	}
	var sig string
	err := c.withRotation(func(sc solClient) error {
		s, err := sc.RequestAirdrop(ctx, addr.String(), lamports)
		if err != nil {
			return err
		}
		sig = s
		return nil
	})
	return sig, err
}

// commitmentLevel commitment 的偏序：processed < confirmed < finalized
func commitmentLevel(c rpc.Commitment) int {
	switch c {
	case rpc.CommitmentProcessed:
		return 0
	case rpc.CommitmentConfirmed:
		return 1
	case rpc.CommitmentFinalized:
		return 2
	default:
		return 0
	}
}

func commitmentReached(got, want rpc.Commitment) bool {
	return commitmentLevel(got) >= commitmentLevel(want)
}
