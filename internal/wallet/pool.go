package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intent-engine-sol/internal/config"
	"intent-engine-sol/internal/consts"
	"intent-engine-sol/internal/types"
	"intent-engine-sol/pkg/logger"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

const defaultPoolSize = 3

// ChainClient 钱包池需要的链上操作面（rpcx.Client 实现；测试注入 fake）
type ChainClient interface {
	GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error)
	RequestAirdrop(ctx context.Context, addr types.Pubkey, lamports uint64) (string, error)
}

// Lease 一次钱包分配的结果。HasFunds=false 表示降级分配（余额不足，
// 调用方可继续或提示人工充值）
type Lease struct {
	PublicKey types.Pubkey
	Account   sdktypes.Account
	HasFunds  bool
	pooled    bool
}

// Pooled 该租约是否来自池内（临时生成的兜底钱包返回 false）
func (l *Lease) Pooled() bool {
	return l.pooled
}

// Pool 本地资金钱包池：维护一小组临时密钥对，按余额择优分配，
// 避免每次操作都依赖交互式钱包连接。
//
// 分配/释放经由同一互斥锁串行化（进程内原子），每次变更写入完整快照。
type Pool struct {
	mu       sync.Mutex
	store    Store
	chain    ChainClient
	cfg      config.WalletPoolConfig
	staleFor time.Duration // 余额视为过期的窗口，窗口内不重复查询
	wallets  []PooledWallet
}

func NewPool(store Store, chain ChainClient, cfg config.WalletPoolConfig, staleSec int) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = defaultPoolSize
	}
	if cfg.FundedThresholdSol <= 0 {
		cfg.FundedThresholdSol = 0.01
	}
	return &Pool{
		store:    store,
		chain:    chain,
		cfg:      cfg,
		staleFor: time.Duration(staleSec) * time.Second,
	}
}

func solToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(sol * float64(consts.LamportsPerSOL))
}

// Initialize 加载持久化的池；不存在时生成固定数量的密钥对并立即持久化
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	wallets, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load wallet pool: %w", err)
	}
	if len(wallets) > 0 {
		p.wallets = wallets
		logger.Infof("[wallet] 钱包池已加载: %d 个条目", len(wallets))
		return nil
	}

	p.wallets = make([]PooledWallet, 0, p.cfg.Size)
	for i := 0; i < p.cfg.Size; i++ {
		acc := sdktypes.NewAccount()
		p.wallets = append(p.wallets, PooledWallet{
			PublicKey: types.PubkeyFromSDK(acc.PublicKey),
			SecretKey: acc.PrivateKey,
		})
	}
	if err := p.store.Save(ctx, p.wallets); err != nil {
		return fmt.Errorf("persist seeded wallet pool: %w", err)
	}
	logger.Infof("[wallet] 钱包池初始化完成: 新生成 %d 个密钥对", p.cfg.Size)
	return nil
}

// Acquire 分配一个钱包。选择顺序：
//  1. 余额达到阈值的最高余额空闲条目（HasFunds=true）
//  2. 任意余额的最高余额空闲条目
//  3. 临时生成的未充值密钥对（兜底，不入池）
//
// 池内条目在返回前标记 InUse 并持久化；同一空闲条目绝不会同时租给两个调用方。
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshIdleBalancesLocked(ctx)

	threshold := solToLamports(p.cfg.FundedThresholdSol)
	best := -1
	for i := range p.wallets {
		if p.wallets[i].InUse {
			continue
		}
		if best < 0 || p.wallets[i].BalanceLamports > p.wallets[best].BalanceLamports {
			best = i
		}
	}

	if best < 0 {
		// 池被租空：生成临时钱包兜底，调用方仍可继续
		acc := sdktypes.NewAccount()
		logger.Warnf("[wallet] 池内无空闲条目, 返回临时钱包: %s", acc.PublicKey.ToBase58())
		return &Lease{
			PublicKey: types.PubkeyFromSDK(acc.PublicKey),
			Account:   acc,
			HasFunds:  false,
		}, nil
	}

	entry := &p.wallets[best]
	entry.InUse = true
	if err := p.store.Save(ctx, p.wallets); err != nil {
		entry.InUse = false
		return nil, fmt.Errorf("persist wallet claim: %w", err)
	}

	acc, err := sdktypes.AccountFromBytes(entry.SecretKey)
	if err != nil {
		// 条目损坏：原地重建密钥对并持久化，坏槽位不能永久占用池容量
		logger.Errorf("[wallet] 池内条目私钥损坏, 重建槽位: %s, err=%v", entry.PublicKey, err)
		fresh := sdktypes.NewAccount()
		entry.PublicKey = types.PubkeyFromSDK(fresh.PublicKey)
		entry.SecretKey = fresh.PrivateKey
		entry.BalanceLamports = 0
		entry.LastCheckedAt = 0
		if err := p.store.Save(ctx, p.wallets); err != nil {
			entry.InUse = false
			return nil, fmt.Errorf("persist rebuilt wallet slot: %w", err)
		}
		return &Lease{
			PublicKey: entry.PublicKey,
			Account:   fresh,
			HasFunds:  false,
			pooled:    true,
		}, nil
	}

	return &Lease{
		PublicKey: entry.PublicKey,
		Account:   acc,
		HasFunds:  entry.BalanceLamports >= threshold,
		pooled:    true,
	}, nil
}

// Release 归还钱包（清除 InUse 并持久化）
func (p *Pool) Release(ctx context.Context, pub types.Pubkey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.wallets {
		if p.wallets[i].PublicKey.Equals(pub) {
			p.wallets[i].InUse = false
			return p.store.Save(ctx, p.wallets)
		}
	}
	// 临时钱包不在池内，静默忽略
	return nil
}

// EnsureFunded 确保钱包达到最低余额。余额足够立即返回 true；
// 否则最多发起一次保守额度的 airdrop，限流时降级为"有任意非零余额即可"。
// 失败不会阻塞调用方，只返回 false 并把地址暴露在日志里供人工充值。
func (p *Pool) EnsureFunded(ctx context.Context, pub types.Pubkey, minLamports uint64) bool {
	balance, err := p.chain.GetBalance(ctx, pub)
	if err == nil {
		p.updateBalance(ctx, pub, balance)
		if balance >= minLamports {
			return true
		}
	} else {
		logger.Warnf("[wallet] 余额查询失败: %s, err=%v", pub, err)
	}

	airdrop := solToLamports(p.cfg.AirdropSol)
	if airdrop == 0 {
		airdrop = consts.LamportsPerSOL
	}
	if _, err := p.chain.RequestAirdrop(ctx, pub, airdrop); err != nil {
		logger.Warnf("[wallet] airdrop 失败 (地址可人工充值): %s, err=%v", pub, err)
		// 限流降级：有任意非零余额就继续
		return balance > 0
	}

	// airdrop 已受理，复查余额
	newBalance, err := p.chain.GetBalance(ctx, pub)
	if err != nil {
		return balance > 0
	}
	p.updateBalance(ctx, pub, newBalance)
	return newBalance >= minLamports || newBalance > 0
}

// RefreshBalances 刷新所有空闲条目的余额并持久化（后台同步服务调用）
func (p *Pool) RefreshBalances(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshIdleBalancesLocked(ctx)
	return p.store.Save(ctx, p.wallets)
}

// Wallets 返回池内条目快照（只读视图，不含私钥用途的调用方应自行忽略）
func (p *Pool) Wallets() []PooledWallet {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PooledWallet, len(p.wallets))
	copy(out, p.wallets)
	return out
}

// refreshIdleBalancesLocked 刷新空闲条目余额；RPC 失败保留上次已知值
func (p *Pool) refreshIdleBalancesLocked(ctx context.Context) {
	now := time.Now().Unix()
	for i := range p.wallets {
		if p.wallets[i].InUse {
			continue
		}
		if p.staleFor > 0 && now-p.wallets[i].LastCheckedAt < int64(p.staleFor/time.Second) {
			continue // 余额尚新，省一次 RPC
		}
		balance, err := p.chain.GetBalance(ctx, p.wallets[i].PublicKey)
		if err != nil {
			logger.Warnf("[wallet] 刷新余额失败: %s, err=%v", p.wallets[i].PublicKey, err)
			continue
		}
		p.wallets[i].BalanceLamports = balance
		p.wallets[i].LastCheckedAt = now
	}
}

func (p *Pool) updateBalance(ctx context.Context, pub types.Pubkey, balance uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.wallets {
		if p.wallets[i].PublicKey.Equals(pub) {
			p.wallets[i].BalanceLamports = balance
			p.wallets[i].LastCheckedAt = time.Now().Unix()
			_ = p.store.Save(ctx, p.wallets)
			return
		}
	}
}
