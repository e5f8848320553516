package intent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"intent-engine-sol/internal/codec"
	"intent-engine-sol/internal/rpcx"
	"intent-engine-sol/internal/types"
	"intent-engine-sol/internal/wallet"
	"intent-engine-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"
)

// errSignerRequired 外部签名方不支持后台提交（需走外部钱包签名流程）
var errSignerRequired = errors.New("external signer cannot sign background submission")

const (
	defaultConfirmTimeout = 30 * time.Second
	defaultConfirmPoll    = 2 * time.Second

	// 单个意图的整体执行上限：确认超时之外留出构建与提交的余量
	executeMargin = 30 * time.Second
)

// ChainClient Tracker 需要的链上操作面（rpcx.Client 实现；测试注入 fake）
type ChainClient interface {
	CurrentNetwork() rpcx.Network
	GetAccountInfo(ctx context.Context, addr types.Pubkey) (client.AccountInfo, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, timeout, pollInterval time.Duration) error
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
}

// Tracker 单个活跃钱包的意图生命周期追踪器。
//
// 每个意图独立的异步任务顺序推进 pending → executing → completed/failed；
// 所有记录变更经由同一互斥锁 + 整表快照持久化。
type Tracker struct {
	mu      sync.Mutex
	owner   wallet.Signer
	chain   ChainClient
	store   Store
	records map[string]*TrackedIntent
	order   []string // 保持创建顺序

	confirmTimeout time.Duration
	confirmPoll    time.Duration

	updates chan Update
	wg      sync.WaitGroup
}

// NewTracker 构建追踪器并加载 owner 名下持久化的意图列表
func NewTracker(ctx context.Context, owner wallet.Signer, chain ChainClient, store Store, confirmTimeout, confirmPoll time.Duration) (*Tracker, error) {
	if confirmTimeout <= 0 {
		confirmTimeout = defaultConfirmTimeout
	}
	if confirmPoll <= 0 {
		confirmPoll = defaultConfirmPoll
	}
	t := &Tracker{
		owner:          owner,
		chain:          chain,
		store:          store,
		records:        make(map[string]*TrackedIntent),
		confirmTimeout: confirmTimeout,
		confirmPoll:    confirmPoll,
		updates:        make(chan Update, 64),
	}

	persisted, err := store.Load(ctx, owner.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("load intent history: %w", err)
	}
	for i := range persisted {
		rec := persisted[i]
		// 进程重启时不可能还有在途任务：非终态记录统一落为 failed。
		// 已留下签名的说明交易可能在崩溃前送达，按 timeout 归类让对账服务回查；
		// 没有签名的不存在可查的链上痕迹
		if !rec.Status.Terminal() {
			rec.Status = StatusFailed
			rec.Error = "interrupted by process restart"
			if rec.TxSignature != "" {
				rec.ErrorKind = ErrKindTimeout
			} else {
				rec.ErrorKind = ErrKindNetwork
			}
		}
		t.records[rec.ID] = &rec
		t.order = append(t.order, rec.ID)
	}
	return t, nil
}

// Owner 当前追踪器绑定的钱包地址
func (t *Tracker) Owner() types.Pubkey {
	return t.owner.PublicKey()
}

// Updates 状态变更通知通道（缓冲投递，不保证每个变更都送达慢消费者）
func (t *Tracker) Updates() <-chan Update {
	return t.updates
}

// Wait 等待所有在途意图任务结束（优雅退出/测试用）
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// CreateIntent 同步登记 pending 记录并持久化，随后异步执行提交与确认。
// 返回的 intentId 可用于 CancelIntent 与状态查询。
func (t *Tracker) CreateIntent(ctx context.Context, typ Type, params Params) (string, error) {
	if !typ.Valid() {
		return "", fmt.Errorf("invalid intent type %q", typ)
	}

	rec := &TrackedIntent{
		ID:        uuid.NewString(),
		Type:      typ,
		Status:    StatusPending,
		Params:    params,
		CreatedAt: time.Now().Unix(),
	}

	t.mu.Lock()
	t.records[rec.ID] = rec
	t.order = append(t.order, rec.ID)
	if err := t.persistLocked(ctx); err != nil {
		delete(t.records, rec.ID)
		t.order = t.order[:len(t.order)-1]
		t.mu.Unlock()
		return "", fmt.Errorf("register intent: %w", err)
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go t.execute(rec.ID, typ, params)
	return rec.ID, nil
}

// Get 查询单条记录（副本）
func (t *Tracker) Get(id string) (TrackedIntent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return TrackedIntent{}, false
	}
	return *rec, true
}

// List 返回全部记录（创建顺序）
func (t *Tracker) List() []TrackedIntent {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TrackedIntent, 0, len(t.order))
	for _, id := range t.order {
		if rec, ok := t.records[id]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// GetHistory 返回终态记录（completed / failed）
func (t *Tracker) GetHistory() []TrackedIntent {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TrackedIntent, 0, len(t.order))
	for _, id := range t.order {
		if rec, ok := t.records[id]; ok && rec.Status.Terminal() {
			out = append(out, *rec)
		}
	}
	return out
}

// CancelIntent 仅移除本地记录并持久化，不回滚链上状态。
// 若该意图的提交已在途，链上结果与本地视图可能分叉（已知边界情况）。
func (t *Tracker) CancelIntent(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[id]; !ok {
		return fmt.Errorf("intent %s not found", id)
	}
	delete(t.records, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return t.persistLocked(ctx)
}

// GetUserProfile 读取并解码用户链上档案。
// 账户不存在/数据非法按"档案为空"处理，RPC 错误原样上抛。
func (t *Tracker) GetUserProfile(ctx context.Context, pub types.Pubkey) (*codec.UserAccount, error) {
	program := t.chain.CurrentNetwork().IntentProgram
	userPDA, _, err := codec.DeriveUserPDA(pub, program)
	if err != nil {
		return nil, err
	}
	info, err := t.chain.GetAccountInfo(ctx, userPDA)
	if err != nil {
		return nil, fmt.Errorf("get user account: %w", err)
	}
	if len(info.Data) == 0 {
		return &codec.UserAccount{Authority: pub}, nil
	}
	owner := types.PubkeyFromSDK(info.Owner)
	profile, err := codec.DecodeUserAccount(info.Data, &owner, &program)
	if err != nil {
		logger.Warnf("[intent] 用户档案解码失败, 按空档案处理: %s, err=%v", userPDA, err)
		return &codec.UserAccount{Authority: pub}, nil
	}
	return profile, nil
}

// execute 单个意图的异步执行：严格顺序 pending → executing → 终态
func (t *Tracker) execute(id string, typ Type, params Params) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), t.confirmTimeout+executeMargin)
	defer cancel()

	if !t.transition(id, StatusExecuting, nil) {
		return // 已被取消
	}

	ix, err := t.buildInstruction(ctx, typ, params)
	if err != nil {
		t.fail(id, err)
		return
	}

	acc, ok := t.owner.Account()
	if !ok {
		t.fail(id, errSignerRequired)
		return
	}

	blockhash, err := t.chain.GetLatestBlockhash(ctx)
	if err != nil {
		t.fail(id, fmt.Errorf("get latest blockhash: %w", err))
		return
	}

	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: sdktypes.NewMessage(sdktypes.NewMessageParam{
			FeePayer:        acc.PublicKey,
			RecentBlockhash: blockhash,
			Instructions:    []sdktypes.Instruction{ix},
		}),
		Signers: []sdktypes.Account{acc},
	})
	if err != nil {
		t.fail(id, fmt.Errorf("build transaction: %w", err))
		return
	}

	sig, err := t.chain.SendTransaction(ctx, tx)
	if err != nil {
		t.fail(id, fmt.Errorf("send transaction: %w", err))
		return
	}
	// 提交即记录签名：确认超时后仍可凭它对账
	t.transition(id, StatusExecuting, func(rec *TrackedIntent) {
		rec.TxSignature = sig
	})

	if err := t.chain.ConfirmTransaction(ctx, sig, t.confirmTimeout, t.confirmPoll); err != nil {
		t.fail(id, err)
		return
	}

	t.transition(id, StatusCompleted, func(rec *TrackedIntent) {
		rec.TxSignature = sig
		rec.Error = ""
		rec.ErrorKind = ""
	})
}

// buildInstruction 按意图类型构建指令（swap/lend 走 intent 程序，buy 走 launchpad）
func (t *Tracker) buildInstruction(ctx context.Context, typ Type, params Params) (sdktypes.Instruction, error) {
	network := t.chain.CurrentNetwork()
	authority := t.owner.PublicKey()

	switch typ {
	case TypeSwap:
		seq := t.nextIntentSeq(ctx, authority, network.IntentProgram)
		return codec.BuildCreateSwapIntentIx(network.IntentProgram, authority, seq, codec.CreateSwapIntentArgs{
			FromMint:       params.FromMint,
			ToMint:         params.ToMint,
			Amount:         params.Amount,
			MaxSlippageBps: params.MaxSlippageBps,
			ExpiresInSec:   params.ExpiresInSec,
		})
	case TypeLend:
		seq := t.nextIntentSeq(ctx, authority, network.IntentProgram)
		return codec.BuildCreateLendIntentIx(network.IntentProgram, authority, seq, codec.CreateLendIntentArgs{
			Mint:        params.Mint,
			Amount:      params.Amount,
			MinApyBps:   params.MinApyBps,
			DurationSec: params.DurationSec,
		})
	case TypeBuy:
		if params.LaunchCreator.IsZero() {
			return sdktypes.Instruction{}, &codec.EncodingError{
				Method: codec.MethodContributeToLaunch,
				Field:  "LaunchCreator",
				Reason: "zero creator address",
			}
		}
		return codec.BuildContributeToLaunchIx(network.LaunchpadProgram, params.LaunchCreator, params.LaunchID, authority, codec.ContributeToLaunchArgs{
			Amount: params.Amount,
		})
	default:
		return sdktypes.Instruction{}, fmt.Errorf("invalid intent type %q", typ)
	}
}

// nextIntentSeq 读取用户链上档案拿到下一个意图序号；账户缺失/非法时从 0 开始
func (t *Tracker) nextIntentSeq(ctx context.Context, authority, program types.Pubkey) uint64 {
	userPDA, _, err := codec.DeriveUserPDA(authority, program)
	if err != nil {
		return 0
	}
	info, err := t.chain.GetAccountInfo(ctx, userPDA)
	if err != nil || len(info.Data) == 0 {
		return 0
	}
	owner := types.PubkeyFromSDK(info.Owner)
	profile, err := codec.DecodeUserAccount(info.Data, &owner, &program)
	if err != nil {
		return 0
	}
	return profile.TotalIntentsCreated
}

// fail 将意图落为 failed，错误信息与类别一并记录
func (t *Tracker) fail(id string, err error) {
	kind := classifyErr(err)
	t.transition(id, StatusFailed, func(rec *TrackedIntent) {
		rec.Error = err.Error()
		rec.ErrorKind = kind
	})
}

// classifyErr 将底层错误折叠为对 UI 有意义的失败类别
func classifyErr(err error) string {
	var encErr *codec.EncodingError
	var txErr *rpcx.TransactionFailedError
	switch {
	case errors.As(err, &encErr):
		return ErrKindEncoding
	case errors.Is(err, rpcx.ErrConfirmationTimeout):
		return ErrKindTimeout
	case errors.Is(err, rpcx.ErrRateLimited):
		return ErrKindRateLimited
	case errors.As(err, &txErr):
		return ErrKindOnChain
	case errors.Is(err, context.DeadlineExceeded):
		return ErrKindTimeout
	case errors.Is(err, errSignerRequired):
		return ErrKindSigner
	default:
		return ErrKindNetwork
	}
}

// transition 推进状态并持久化；记录已被取消时返回 false。
// 同一意图的迁移经由互斥锁严格串行。
func (t *Tracker) transition(id string, status Status, mutate func(rec *TrackedIntent)) bool {
	t.mu.Lock()
	rec, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		logger.Infof("[intent] 记录已被取消, 丢弃状态迁移: id=%s, status=%s", id, status)
		return false
	}
	rec.Status = status
	if mutate != nil {
		mutate(rec)
	}
	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := t.persistLocked(persistCtx); err != nil {
		logger.Errorf("[intent] 持久化失败: id=%s, err=%v", id, err)
	}
	cancel()
	t.mu.Unlock()

	select {
	case t.updates <- Update{ID: id, Status: status}:
	default:
	}
	return true
}

// persistLocked 整表快照写入（须持有 t.mu）
func (t *Tracker) persistLocked(ctx context.Context) error {
	snapshot := make([]TrackedIntent, 0, len(t.order))
	for _, id := range t.order {
		if rec, ok := t.records[id]; ok {
			snapshot = append(snapshot, *rec)
		}
	}
	return t.store.Save(ctx, t.owner.PublicKey(), snapshot)
}

// ReconcileTimeouts 对 timeout 类失败且留有签名的记录重查链上状态，
// 已上链成功的回填为 completed。返回本轮修正的记录数。
func (t *Tracker) ReconcileTimeouts(ctx context.Context) int {
	candidates := make([]TrackedIntent, 0)
	for _, rec := range t.GetHistory() {
		if rec.Status == StatusFailed && rec.ErrorKind == ErrKindTimeout && rec.TxSignature != "" {
			candidates = append(candidates, rec)
		}
	}

	reconciled := 0
	for _, rec := range candidates {
		status, err := t.chain.GetSignatureStatus(ctx, rec.TxSignature)
		if err != nil || status == nil {
			continue
		}
		if status.Err != nil {
			t.transition(rec.ID, StatusFailed, func(r *TrackedIntent) {
				r.Error = fmt.Sprintf("failed on-chain: %v", status.Err)
				r.ErrorKind = ErrKindOnChain
			})
			reconciled++
			continue
		}
		if status.ConfirmationStatus != nil && confirmedEnough(*status.ConfirmationStatus) {
			t.transition(rec.ID, StatusCompleted, func(r *TrackedIntent) {
				r.Error = ""
				r.ErrorKind = ""
			})
			reconciled++
		}
	}
	return reconciled
}

func confirmedEnough(c rpc.Commitment) bool {
	return c == rpc.CommitmentConfirmed || c == rpc.CommitmentFinalized
}
