package intent

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"intent-engine-sol/internal/codec"
	"intent-engine-sol/internal/consts"
	"intent-engine-sol/internal/rpcx"
	"intent-engine-sol/internal/types"
	"intent-engine-sol/internal/wallet"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testMintA = types.PubkeyFromBase58("6MQ9dDq6siEgRShJa2xbkz6QoECHiqv6MP18FA6hov3Z")
	testMintB = types.PubkeyFromBase58("F6ANxSg3z9P7tjV7u9MvsRuBZsXaKVosMMw4EgW9DDmv")

	// 32 字节的合法 base58 blockhash（交易序列化要求）
	testBlockhash = "Hy3TvmossVNAD2KRBN4UaSytqzxRSkuQmPao68AkBZhr"
)

// memIntentStore 进程内意图历史存储
type memIntentStore struct {
	mu      sync.Mutex
	history map[types.Pubkey][]TrackedIntent
}

func newMemIntentStore() *memIntentStore {
	return &memIntentStore{history: make(map[types.Pubkey][]TrackedIntent)}
}

func (s *memIntentStore) Load(ctx context.Context, owner types.Pubkey) ([]TrackedIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrackedIntent, len(s.history[owner]))
	copy(out, s.history[owner])
	return out, nil
}

func (s *memIntentStore) Save(ctx context.Context, owner types.Pubkey, intents []TrackedIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]TrackedIntent, len(intents))
	copy(snapshot, intents)
	s.history[owner] = snapshot
	return nil
}

// fakeChain 可编程链上操作面，未编程的调用一律成功
type fakeChain struct {
	mu         sync.Mutex
	network    rpcx.Network
	account    client.AccountInfo
	sendErr    error
	confirmErr error
	statusFn   func(sig string) (*rpc.SignatureStatus, error)
	sentSigs   []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		network: rpcx.Network{
			Name:             consts.NetworkDevnet,
			IntentProgram:    consts.IntentProgramDevnet,
			LaunchpadProgram: consts.LaunchpadProgramDevnet,
			Commitment:       rpc.CommitmentConfirmed,
		},
	}
}

func (c *fakeChain) CurrentNetwork() rpcx.Network {
	return c.network
}

func (c *fakeChain) GetAccountInfo(ctx context.Context, addr types.Pubkey) (client.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account, nil
}

func (c *fakeChain) GetLatestBlockhash(ctx context.Context) (string, error) {
	return testBlockhash, nil
}

func (c *fakeChain) SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	sig := "sig-" + string(rune('a'+len(c.sentSigs)))
	c.sentSigs = append(c.sentSigs, sig)
	return sig, nil
}

func (c *fakeChain) ConfirmTransaction(ctx context.Context, signature string, timeout, pollInterval time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmErr
}

func (c *fakeChain) GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusFn != nil {
		return c.statusFn(signature)
	}
	return nil, nil
}

func newTestTracker(t *testing.T) (*Tracker, *memIntentStore, *fakeChain) {
	t.Helper()
	store := newMemIntentStore()
	chain := newFakeChain()
	owner := wallet.LocalSigner(sdktypes.NewAccount())
	tracker, err := NewTracker(context.Background(), owner, chain, store, time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	return tracker, store, chain
}

func swapParams() Params {
	return Params{
		FromMint:       testMintA,
		ToMint:         testMintB,
		Amount:         1_000_000,
		MaxSlippageBps: 50,
		ExpiresInSec:   3600,
	}
}

func TestCreateIntent_SwapCompletes(t *testing.T) {
	tracker, store, chain := newTestTracker(t)

	id, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	tracker.Wait()

	rec, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "sig-a", rec.TxSignature)
	assert.Empty(t, rec.Error)
	assert.Len(t, chain.sentSigs, 1)

	// 终态已落盘
	persisted, err := store.Load(context.Background(), tracker.Owner())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, StatusCompleted, persisted[0].Status)
}

func TestCreateIntent_InvalidType(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	_, err := tracker.CreateIntent(context.Background(), Type("stake"), Params{Amount: 1})
	assert.Error(t, err)
}

func TestCreateIntent_SendFailureYieldsSingleFailedRecord(t *testing.T) {
	tracker, _, chain := newTestTracker(t)
	chain.sendErr = errors.New("connection refused")

	params := swapParams()
	id, err := tracker.CreateIntent(context.Background(), TypeSwap, params)
	require.NoError(t, err)
	tracker.Wait()

	all := tracker.List()
	require.Len(t, all, 1, "失败只产生一条记录，不残留 executing")
	rec := all[0]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindNetwork, rec.ErrorKind)
	assert.NotEmpty(t, rec.Error)
	assert.Equal(t, params, rec.Params, "失败记录必须保留完整参数")
}

func TestCreateIntent_EncodingErrorClassified(t *testing.T) {
	tracker, _, chain := newTestTracker(t)

	// 金额为零在编码阶段即被拒绝，不触发任何链上调用
	id, err := tracker.CreateIntent(context.Background(), TypeSwap, Params{
		FromMint: testMintA,
		ToMint:   testMintB,
	})
	require.NoError(t, err)
	tracker.Wait()

	rec, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindEncoding, rec.ErrorKind)
	assert.Empty(t, chain.sentSigs)
}

func TestCreateIntent_ExternalSignerFails(t *testing.T) {
	store := newMemIntentStore()
	chain := newFakeChain()
	pub := types.PubkeyFromSDK(sdktypes.NewAccount().PublicKey)
	tracker, err := NewTracker(context.Background(), wallet.ExternalSigner(pub), chain, store, time.Second, 10*time.Millisecond)
	require.NoError(t, err)

	id, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	rec, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindSigner, rec.ErrorKind)
}

func TestCreateIntent_BuyRequiresLaunchCreator(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	id, err := tracker.CreateIntent(context.Background(), TypeBuy, Params{Amount: 42})
	require.NoError(t, err)
	tracker.Wait()

	rec, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindEncoding, rec.ErrorKind)
}

func TestConfirmTimeout_ThenReconcileCompletes(t *testing.T) {
	tracker, _, chain := newTestTracker(t)
	chain.confirmErr = &rpcx.ConfirmationTimeoutError{Signature: "sig-a"}

	id, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	rec, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindTimeout, rec.ErrorKind)
	assert.Equal(t, "sig-a", rec.TxSignature, "超时也必须留下签名供对账")

	// 链上其实已确认：对账应把记录回填为 completed
	confirmed := rpc.CommitmentConfirmed
	chain.mu.Lock()
	chain.statusFn = func(sig string) (*rpc.SignatureStatus, error) {
		return &rpc.SignatureStatus{ConfirmationStatus: &confirmed}, nil
	}
	chain.mu.Unlock()

	assert.Equal(t, 1, tracker.ReconcileTimeouts(context.Background()))

	rec, _ = tracker.Get(id)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Empty(t, rec.Error)
	assert.Empty(t, rec.ErrorKind)

	// 第二轮没有可对账的记录
	assert.Equal(t, 0, tracker.ReconcileTimeouts(context.Background()))
}

func TestReconcile_OnChainFailureStaysFailed(t *testing.T) {
	tracker, _, chain := newTestTracker(t)
	chain.confirmErr = &rpcx.ConfirmationTimeoutError{Signature: "sig-a"}

	id, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	chain.mu.Lock()
	chain.statusFn = func(sig string) (*rpc.SignatureStatus, error) {
		return &rpc.SignatureStatus{Err: map[string]any{"InstructionError": []any{}}}, nil
	}
	chain.mu.Unlock()

	assert.Equal(t, 1, tracker.ReconcileTimeouts(context.Background()))

	rec, _ := tracker.Get(id)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindOnChain, rec.ErrorKind)
}

func TestCancelIntent_RemovesRecord(t *testing.T) {
	tracker, store, _ := newTestTracker(t)

	id, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	require.NoError(t, tracker.CancelIntent(context.Background(), id))

	_, ok := tracker.Get(id)
	assert.False(t, ok)
	assert.Empty(t, tracker.List())

	persisted, err := store.Load(context.Background(), tracker.Owner())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestCancelIntent_UnknownID(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	assert.Error(t, tracker.CancelIntent(context.Background(), "no-such-intent"))
}

func TestGetHistory_TerminalOnly(t *testing.T) {
	tracker, _, chain := newTestTracker(t)

	okID, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	chain.mu.Lock()
	chain.sendErr = errors.New("connection refused")
	chain.mu.Unlock()
	failID, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	history := tracker.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, okID, history[0].ID)
	assert.Equal(t, StatusCompleted, history[0].Status)
	assert.Equal(t, failID, history[1].ID)
	assert.Equal(t, StatusFailed, history[1].Status)
}

func TestNewTracker_RestartFailsInflightRecords(t *testing.T) {
	store := newMemIntentStore()
	chain := newFakeChain()
	owner := wallet.LocalSigner(sdktypes.NewAccount())

	require.NoError(t, store.Save(context.Background(), owner.PublicKey(), []TrackedIntent{
		{ID: "done", Type: TypeSwap, Status: StatusCompleted, TxSignature: "sig-x"},
		{ID: "inflight", Type: TypeSwap, Status: StatusExecuting},
		{ID: "queued", Type: TypeLend, Status: StatusPending},
	}))

	tracker, err := NewTracker(context.Background(), owner, chain, store, time.Second, 10*time.Millisecond)
	require.NoError(t, err)

	done, _ := tracker.Get("done")
	assert.Equal(t, StatusCompleted, done.Status)

	for _, id := range []string{"inflight", "queued"} {
		rec, ok := tracker.Get(id)
		require.True(t, ok)
		assert.Equal(t, StatusFailed, rec.Status, "重启后不可能还有在途任务")
		assert.Equal(t, ErrKindNetwork, rec.ErrorKind, "无签名的在途记录没有可查的链上痕迹")
		assert.NotEmpty(t, rec.Error)
	}
}

func TestNewTracker_RestartKeepsSentRecordsReconcilable(t *testing.T) {
	store := newMemIntentStore()
	chain := newFakeChain()
	owner := wallet.LocalSigner(sdktypes.NewAccount())

	// 崩溃前已提交：签名在，确认结果不明
	require.NoError(t, store.Save(context.Background(), owner.PublicKey(), []TrackedIntent{
		{ID: "sent", Type: TypeSwap, Status: StatusExecuting, TxSignature: "sig-sent"},
	}))

	tracker, err := NewTracker(context.Background(), owner, chain, store, time.Second, 10*time.Millisecond)
	require.NoError(t, err)

	rec, ok := tracker.Get("sent")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrKindTimeout, rec.ErrorKind, "带签名的记录按 timeout 归类, 保持可对账")
	assert.Equal(t, "sig-sent", rec.TxSignature)

	// 链上其实已确认：对账把它回填为 completed
	confirmed := rpc.CommitmentConfirmed
	chain.mu.Lock()
	chain.statusFn = func(sig string) (*rpc.SignatureStatus, error) {
		return &rpc.SignatureStatus{ConfirmationStatus: &confirmed}, nil
	}
	chain.mu.Unlock()

	assert.Equal(t, 1, tracker.ReconcileTimeouts(context.Background()))

	rec, _ = tracker.Get("sent")
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Empty(t, rec.ErrorKind)
}

func TestUpdates_DeliversTerminalStatus(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	id, err := tracker.CreateIntent(context.Background(), TypeSwap, swapParams())
	require.NoError(t, err)
	tracker.Wait()

	var last Update
	for {
		select {
		case u := <-tracker.Updates():
			last = u
		default:
			assert.Equal(t, id, last.ID)
			assert.Equal(t, StatusCompleted, last.Status)
			return
		}
	}
}

// buildUserAccountData 拼装链上用户档案账户的原始字节
func buildUserAccountData(authority types.Pubkey, active uint8, created, volume uint64) []byte {
	buf := make([]byte, 57)
	disc := codec.AccountDiscriminator(codec.AccountUser)
	copy(buf[0:8], disc[:])
	copy(buf[8:40], authority.Bytes())
	buf[40] = active
	binary.LittleEndian.PutUint64(buf[41:49], created)
	binary.LittleEndian.PutUint64(buf[49:57], volume)
	return buf
}

func TestGetUserProfile_DecodesAccount(t *testing.T) {
	tracker, _, chain := newTestTracker(t)
	owner := tracker.Owner()

	chain.mu.Lock()
	chain.account = client.AccountInfo{
		Owner: consts.IntentProgramDevnet.ToSDK(),
		Data:  buildUserAccountData(owner, 3, 12, 9_000_000),
	}
	chain.mu.Unlock()

	profile, err := tracker.GetUserProfile(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, profile.Authority)
	assert.Equal(t, uint8(3), profile.ActiveIntents)
	assert.Equal(t, uint64(12), profile.TotalIntentsCreated)
	assert.Equal(t, uint64(9_000_000), profile.TotalVolume)
}

func TestGetUserProfile_MissingAccountIsEmptyProfile(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	owner := tracker.Owner()

	profile, err := tracker.GetUserProfile(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, profile.Authority)
	assert.Zero(t, profile.TotalIntentsCreated)
}

func TestGetUserProfile_GarbageDataIsEmptyProfile(t *testing.T) {
	tracker, _, chain := newTestTracker(t)
	owner := tracker.Owner()

	chain.mu.Lock()
	chain.account = client.AccountInfo{
		Owner: consts.IntentProgramDevnet.ToSDK(),
		Data:  []byte{0x01, 0x02, 0x03},
	}
	chain.mu.Unlock()

	profile, err := tracker.GetUserProfile(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, profile.Authority)
	assert.Zero(t, profile.TotalIntentsCreated)
}

func TestNextIntentSeq_ReadFromProfile(t *testing.T) {
	tracker, _, chain := newTestTracker(t)
	owner := tracker.Owner()

	chain.mu.Lock()
	chain.account = client.AccountInfo{
		Owner: consts.IntentProgramDevnet.ToSDK(),
		Data:  buildUserAccountData(owner, 1, 7, 0),
	}
	chain.mu.Unlock()

	seq := tracker.nextIntentSeq(context.Background(), owner, consts.IntentProgramDevnet)
	assert.Equal(t, uint64(7), seq)
}
