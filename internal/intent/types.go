package intent

import "intent-engine-sol/internal/types"

// Type 客户端意图类型（buy 走 launchpad 程序）
type Type string

const (
	TypeSwap Type = "swap"
	TypeLend Type = "lend"
	TypeBuy  Type = "buy"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSwap, TypeLend, TypeBuy:
		return true
	}
	return false
}

// Status 客户端侧意图状态机：
// pending --submit--> executing --confirm ok--> completed
//                     executing --confirm err--> failed
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal 是否终态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// 失败类别：timeout 与硬失败区分开，UI 可提示"重新查询"而不是"重试"，
// 避免重复提交
const (
	ErrKindEncoding    = "encoding"     // 字段编码错误，不可重试
	ErrKindSigner      = "signer"       // 外部签名方无法后台签名
	ErrKindNetwork     = "network"      // 网络/RPC 错误
	ErrKindRateLimited = "rate_limited" // 端点轮换耗尽
	ErrKindTimeout     = "timeout"      // 确认超时，结果不明确，可对账
	ErrKindOnChain     = "onchain"      // 链上执行失败
)

// Params 意图参数（按类型取用相应字段，整体随记录持久化）
type Params struct {
	// swap
	FromMint       types.Pubkey `json:"from_mint,omitempty"`
	ToMint         types.Pubkey `json:"to_mint,omitempty"`
	MaxSlippageBps uint16       `json:"max_slippage_bps,omitempty"`

	// lend
	Mint        types.Pubkey `json:"mint,omitempty"`
	MinApyBps   uint16       `json:"min_apy_bps,omitempty"`
	DurationSec int64        `json:"duration_sec,omitempty"`

	// buy（launchpad 出资）
	LaunchCreator types.Pubkey `json:"launch_creator,omitempty"`
	LaunchID      uint64       `json:"launch_id,omitempty"`

	// 共用
	Amount       uint64 `json:"amount"`
	ExpiresInSec int64  `json:"expires_in_sec,omitempty"`
}

// TrackedIntent 客户端追踪的意图记录，仅由 Tracker 的状态迁移操作修改
type TrackedIntent struct {
	ID          string `json:"id"`
	Type        Type   `json:"type"`
	Status      Status `json:"status"`
	Params      Params `json:"params"`
	CreatedAt   int64  `json:"created_at"` // Unix 秒
	TxSignature string `json:"tx_signature,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
}

// Update 状态变更通知（带缓冲投递，慢消费者不会阻塞状态机）
type Update struct {
	ID     string
	Status Status
}
