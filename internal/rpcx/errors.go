package rpcx

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimited 所有端点轮换耗尽后仍被限流，对本次调用是终态
	ErrRateLimited = errors.New("rpc rate limited: endpoint rotation exhausted")

	// ErrNotSupportedOnMainnet airdrop 仅 devnet 可用
	ErrNotSupportedOnMainnet = errors.New("airdrop not supported on mainnet")

	// ErrConfirmationTimeout 确认等待超时，链上结果不明确（可稍后对账）
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
)

// ConfirmationTimeoutError 携带最后已知签名，调用方可据此稍后重查状态
type ConfirmationTimeoutError struct {
	Signature string
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("confirmation timeout, last known signature=%s", e.Signature)
}

func (e *ConfirmationTimeoutError) Unwrap() error { return ErrConfirmationTimeout }

// TransactionFailedError 链上执行失败（确认返回了错误）
type TransactionFailedError struct {
	Signature string
	Detail    string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %s", e.Signature, e.Detail)
}

// isRateLimitSignal 判定限流信号：HTTP 429 或等价错误文案。
// RPC 提供商的限流响应没有统一格式，按文本匹配是唯一可靠手段。
func isRateLimitSignal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}
