package codec

import "crypto/sha256"

// 链上程序的指令方法名（discriminator 按 Anchor 约定从方法名派生）
const (
	MethodInitializeProtocol  = "initialize_protocol"
	MethodInitializeUser      = "initialize_user"
	MethodCreateSwapIntent    = "create_swap_intent"
	MethodCreateLendIntent    = "create_lend_intent"
	MethodExecuteSwapIntent   = "execute_swap_intent"
	MethodCancelIntent        = "cancel_intent"
	MethodInitializeLaunchpad = "initialize_launchpad"
	MethodCreateTokenLaunch   = "create_token_launch"
	MethodContributeToLaunch  = "contribute_to_launch"
	MethodFinalizeLaunch      = "finalize_launch"
	MethodClaimTokens         = "claim_tokens"
	MethodClaimRefund         = "claim_refund"
	MethodWithdrawFunds       = "withdraw_funds"
)

// methodSet 列出全部合法方法名，EncodeInstruction 以此校验
var methodSet = map[string]struct{}{
	MethodInitializeProtocol:  {},
	MethodInitializeUser:      {},
	MethodCreateSwapIntent:    {},
	MethodCreateLendIntent:    {},
	MethodExecuteSwapIntent:   {},
	MethodCancelIntent:        {},
	MethodInitializeLaunchpad: {},
	MethodCreateTokenLaunch:   {},
	MethodContributeToLaunch:  {},
	MethodFinalizeLaunch:      {},
	MethodClaimTokens:         {},
	MethodClaimRefund:         {},
	MethodWithdrawFunds:       {},
}

// Discriminator 计算指令的 8 字节方法标识：SHA-256("global:<method>") 前 8 字节。
// 必须与链上程序逐位一致。
func Discriminator(method string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + method))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// AccountDiscriminator 计算账户的 8 字节标识：SHA-256("account:<Name>") 前 8 字节
func AccountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
