package wallet

import (
	"intent-engine-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// SignerKind 签名方来源标签
type SignerKind uint8

const (
	// SignerLocal 本地托管密钥（可直接签名提交）
	SignerLocal SignerKind = iota
	// SignerExternal 外部钱包（只持有公钥，签名在外部完成）
	SignerExternal
)

// Signer 是 "完整密钥 | 裸公钥" 的带标签变体，
// 统一自托管与外部钱包两种流程，按标签显式分派而非运行时类型判断
type Signer struct {
	kind     SignerKind
	local    sdktypes.Account
	external types.Pubkey
}

// LocalSigner 从本地密钥对构建
func LocalSigner(account sdktypes.Account) Signer {
	return Signer{kind: SignerLocal, local: account}
}

// ExternalSigner 从裸公钥构建（交易需外部签名）
func ExternalSigner(pub types.Pubkey) Signer {
	return Signer{kind: SignerExternal, external: pub}
}

func (s Signer) Kind() SignerKind {
	return s.kind
}

func (s Signer) PublicKey() types.Pubkey {
	if s.kind == SignerLocal {
		return types.PubkeyFromSDK(s.local.PublicKey)
	}
	return s.external
}

// CanSign 是否可本地签名
func (s Signer) CanSign() bool {
	return s.kind == SignerLocal
}

// Account 返回本地密钥对；External 签名方返回 false
func (s Signer) Account() (sdktypes.Account, bool) {
	if s.kind != SignerLocal {
		return sdktypes.Account{}, false
	}
	return s.local, true
}
