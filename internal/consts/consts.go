package consts

const (
	// LamportsPerSOL 1 SOL = 10^9 lamports
	LamportsPerSOL uint64 = 1_000_000_000

	// 网络名称（配置与 RPC 层共用）
	NetworkDevnet  = "devnet"
	NetworkMainnet = "mainnet"
)
