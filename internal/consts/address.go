package consts

import "intent-engine-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr          = "11111111111111111111111111111111"
	TokenProgramStr           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramStr = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	SysvarRentStr             = "SysvarRent111111111111111111111111111111111"
	SysvarClockStr            = "SysvarC1ock11111111111111111111111111111111"

	// 默认部署的 Intent / Launchpad 程序地址（按网络区分，可被配置覆盖）
	IntentProgramDevnetStr     = "4Gjjb63Ab4vnE5KTHtCfNiMRVXnP9f28zAhUrBoJcA4p"
	LaunchpadProgramDevnetStr  = "A3pDjWA6sEEKV3s5JXxe5SEyvqzF6h3wBFQ8FygqWJ7f"
	IntentProgramMainnetStr    = "CibAaatVQnRX1omhZeRmsFFLBSBtgBUcGDwEbD3JUCax"
	LaunchpadProgramMainnetStr = "4KiH9BteExYWmwaWHzeL5UPL5XDywpA9nDe8j8P32hiF"
)

var (
	// Programs
	SystemProgram          = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram           = types.PubkeyFromBase58(TokenProgramStr)
	AssociatedTokenProgram = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	SysvarRent             = types.PubkeyFromBase58(SysvarRentStr)
	SysvarClock            = types.PubkeyFromBase58(SysvarClockStr)

	IntentProgramDevnet     = types.PubkeyFromBase58(IntentProgramDevnetStr)
	LaunchpadProgramDevnet  = types.PubkeyFromBase58(LaunchpadProgramDevnetStr)
	IntentProgramMainnet    = types.PubkeyFromBase58(IntentProgramMainnetStr)
	LaunchpadProgramMainnet = types.PubkeyFromBase58(LaunchpadProgramMainnetStr)
)
