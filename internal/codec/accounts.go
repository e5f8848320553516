package codec

import (
	"bytes"
	"encoding/binary"

	"intent-engine-sol/internal/types"
)

// 链上账户种类名（discriminator 按 Anchor 约定从名字派生）
const (
	AccountUser        = "UserAccount"
	AccountIntent      = "IntentAccount"
	AccountLaunchState = "LaunchState"
	AccountContributor = "ContributorState"
)

// IntentType 链上意图类型编码
type IntentType uint8

const (
	IntentSwap IntentType = 0
	IntentLend IntentType = 1
)

func (t IntentType) String() string {
	switch t {
	case IntentSwap:
		return "swap"
	case IntentLend:
		return "lend"
	default:
		return "unknown"
	}
}

// IntentStatus 链上意图状态编码
type IntentStatus uint8

const (
	IntentPending   IntentStatus = 0
	IntentExecuted  IntentStatus = 1
	IntentCancelled IntentStatus = 2
	IntentExpired   IntentStatus = 3
)

func (s IntentStatus) String() string {
	switch s {
	case IntentPending:
		return "pending"
	case IntentExecuted:
		return "executed"
	case IntentCancelled:
		return "cancelled"
	case IntentExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// LaunchStatus 发射状态编码
type LaunchStatus uint8

const (
	LaunchActive     LaunchStatus = 0
	LaunchSuccessful LaunchStatus = 1
	LaunchFailed     LaunchStatus = 2
)

func (s LaunchStatus) String() string {
	switch s {
	case LaunchActive:
		return "active"
	case LaunchSuccessful:
		return "successful"
	case LaunchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UserAccount 用户状态账户的解码视图
type UserAccount struct {
	Authority           types.Pubkey
	ActiveIntents       uint8
	TotalIntentsCreated uint64
	TotalVolume         uint64
}

// IntentAccount 意图账户的解码视图
type IntentAccount struct {
	Authority   types.Pubkey
	IntentType  IntentType
	Status      IntentStatus
	FromMint    types.Pubkey
	ToMint      types.Pubkey
	Amount      uint64
	ProtocolFee uint64
	CreatedAt   int64
	ExpiresAt   int64
}

// LaunchState 发射状态账户的解码视图
type LaunchState struct {
	Creator       types.Pubkey
	TokenMint     types.Pubkey
	SoftCap       uint64
	HardCap       uint64
	PricePerToken uint64
	TotalRaised   uint64
	Contributors  uint32
	Status        LaunchStatus
	EndsAt        int64
}

// ContributorState 出资人状态账户的解码视图
type ContributorState struct {
	Launch      types.Pubkey
	Contributor types.Pubkey
	Amount      uint64
	Claimed     bool
}

// 各账户的最小字节长度（8 字节账户标识 + 定宽字段）
const (
	userAccountMinLen      = 8 + 32 + 1 + 8 + 8          // 57
	intentAccountMinLen    = 8 + 32 + 1 + 1 + 32 + 32 + 8 + 8 + 8 + 8 // 138
	launchStateMinLen      = 8 + 32 + 32 + 8 + 8 + 8 + 8 + 4 + 1 + 8  // 117
	contributorStateMinLen = 8 + 32 + 32 + 8 + 1         // 81
)

// checkDiscriminator 校验前 8 字节与账户种类匹配，异类账户的数据不可进入解码
func checkDiscriminator(account string, data []byte) error {
	want := AccountDiscriminator(account)
	if !bytes.Equal(data[:8], want[:]) {
		return badDiscriminatorErr(account, data[:8])
	}
	return nil
}

// checkOwner 调用方提供期望属主时校验账户归属；不匹配的数据一律不可信
func checkOwner(account string, owner, expected *types.Pubkey) error {
	if expected == nil || owner == nil {
		return nil
	}
	if !owner.Equals(*expected) {
		return ownerMismatchErr(account, owner.String(), expected.String())
	}
	return nil
}

func readPubkey(data []byte, off int) types.Pubkey {
	var p types.Pubkey
	copy(p[:], data[off:off+32])
	return p
}

// DecodeUserAccount 按固定偏移解码 UserAccount。
//
// 布局：
// [0:8]    -> account discriminator
// [8:40]   -> authority
// [40]     -> activeIntents (u8)
// [41:49]  -> totalIntentsCreated (u64, LE)
// [49:57]  -> totalVolume (u64, LE)
func DecodeUserAccount(data []byte, owner, expectedOwner *types.Pubkey) (*UserAccount, error) {
	if len(data) < userAccountMinLen {
		return nil, tooShortErr(AccountUser, len(data), userAccountMinLen)
	}
	if err := checkDiscriminator(AccountUser, data); err != nil {
		return nil, err
	}
	if err := checkOwner(AccountUser, owner, expectedOwner); err != nil {
		return nil, err
	}
	return &UserAccount{
		Authority:           readPubkey(data, 8),
		ActiveIntents:       data[40],
		TotalIntentsCreated: binary.LittleEndian.Uint64(data[41:49]),
		TotalVolume:         binary.LittleEndian.Uint64(data[49:57]),
	}, nil
}

// DecodeIntentAccount 按固定偏移解码 IntentAccount。
//
// 布局：
// [0:8]     -> account discriminator
// [8:40]    -> authority
// [40]      -> intentType (u8: 0=Swap, 1=Lend)
// [41]      -> status (u8: 0=Pending, 1=Executed, 2=Cancelled, 3=Expired)
// [42:74]   -> fromMint
// [74:106]  -> toMint
// [106:114] -> amount (u64, LE)
// [114:122] -> protocolFee (u64, LE)
// [122:130] -> createdAt (i64, LE)
// [130:138] -> expiresAt (i64, LE)
func DecodeIntentAccount(data []byte, owner, expectedOwner *types.Pubkey) (*IntentAccount, error) {
	if len(data) < intentAccountMinLen {
		return nil, tooShortErr(AccountIntent, len(data), intentAccountMinLen)
	}
	if err := checkDiscriminator(AccountIntent, data); err != nil {
		return nil, err
	}
	if err := checkOwner(AccountIntent, owner, expectedOwner); err != nil {
		return nil, err
	}
	return &IntentAccount{
		Authority:   readPubkey(data, 8),
		IntentType:  IntentType(data[40]),
		Status:      IntentStatus(data[41]),
		FromMint:    readPubkey(data, 42),
		ToMint:      readPubkey(data, 74),
		Amount:      binary.LittleEndian.Uint64(data[106:114]),
		ProtocolFee: binary.LittleEndian.Uint64(data[114:122]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(data[122:130])),
		ExpiresAt:   int64(binary.LittleEndian.Uint64(data[130:138])),
	}, nil
}

// DecodeLaunchState 按固定偏移解码 LaunchState。
//
// 布局：
// [0:8]     -> account discriminator
// [8:40]    -> creator
// [40:72]   -> tokenMint
// [72:80]   -> softCap (u64, LE)
// [80:88]   -> hardCap (u64, LE)
// [88:96]   -> pricePerToken (u64, LE)
// [96:104]  -> totalRaised (u64, LE)
// [104:108] -> contributors (u32, LE)
// [108]     -> status (u8: 0=Active, 1=Successful, 2=Failed)
// [109:117] -> endsAt (i64, LE)
func DecodeLaunchState(data []byte, owner, expectedOwner *types.Pubkey) (*LaunchState, error) {
	if len(data) < launchStateMinLen {
		return nil, tooShortErr(AccountLaunchState, len(data), launchStateMinLen)
	}
	if err := checkDiscriminator(AccountLaunchState, data); err != nil {
		return nil, err
	}
	if err := checkOwner(AccountLaunchState, owner, expectedOwner); err != nil {
		return nil, err
	}
	return &LaunchState{
		Creator:       readPubkey(data, 8),
		TokenMint:     readPubkey(data, 40),
		SoftCap:       binary.LittleEndian.Uint64(data[72:80]),
		HardCap:       binary.LittleEndian.Uint64(data[80:88]),
		PricePerToken: binary.LittleEndian.Uint64(data[88:96]),
		TotalRaised:   binary.LittleEndian.Uint64(data[96:104]),
		Contributors:  binary.LittleEndian.Uint32(data[104:108]),
		Status:        LaunchStatus(data[108]),
		EndsAt:        int64(binary.LittleEndian.Uint64(data[109:117])),
	}, nil
}

// DecodeContributorState 按固定偏移解码 ContributorState。
//
// 布局：
// [0:8]   -> account discriminator
// [8:40]  -> launch
// [40:72] -> contributor
// [72:80] -> amount (u64, LE)
// [80]    -> claimed (bool)
func DecodeContributorState(data []byte, owner, expectedOwner *types.Pubkey) (*ContributorState, error) {
	if len(data) < contributorStateMinLen {
		return nil, tooShortErr(AccountContributor, len(data), contributorStateMinLen)
	}
	if err := checkDiscriminator(AccountContributor, data); err != nil {
		return nil, err
	}
	if err := checkOwner(AccountContributor, owner, expectedOwner); err != nil {
		return nil, err
	}
	return &ContributorState{
		Launch:      readPubkey(data, 8),
		Contributor: readPubkey(data, 40),
		Amount:      binary.LittleEndian.Uint64(data[72:80]),
		Claimed:     data[80] != 0,
	}, nil
}
