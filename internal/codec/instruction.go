package codec

import (
	"intent-engine-sol/internal/consts"
	"intent-engine-sol/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
)

// 指令参数的取值上限（与链上程序校验一致）
const (
	MaxBps           = 10_000 // 万分比字段上限（100%）
	MaxLaunchNameLen = 32
	MaxSymbolLen     = 10
	MaxUriLen        = 200
)

// instructionArgs 所有指令参数结构都实现字段校验；
// borsh 序列化按字段声明顺序输出（小端定宽 + u32 长度前缀字符串）
type instructionArgs interface {
	validate(method string) error
}

type InitializeProtocolArgs struct {
	ProtocolFeeBps uint16
}

func (a InitializeProtocolArgs) validate(method string) error {
	if a.ProtocolFeeBps > MaxBps {
		return encodingErr(method, "ProtocolFeeBps", "exceeds 10000")
	}
	return nil
}

type InitializeUserArgs struct{}

func (InitializeUserArgs) validate(string) error { return nil }

type CreateSwapIntentArgs struct {
	FromMint       types.Pubkey
	ToMint         types.Pubkey
	Amount         uint64
	MaxSlippageBps uint16
	ExpiresInSec   int64
}

func (a CreateSwapIntentArgs) validate(method string) error {
	if a.Amount == 0 {
		return encodingErr(method, "Amount", "must be positive")
	}
	if a.MaxSlippageBps > MaxBps {
		return encodingErr(method, "MaxSlippageBps", "exceeds 10000")
	}
	if a.ExpiresInSec < 0 {
		return encodingErr(method, "ExpiresInSec", "negative value in signed duration")
	}
	if a.FromMint.IsZero() || a.ToMint.IsZero() {
		return encodingErr(method, "FromMint/ToMint", "zero mint address")
	}
	if a.FromMint == a.ToMint {
		return encodingErr(method, "ToMint", "identical to FromMint")
	}
	return nil
}

type CreateLendIntentArgs struct {
	Mint        types.Pubkey
	Amount      uint64
	MinApyBps   uint16
	DurationSec int64
}

func (a CreateLendIntentArgs) validate(method string) error {
	if a.Amount == 0 {
		return encodingErr(method, "Amount", "must be positive")
	}
	if a.MinApyBps > MaxBps {
		return encodingErr(method, "MinApyBps", "exceeds 10000")
	}
	if a.DurationSec <= 0 {
		return encodingErr(method, "DurationSec", "must be positive")
	}
	if a.Mint.IsZero() {
		return encodingErr(method, "Mint", "zero mint address")
	}
	return nil
}

type ExecuteSwapIntentArgs struct{}

func (ExecuteSwapIntentArgs) validate(string) error { return nil }

type CancelIntentArgs struct{}

func (CancelIntentArgs) validate(string) error { return nil }

type InitializeLaunchpadArgs struct {
	FeeBps uint16
}

func (a InitializeLaunchpadArgs) validate(method string) error {
	if a.FeeBps > MaxBps {
		return encodingErr(method, "FeeBps", "exceeds 10000")
	}
	return nil
}

type CreateTokenLaunchArgs struct {
	Name          string
	Symbol        string
	Uri           string
	SoftCap       uint64
	HardCap       uint64
	PricePerToken uint64
	DurationSec   int64
}

func (a CreateTokenLaunchArgs) validate(method string) error {
	if a.Name == "" || len(a.Name) > MaxLaunchNameLen {
		return encodingErr(method, "Name", "empty or longer than 32 bytes")
	}
	if a.Symbol == "" || len(a.Symbol) > MaxSymbolLen {
		return encodingErr(method, "Symbol", "empty or longer than 10 bytes")
	}
	if len(a.Uri) > MaxUriLen {
		return encodingErr(method, "Uri", "longer than 200 bytes")
	}
	if a.SoftCap == 0 || a.HardCap == 0 {
		return encodingErr(method, "SoftCap/HardCap", "must be positive")
	}
	if a.SoftCap > a.HardCap {
		return encodingErr(method, "SoftCap", "exceeds HardCap")
	}
	if a.PricePerToken == 0 {
		return encodingErr(method, "PricePerToken", "must be positive")
	}
	if a.DurationSec <= 0 {
		return encodingErr(method, "DurationSec", "must be positive")
	}
	return nil
}

type ContributeToLaunchArgs struct {
	Amount uint64
}

func (a ContributeToLaunchArgs) validate(method string) error {
	if a.Amount == 0 {
		return encodingErr(method, "Amount", "must be positive")
	}
	return nil
}

type FinalizeLaunchArgs struct{}

func (FinalizeLaunchArgs) validate(string) error { return nil }

type ClaimTokensArgs struct{}

func (ClaimTokensArgs) validate(string) error { return nil }

type ClaimRefundArgs struct{}

func (ClaimRefundArgs) validate(string) error { return nil }

type WithdrawFundsArgs struct {
	Amount uint64
}

func (a WithdrawFundsArgs) validate(method string) error {
	if a.Amount == 0 {
		return encodingErr(method, "Amount", "must be positive")
	}
	return nil
}

// EncodeInstruction 生成指令 payload：8 字节方法标识 + borsh 序列化参数。
// 字段非法时返回 *EncodingError，不触达网络。
func EncodeInstruction(method string, args instructionArgs) ([]byte, error) {
	if _, ok := methodSet[method]; !ok {
		return nil, encodingErr(method, "-", "unknown method")
	}
	if err := args.validate(method); err != nil {
		return nil, err
	}

	body, err := borsh.Serialize(args)
	if err != nil {
		return nil, encodingErr(method, "-", err.Error())
	}

	disc := Discriminator(method)
	data := make([]byte, 0, 8+len(body))
	data = append(data, disc[:]...)
	data = append(data, body...)
	return data, nil
}

func meta(p types.Pubkey, signer, writable bool) sdktypes.AccountMeta {
	return sdktypes.AccountMeta{PubKey: p.ToSDK(), IsSigner: signer, IsWritable: writable}
}

// BuildInitializeUserIx 构建 initialize_user 指令（用户首次交互时创建状态账户）
func BuildInitializeUserIx(programID, authority types.Pubkey) (sdktypes.Instruction, error) {
	userPDA, _, err := DeriveUserPDA(authority, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	data, err := EncodeInstruction(MethodInitializeUser, InitializeUserArgs{})
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	return sdktypes.Instruction{
		ProgramID: programID.ToSDK(),
		Accounts: []sdktypes.AccountMeta{
			meta(userPDA, false, true),
			meta(authority, true, true),
			meta(consts.SystemProgram, false, false),
		},
		Data: data,
	}, nil
}

// BuildCreateSwapIntentIx 构建 create_swap_intent 指令。
//
// 账户布局：
// #0 - Intent PDA（新建，writable）
// #1 - User PDA（writable，递增计数）
// #2 - Authority（signer，writable，付租金）
// #3 - System Program
func BuildCreateSwapIntentIx(programID, authority types.Pubkey, seq uint64, args CreateSwapIntentArgs) (sdktypes.Instruction, error) {
	data, err := EncodeInstruction(MethodCreateSwapIntent, args)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	intentPDA, _, err := DeriveIntentPDA(authority, seq, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	userPDA, _, err := DeriveUserPDA(authority, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	return sdktypes.Instruction{
		ProgramID: programID.ToSDK(),
		Accounts: []sdktypes.AccountMeta{
			meta(intentPDA, false, true),
			meta(userPDA, false, true),
			meta(authority, true, true),
			meta(consts.SystemProgram, false, false),
		},
		Data: data,
	}, nil
}

// BuildCreateLendIntentIx 构建 create_lend_intent 指令（账户布局同 swap）
func BuildCreateLendIntentIx(programID, authority types.Pubkey, seq uint64, args CreateLendIntentArgs) (sdktypes.Instruction, error) {
	data, err := EncodeInstruction(MethodCreateLendIntent, args)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	intentPDA, _, err := DeriveIntentPDA(authority, seq, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	userPDA, _, err := DeriveUserPDA(authority, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	return sdktypes.Instruction{
		ProgramID: programID.ToSDK(),
		Accounts: []sdktypes.AccountMeta{
			meta(intentPDA, false, true),
			meta(userPDA, false, true),
			meta(authority, true, true),
			meta(consts.SystemProgram, false, false),
		},
		Data: data,
	}, nil
}

// BuildCancelIntentIx 构建链上 cancel_intent 指令。
// 注意：Tracker 的本地 cancel 不会自动发送该指令，需调用方显式提交。
func BuildCancelIntentIx(programID, authority types.Pubkey, seq uint64) (sdktypes.Instruction, error) {
	data, err := EncodeInstruction(MethodCancelIntent, CancelIntentArgs{})
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	intentPDA, _, err := DeriveIntentPDA(authority, seq, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	userPDA, _, err := DeriveUserPDA(authority, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	return sdktypes.Instruction{
		ProgramID: programID.ToSDK(),
		Accounts: []sdktypes.AccountMeta{
			meta(intentPDA, false, true),
			meta(userPDA, false, true),
			meta(authority, true, true),
		},
		Data: data,
	}, nil
}

// BuildContributeToLaunchIx 构建 contribute_to_launch 指令（buy 意图走 launchpad 程序）。
//
// 账户布局：
// #0 - Launch PDA（writable，累计募集额）
// #1 - Contributor PDA（新建或累加，writable）
// #2 - Contributor 钱包（signer，writable，转出 SOL）
// #3 - System Program
func BuildContributeToLaunchIx(programID, creator types.Pubkey, launchID uint64, contributor types.Pubkey, args ContributeToLaunchArgs) (sdktypes.Instruction, error) {
	data, err := EncodeInstruction(MethodContributeToLaunch, args)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	launchPDA, _, err := DeriveLaunchPDA(creator, launchID, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	contribPDA, _, err := DeriveContributorPDA(launchPDA, contributor, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	return sdktypes.Instruction{
		ProgramID: programID.ToSDK(),
		Accounts: []sdktypes.AccountMeta{
			meta(launchPDA, false, true),
			meta(contribPDA, false, true),
			meta(contributor, true, true),
			meta(consts.SystemProgram, false, false),
		},
		Data: data,
	}, nil
}

// BuildCreateTokenLaunchIx 构建 create_token_launch 指令
func BuildCreateTokenLaunchIx(programID, creator, tokenMint types.Pubkey, launchID uint64, args CreateTokenLaunchArgs) (sdktypes.Instruction, error) {
	data, err := EncodeInstruction(MethodCreateTokenLaunch, args)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	launchpadPDA, _, err := DeriveLaunchpadPDA(programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	launchPDA, _, err := DeriveLaunchPDA(creator, launchID, programID)
	if err != nil {
		return sdktypes.Instruction{}, err
	}
	return sdktypes.Instruction{
		ProgramID: programID.ToSDK(),
		Accounts: []sdktypes.AccountMeta{
			meta(launchpadPDA, false, true),
			meta(launchPDA, false, true),
			meta(tokenMint, false, false),
			meta(creator, true, true),
			meta(consts.SystemProgram, false, false),
			meta(consts.SysvarRent, false, false),
		},
		Data: data,
	}, nil
}
