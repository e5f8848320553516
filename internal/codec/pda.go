package codec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"intent-engine-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

// PDA seed 命名空间（与链上程序的 seeds 约定一致）
const (
	SeedProtocol    = "protocol"
	SeedUser        = "user"
	SeedIntent      = "intent"
	SeedLaunchpad   = "launchpad"
	SeedLaunch      = "launch"
	SeedContributor = "contributor"
)

type pdaResult struct {
	addr types.Pubkey
	bump uint8
}

// 派生结果缓存：派生是纯函数，同一输入永远得到同一地址，缓存仅为省去重复的
// sha256 + 曲线检查开销
var (
	pdaCacheMu sync.RWMutex
	pdaCache   = make(map[string]pdaResult)
)

func pdaCacheKey(seeds [][]byte, programID types.Pubkey) string {
	key := make([]byte, 0, 64)
	for _, s := range seeds {
		key = append(key, byte(len(s)))
		key = append(key, s...)
	}
	key = append(key, programID[:]...)
	return string(key)
}

// FindProgramAddress 派生程序地址及 bump。仅在 seed 超长（调用方 bug）时返回 error。
func FindProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, uint8, error) {
	key := pdaCacheKey(seeds, programID)

	pdaCacheMu.RLock()
	if r, ok := pdaCache[key]; ok {
		pdaCacheMu.RUnlock()
		return r.addr, r.bump, nil
	}
	pdaCacheMu.RUnlock()

	addr, bump, err := common.FindProgramAddress(seeds, programID.ToSDK())
	if err != nil {
		return types.Pubkey{}, 0, fmt.Errorf("find program address: %w", err)
	}
	result := pdaResult{addr: types.PubkeyFromSDK(addr), bump: bump}

	pdaCacheMu.Lock()
	pdaCache[key] = result
	pdaCacheMu.Unlock()

	return result.addr, result.bump, nil
}

// u64Seed 序列号 seed 统一按小端编码
func u64Seed(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// DeriveProtocolPDA 协议全局状态账户
func DeriveProtocolPDA(programID types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(SeedProtocol)}, programID)
}

// DeriveUserPDA 用户状态账户（按 authority 区分）
func DeriveUserPDA(authority, programID types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(SeedUser), authority.Bytes()}, programID)
}

// DeriveIntentPDA 意图账户（authority + 用户内递增序号）
func DeriveIntentPDA(authority types.Pubkey, seq uint64, programID types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(SeedIntent), authority.Bytes(), u64Seed(seq)}, programID)
}

// DeriveLaunchpadPDA launchpad 全局状态账户
func DeriveLaunchpadPDA(programID types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(SeedLaunchpad)}, programID)
}

// DeriveLaunchPDA 单次发射状态账户（creator + 发射序号）
func DeriveLaunchPDA(creator types.Pubkey, launchID uint64, programID types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(SeedLaunch), creator.Bytes(), u64Seed(launchID)}, programID)
}

// DeriveContributorPDA 出资人状态账户（launch + contributor）
func DeriveContributorPDA(launch, contributor, programID types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(SeedContributor), launch.Bytes(), contributor.Bytes()}, programID)
}
