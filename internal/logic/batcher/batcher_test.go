package batcher

import (
	"fmt"
	"testing"

	"rent-reclaim-sol/internal/consts"
	"rent-reclaim-sol/internal/logic/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAccounts(n int, programID string) []domain.TokenAccount {
	accounts := make([]domain.TokenAccount, n)
	for i := range accounts {
		accounts[i] = domain.TokenAccount{
			Address:      fmt.Sprintf("account-%d", i),
			ProgramID:    programID,
			RentLamports: consts.DefaultRentLamports,
		}
	}
	return accounts
}

// 注入确定性 id 生成器，便于断言
func sequentialIDs() IDGenerator {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("batch-%d", next)
	}
}

func TestOptimalBatchSize(t *testing.T) {
	t.Run("全部标准 Token 使用上限 8", func(t *testing.T) {
		accounts := makeAccounts(20, consts.TokenProgramStr)
		assert.Equal(t, MaxCloseInstructionsPerTx, OptimalBatchSize(accounts))
	})

	t.Run("5 个账户中只要有 1 个 Token-2022 就降为 6", func(t *testing.T) {
		accounts := makeAccounts(5, consts.TokenProgramStr)
		accounts[2].ProgramID = consts.TokenProgram2022Str
		assert.Equal(t, MaxCloseInstructionsToken2022, OptimalBatchSize(accounts))
	})

	t.Run("空输入使用标准上限", func(t *testing.T) {
		assert.Equal(t, MaxCloseInstructionsPerTx, OptimalBatchSize(nil))
	})
}

func TestPartition_ChunkSizes(t *testing.T) {
	t.Run("20 个账户按 8 切分为 [8,8,4]", func(t *testing.T) {
		b := NewWithIDGenerator(sequentialIDs())
		batches, err := b.PartitionOptimal(makeAccounts(20, consts.TokenProgramStr))
		require.NoError(t, err)
		require.Len(t, batches, 3)
		assert.Equal(t, 8, batches[0].AccountCount())
		assert.Equal(t, 8, batches[1].AccountCount())
		assert.Equal(t, 4, batches[2].AccountCount())
	})

	t.Run("10 个账户按 4 切分为 [4,4,2]", func(t *testing.T) {
		b := NewWithIDGenerator(sequentialIDs())
		batches, err := b.Partition(makeAccounts(10, consts.TokenProgramStr), 4)
		require.NoError(t, err)
		require.Len(t, batches, 3)
		assert.Equal(t, 4, batches[0].AccountCount())
		assert.Equal(t, 4, batches[1].AccountCount())
		assert.Equal(t, 2, batches[2].AccountCount())
	})

	t.Run("空输入返回空列表", func(t *testing.T) {
		b := New()
		batches, err := b.Partition(nil, 8)
		require.NoError(t, err)
		assert.Empty(t, batches)
	})
}

// 所有批次依序拼接必须还原输入
func TestPartition_PreservesOrder(t *testing.T) {
	accounts := makeAccounts(17, consts.TokenProgramStr)
	b := NewWithIDGenerator(sequentialIDs())
	batches, err := b.Partition(accounts, 5)
	require.NoError(t, err)

	var flattened []domain.TokenAccount
	for _, batch := range batches {
		flattened = append(flattened, batch.Accounts...)
	}
	assert.Equal(t, accounts, flattened)
}

func TestPartition_BatchFields(t *testing.T) {
	accounts := makeAccounts(3, consts.TokenProgramStr)
	accounts[0].RentLamports = 100
	accounts[1].RentLamports = 200
	accounts[2].RentLamports = 300

	b := NewWithIDGenerator(sequentialIDs())
	batches, err := b.Partition(accounts, 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, "batch-1", batches[0].ID)
	assert.Equal(t, "batch-2", batches[1].ID)
	assert.Equal(t, uint64(300), batches[0].EstimatedRentLamports)
	assert.Equal(t, uint64(300), batches[1].EstimatedRentLamports)
	assert.Equal(t, domain.BatchPending, batches[0].Status)
	assert.Empty(t, batches[0].Signature)
}

func TestPartition_InvalidMaxPerBatch(t *testing.T) {
	b := New()
	for _, invalid := range []int{0, -1} {
		_, err := b.Partition(makeAccounts(3, consts.TokenProgramStr), invalid)
		assert.Error(t, err, "maxPerBatch=%d 应返回 error", invalid)
	}
}

// 批次持有账户副本，调整原始输入不影响已生成的批次
func TestPartition_CopiesAccounts(t *testing.T) {
	accounts := makeAccounts(2, consts.TokenProgramStr)
	b := New()
	batches, err := b.Partition(accounts, 8)
	require.NoError(t, err)

	accounts[0].Address = "mutated"
	assert.Equal(t, "account-0", batches[0].Accounts[0].Address)
}
