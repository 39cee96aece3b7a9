package batcher

import (
	"fmt"

	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/tools"

	"github.com/google/uuid"
)

const (
	// MaxCloseInstructionsPerTx 标准 Token 账户单笔交易的关闭指令上限
	MaxCloseInstructionsPerTx = 8
	// MaxCloseInstructionsToken2022 Token-2022 账户可能携带 extension，采用更保守的上限
	MaxCloseInstructionsToken2022 = 6
	// MinCloseInstructionsPerTx 单笔交易最少一条关闭指令
	MinCloseInstructionsPerTx = 1
)

// IDGenerator 生成批次唯一 id，测试中可注入确定性实现。
type IDGenerator func() string

// Batcher 将可关闭账户切分为大小受限的批次
type Batcher struct {
	genID IDGenerator
}

func New() *Batcher {
	return &Batcher{genID: uuid.NewString}
}

func NewWithIDGenerator(genID IDGenerator) *Batcher {
	return &Batcher{genID: genID}
}

// OptimalBatchSize 根据账户类型计算批次上限。
// 输入中只要存在一个 Token-2022 账户，整个输入集合都使用保守上限。
func OptimalBatchSize(accounts []domain.TokenAccount) int {
	for i := range accounts {
		if tools.IsToken2022(accounts[i].ProgramID) {
			return MaxCloseInstructionsToken2022
		}
	}
	return MaxCloseInstructionsPerTx
}

// PartitionOptimal 按 OptimalBatchSize 计算的上限切分。
func (b *Batcher) PartitionOptimal(accounts []domain.TokenAccount) ([]*domain.CloseBatch, error) {
	return b.Partition(accounts, OptimalBatchSize(accounts))
}

// Partition 将账户按输入顺序切分为连续的批次，每批最多 maxPerBatch 个（末批可更小）。
// 所有批次的账户依序拼接等于原始输入；空输入返回空列表。
// maxPerBatch 小于 1 属于调用方契约违规，返回 error 而不是静默修正。
func (b *Batcher) Partition(accounts []domain.TokenAccount, maxPerBatch int) ([]*domain.CloseBatch, error) {
	if maxPerBatch < MinCloseInstructionsPerTx {
		return nil, fmt.Errorf("invalid maxPerBatch: %d, must be >= %d", maxPerBatch, MinCloseInstructionsPerTx)
	}
	if len(accounts) == 0 {
		return []*domain.CloseBatch{}, nil
	}

	batches := make([]*domain.CloseBatch, 0, (len(accounts)+maxPerBatch-1)/maxPerBatch)
	for start := 0; start < len(accounts); start += maxPerBatch {
		end := start + maxPerBatch
		if end > len(accounts) {
			end = len(accounts)
		}
		chunk := accounts[start:end]

		var estimated uint64
		for i := range chunk {
			estimated += chunk[i].RentLamports
		}

		batchAccounts := make([]domain.TokenAccount, len(chunk))
		copy(batchAccounts, chunk)

		batches = append(batches, &domain.CloseBatch{
			ID:                    b.genID(),
			Accounts:              batchAccounts,
			EstimatedRentLamports: estimated,
			Status:                domain.BatchPending,
		})
	}
	return batches, nil
}
