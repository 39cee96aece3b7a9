package domain

import "rent-reclaim-sol/internal/consts"

// BatchStatus 表示单个关闭批次的执行状态
type BatchStatus int

const (
	BatchPending    BatchStatus = 0 // 尚未开始
	BatchSigning    BatchStatus = 1 // 构造消息并等待外部签名
	BatchSending    BatchStatus = 2 // 已签名，提交中
	BatchConfirming BatchStatus = 3 // 已提交，轮询确认中
	BatchConfirmed  BatchStatus = 4 // 链上确认成功
	BatchFailed     BatchStatus = 5 // 失败（签名/提交/确认任一步骤）
)

func (s BatchStatus) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchSigning:
		return "signing"
	case BatchSending:
		return "sending"
	case BatchConfirming:
		return "confirming"
	case BatchConfirmed:
		return "confirmed"
	case BatchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CloseBatch 表示一组待在同一笔交易中关闭的账户。
// Status 与 Signature 仅由执行引擎在处理该批次期间串行修改。
type CloseBatch struct {
	ID                    string         // 批次唯一 id
	Accounts              []TokenAccount // 本批次包含的账户，保持输入顺序
	EstimatedRentLamports uint64         // 本批次可回收租金合计
	Status                BatchStatus
	Signature             string // 确认后填入的交易签名
}

func (b *CloseBatch) AccountCount() int {
	return len(b.Accounts)
}

func (b *CloseBatch) EstimatedRentSol() float64 {
	return float64(b.EstimatedRentLamports) / consts.LamportsPerSol
}

// RunSummary 表示一次完整执行的汇总，仅统计确认成功的批次。
type RunSummary struct {
	ID                string   `json:"id"`
	Timestamp         int64    `json:"timestamp"` // Unix 秒
	AccountsClosed    int      `json:"accounts_closed"`
	LamportsReclaimed uint64   `json:"lamports_reclaimed"`
	Signatures        []string `json:"signatures"` // 按完成顺序
	Cluster           string   `json:"cluster"`
}

func (s *RunSummary) SolReclaimed() float64 {
	return float64(s.LamportsReclaimed) / consts.LamportsPerSol
}
