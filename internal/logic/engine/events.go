package engine

import "rent-reclaim-sol/internal/logic/domain"

// Event 是执行引擎对外发布的进度/结果事件。
// 事件流仅供观察（驱动 UI、日志），不携带任何控制权：
// 消费方放弃读取不会中断当前批次已发出的网络操作。
type Event interface {
	isEvent()
}

// ProgressEvent 表示某批次进入了新的执行阶段（Signing / Sending / Confirming）。
// Status 是事件发出时刻的快照，Batch.Status 在消费时可能已继续推进。
type ProgressEvent struct {
	Batch  *domain.CloseBatch
	Status domain.BatchStatus
	Index  int // 批次下标（从 0 开始）
	Total  int // 批次总数
}

// SuccessEvent 表示某批次链上确认成功
type SuccessEvent struct {
	Batch     *domain.CloseBatch
	Signature string
}

// FailureEvent 表示某批次失败（仅该批次，后续批次继续执行）
type FailureEvent struct {
	Batch *domain.CloseBatch
	Error string
}

// CompleteEvent 表示整个 run 结束，携带最终汇总
type CompleteEvent struct {
	Summary *domain.RunSummary
}

func (ProgressEvent) isEvent() {}
func (SuccessEvent) isEvent()  {}
func (FailureEvent) isEvent()  {}
func (CompleteEvent) isEvent() {}
