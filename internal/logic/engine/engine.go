package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/logic/txbuilder"
	"rent-reclaim-sol/internal/types"
	"rent-reclaim-sol/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultConfirmRetries = 30
	defaultConfirmDelay   = time.Second
)

// ErrConfirmTimeout 确认轮询在重试耗尽后仍未见 confirmed/finalized
var ErrConfirmTimeout = errors.New("transaction confirmation timeout")

// ChainRPC 是引擎依赖的链上 RPC 协作方
type ChainRPC interface {
	// LatestBlockhash 获取最新 blockhash（base58 文本）
	LatestBlockhash(ctx context.Context) (string, error)
	// SendRawTransaction 提交已签名交易，返回签名
	SendRawTransaction(ctx context.Context, signed []byte) (string, error)
	// SignatureStatus 查询签名的确认状态
	SignatureStatus(ctx context.Context, signature string) (*domain.TxConfirmation, error)
}

// Signer 是外部签名协作方（如移动钱包适配器或远程签名服务）
type Signer interface {
	// SignTransaction 对未签名消息签名，返回完整已签名交易字节
	SignTransaction(ctx context.Context, unsigned []byte, authToken string) ([]byte, error)
}

// Engine 驱动批次按 Pending → Signing → Sending → Confirming → Confirmed|Failed
// 串行推进，一次只处理一个批次。单个批次失败不会中止整个 run。
//
// 账户余额只在扫描阶段校验一次，签名前不会重新核验（与上游过滤一次的约定一致）。
// 每次 run 需使用新的 Execute 调用，引擎本身不持有跨 run 状态。
type Engine struct {
	rpc    ChainRPC
	signer Signer

	confirmRetries int
	confirmDelay   time.Duration
	sleep          func(time.Duration)
	genID          func() string
}

type Option func(*Engine)

// WithConfirmPolicy 覆盖确认轮询的重试次数与间隔
func WithConfirmPolicy(retries int, delay time.Duration) Option {
	return func(e *Engine) {
		e.confirmRetries = retries
		e.confirmDelay = delay
	}
}

// WithSleep 注入 sleep 实现，测试中可替换为零延迟
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithIDGenerator 注入汇总 id 生成器
func WithIDGenerator(genID func() string) Option {
	return func(e *Engine) {
		e.genID = genID
	}
}

func New(rpc ChainRPC, signer Signer, opts ...Option) *Engine {
	e := &Engine{
		rpc:            rpc,
		signer:         signer,
		confirmRetries: defaultConfirmRetries,
		confirmDelay:   defaultConfirmDelay,
		sleep:          time.Sleep,
		genID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute 依序执行全部批次，返回事件流。
//
// 事件 channel 的缓冲足以容纳整个 run 的全部事件，因此消费方随时放弃读取
// 都不会阻塞引擎；ctx 取消只会跳过尚未开始的批次，当前批次总是执行到终态。
// 钱包地址非法属于上游数据损坏，直接返回 error 而不是吞掉。
func (e *Engine) Execute(
	ctx context.Context,
	batches []*domain.CloseBatch,
	wallet string,
	authToken string,
	cluster domain.Cluster,
) (<-chan Event, error) {
	walletKey, err := types.TryPubkeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	// 每批次最多 3 个进度事件 + 1 个结果事件，外加 1 个 Complete
	events := make(chan Event, len(batches)*4+1)
	go e.run(ctx, events, batches, walletKey, authToken, cluster)
	return events, nil
}

func (e *Engine) run(
	ctx context.Context,
	events chan<- Event,
	batches []*domain.CloseBatch,
	wallet types.Pubkey,
	authToken string,
	cluster domain.Cluster,
) {
	defer close(events)

	var (
		signatures     []string
		accountsClosed int
		lamports       uint64
	)

	total := len(batches)
	for i, batch := range batches {
		// 批次之间响应取消；进行中的批次不可抢占
		if ctx.Err() != nil {
			logger.Warnf("[engine] run 被取消，跳过剩余 %d 个批次", total-i)
			break
		}

		signature, err := e.processBatch(ctx, events, batch, i, total, wallet, authToken)
		if err != nil {
			batch.Status = domain.BatchFailed
			logger.Warnf("[engine] 批次 %s 失败: %v", batch.ID, err)
			events <- FailureEvent{Batch: batch, Error: err.Error()}
			continue
		}

		batch.Status = domain.BatchConfirmed
		batch.Signature = signature
		signatures = append(signatures, signature)
		accountsClosed += batch.AccountCount()
		lamports += batch.EstimatedRentLamports
		logger.Infof("[engine] 批次 %s 确认成功: %d 个账户, %d lamports, sig=%s",
			batch.ID, batch.AccountCount(), batch.EstimatedRentLamports, signature)
		events <- SuccessEvent{Batch: batch, Signature: signature}
	}

	if signatures == nil {
		signatures = []string{}
	}
	events <- CompleteEvent{Summary: &domain.RunSummary{
		ID:                e.genID(),
		Timestamp:         time.Now().Unix(),
		AccountsClosed:    accountsClosed,
		LamportsReclaimed: lamports,
		Signatures:        signatures,
		Cluster:           string(cluster),
	}}
}

// processBatch 将单个批次推进到 Confirmed，任一步骤失败返回 error。
func (e *Engine) processBatch(
	ctx context.Context,
	events chan<- Event,
	batch *domain.CloseBatch,
	index, total int,
	wallet types.Pubkey,
	authToken string,
) (string, error) {
	batch.Status = domain.BatchSigning
	events <- ProgressEvent{Batch: batch, Status: batch.Status, Index: index, Total: total}

	blockhash, err := e.rpc.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch latest blockhash: %w", err)
	}

	unsigned, err := txbuilder.BuildCloseBatchMessage(batch, wallet, blockhash)
	if err != nil {
		return "", fmt.Errorf("build close message: %w", err)
	}

	signed, err := e.signer.SignTransaction(ctx, unsigned, authToken)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	batch.Status = domain.BatchSending
	events <- ProgressEvent{Batch: batch, Status: batch.Status, Index: index, Total: total}

	signature, err := e.rpc.SendRawTransaction(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	batch.Status = domain.BatchConfirming
	batch.Signature = signature
	events <- ProgressEvent{Batch: batch, Status: batch.Status, Index: index, Total: total}

	if err := e.confirm(ctx, signature); err != nil {
		return "", err
	}
	return signature, nil
}

// confirm 轮询签名状态直到 confirmed/finalized，或在链上执行失败、
// 重试耗尽时返回 error。
func (e *Engine) confirm(ctx context.Context, signature string) error {
	for attempt := 0; attempt < e.confirmRetries; attempt++ {
		status, err := e.rpc.SignatureStatus(ctx, signature)
		if err != nil {
			return fmt.Errorf("query signature status: %w", err)
		}
		if status != nil && status.Found {
			if status.Err != "" {
				return fmt.Errorf("transaction failed on-chain: %s", status.Err)
			}
			if status.IsConfirmed() {
				return nil
			}
		}
		e.sleep(e.confirmDelay)
	}
	return ErrConfirmTimeout
}
