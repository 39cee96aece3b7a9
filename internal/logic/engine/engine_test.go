package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rent-reclaim-sol/internal/consts"
	"rent-reclaim-sol/internal/logic/batcher"
	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testWalletKey = func() types.Pubkey {
		var p types.Pubkey
		p[0] = 1
		return p
	}()
	testWallet    = testWalletKey.String()
	testBlockhash = func() types.Pubkey {
		var p types.Pubkey
		p[0] = 9
		return p
	}().String()
)

// fakeRPC 可编排每一步的行为
type fakeRPC struct {
	blockhashErr error
	sendErr      error
	statusErr    error
	statuses     []*domain.TxConfirmation // 按轮询次数依次返回，耗尽后重复最后一个
	onStatus     func(call int)           // 每次状态查询后的回调，用于在确定位置注入取消

	sendCalls   int
	statusCalls int
}

func (f *fakeRPC) LatestBlockhash(ctx context.Context) (string, error) {
	if f.blockhashErr != nil {
		return "", f.blockhashErr
	}
	return testBlockhash, nil
}

func (f *fakeRPC) SendRawTransaction(ctx context.Context, signed []byte) (string, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return fmt.Sprintf("sig-%d", f.sendCalls), nil
}

func (f *fakeRPC) SignatureStatus(ctx context.Context, signature string) (*domain.TxConfirmation, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	idx := f.statusCalls - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	if f.onStatus != nil {
		f.onStatus(f.statusCalls)
	}
	return f.statuses[idx], nil
}

type fakeSigner struct {
	err   error
	calls int
}

func (f *fakeSigner) SignTransaction(ctx context.Context, unsigned []byte, authToken string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	// 模拟前置签名区
	return append([]byte{1}, unsigned...), nil
}

func confirmedStatus() *domain.TxConfirmation {
	return &domain.TxConfirmation{Found: true, ConfirmationStatus: "confirmed"}
}

func newTestEngine(rpc ChainRPC, signer Signer) *Engine {
	next := 0
	return New(rpc, signer,
		WithSleep(func(time.Duration) {}),
		WithIDGenerator(func() string {
			next++
			return fmt.Sprintf("run-%d", next)
		}),
	)
}

func makeBatches(t *testing.T, accountCount, maxPerBatch int) []*domain.CloseBatch {
	t.Helper()
	accounts := make([]domain.TokenAccount, accountCount)
	for i := range accounts {
		var key types.Pubkey
		key[0] = byte(i + 10)
		accounts[i] = domain.TokenAccount{
			Address:      key.String(),
			Owner:        testWallet,
			ProgramID:    consts.TokenProgramStr,
			RentLamports: consts.DefaultRentLamports,
		}
	}
	next := 0
	b := batcher.NewWithIDGenerator(func() string {
		next++
		return fmt.Sprintf("batch-%d", next)
	})
	batches, err := b.Partition(accounts, maxPerBatch)
	require.NoError(t, err)
	return batches
}

func collect(t *testing.T, events <-chan Event) (successes []SuccessEvent, failures []FailureEvent, summary *domain.RunSummary) {
	t.Helper()
	for event := range events {
		switch e := event.(type) {
		case SuccessEvent:
			successes = append(successes, e)
		case FailureEvent:
			failures = append(failures, e)
		case CompleteEvent:
			summary = e.Summary
		}
	}
	require.NotNil(t, summary, "run 必须以 CompleteEvent 收尾")
	return successes, failures, summary
}

// 端到端成功场景：2 个账户 1 个批次，恰好 1 个 Confirmed 结果
func TestExecute_Success(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{confirmedStatus()}}
	signer := &fakeSigner{}

	batches := makeBatches(t, 2, 8)
	require.Len(t, batches, 1)

	events, err := newTestEngine(rpc, signer).Execute(
		context.Background(), batches, testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	successes, failures, summary := collect(t, events)

	require.Len(t, successes, 1)
	assert.Empty(t, failures)
	assert.Equal(t, "sig-1", successes[0].Signature)
	assert.Equal(t, domain.BatchConfirmed, batches[0].Status)
	assert.Equal(t, "sig-1", batches[0].Signature)

	assert.Equal(t, 2, summary.AccountsClosed)
	assert.Equal(t, uint64(2*consts.DefaultRentLamports), summary.LamportsReclaimed)
	assert.Equal(t, []string{"sig-1"}, summary.Signatures)
	assert.Equal(t, string(domain.ClusterDevnet), summary.Cluster)
	assert.Equal(t, 1, signer.calls)
}

// 进度事件按状态机顺序出现
func TestExecute_ProgressOrder(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{confirmedStatus()}}
	events, err := newTestEngine(rpc, &fakeSigner{}).Execute(
		context.Background(), makeBatches(t, 1, 8), testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	var statuses []domain.BatchStatus
	for event := range events {
		if e, ok := event.(ProgressEvent); ok {
			statuses = append(statuses, e.Status)
		}
	}
	assert.Equal(t, []domain.BatchStatus{
		domain.BatchSigning,
		domain.BatchSending,
		domain.BatchConfirming,
	}, statuses)
}

// 提交失败：唯一批次 Failed，汇总为空
func TestExecute_SubmissionFailure(t *testing.T) {
	rpc := &fakeRPC{sendErr: errors.New("rpc rejected")}
	batches := makeBatches(t, 2, 8)

	events, err := newTestEngine(rpc, &fakeSigner{}).Execute(
		context.Background(), batches, testWallet, "auth", domain.ClusterMainnetBeta)
	require.NoError(t, err)

	successes, failures, summary := collect(t, events)

	assert.Empty(t, successes)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "rpc rejected")
	assert.Equal(t, domain.BatchFailed, batches[0].Status)

	assert.Equal(t, 0, summary.AccountsClosed)
	assert.Equal(t, uint64(0), summary.LamportsReclaimed)
	assert.Equal(t, []string{}, summary.Signatures)
}

// 签名失败只影响当前批次
func TestExecute_SigningFailureContinues(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{confirmedStatus()}}
	batches := makeBatches(t, 10, 8) // 2 个批次：8 + 2

	events, err := newTestEngine(rpc, &failOnceSigner{}).Execute(
		context.Background(), batches, testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	successes, failures, summary := collect(t, events)

	require.Len(t, failures, 1)
	require.Len(t, successes, 1)
	assert.Contains(t, failures[0].Error, "wallet declined")
	assert.Equal(t, domain.BatchFailed, batches[0].Status)
	assert.Equal(t, domain.BatchConfirmed, batches[1].Status)
	assert.Equal(t, 2, summary.AccountsClosed) // 仅第二批的 2 个账户
}

// failOnceSigner 第一次调用失败，之后正常签名
type failOnceSigner struct {
	inner fakeSigner
	done  bool
}

func (f *failOnceSigner) SignTransaction(ctx context.Context, unsigned []byte, authToken string) ([]byte, error) {
	if !f.done {
		f.done = true
		return nil, errors.New("wallet declined")
	}
	return f.inner.SignTransaction(ctx, unsigned, authToken)
}

// 链上执行失败立即终止轮询并标记 Failed
func TestExecute_OnChainError(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{
		{Found: true, Err: `{"InstructionError":[0,"Custom"]}`},
	}}
	batches := makeBatches(t, 1, 8)

	events, err := newTestEngine(rpc, &fakeSigner{}).Execute(
		context.Background(), batches, testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	_, failures, summary := collect(t, events)

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "failed on-chain")
	assert.Equal(t, 1, rpc.statusCalls, "链上失败后不应继续轮询")
	assert.Equal(t, 0, summary.AccountsClosed)
}

// 重试耗尽后按超时失败
func TestExecute_ConfirmTimeout(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{{Found: false}}}
	engineUnderTest := New(rpc, &fakeSigner{},
		WithSleep(func(time.Duration) {}),
		WithConfirmPolicy(5, time.Millisecond),
	)

	events, err := engineUnderTest.Execute(
		context.Background(), makeBatches(t, 1, 8), testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	_, failures, summary := collect(t, events)

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "confirmation timeout")
	assert.Equal(t, 5, rpc.statusCalls)
	assert.Equal(t, 0, summary.AccountsClosed)
}

// finalized 与 confirmed 等价
func TestExecute_FinalizedAccepted(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{
		{Found: false},
		{Found: true, ConfirmationStatus: "processed"},
		{Found: true, ConfirmationStatus: "finalized"},
	}}

	events, err := newTestEngine(rpc, &fakeSigner{}).Execute(
		context.Background(), makeBatches(t, 1, 8), testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	successes, failures, _ := collect(t, events)
	require.Len(t, successes, 1)
	assert.Empty(t, failures)
	assert.Equal(t, 3, rpc.statusCalls)
}

// 取消只跳过未开始的批次，当前批次执行到终态
func TestExecute_CancelSkipsRemainingBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 第一个批次的确认查询过程中触发取消
	rpc := &fakeRPC{
		statuses: []*domain.TxConfirmation{confirmedStatus()},
		onStatus: func(int) { cancel() },
	}
	batches := makeBatches(t, 10, 8) // 2 个批次

	events, err := newTestEngine(rpc, &fakeSigner{}).Execute(
		ctx, batches, testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	successes, failures, summary := collect(t, events)

	require.Len(t, successes, 1, "进行中的批次必须执行到终态")
	assert.Empty(t, failures)
	assert.Equal(t, domain.BatchConfirmed, batches[0].Status)
	assert.Equal(t, domain.BatchPending, batches[1].Status, "未开始的批次保持 Pending")
	assert.Equal(t, 8, summary.AccountsClosed)
}

// 非法钱包地址属于上游数据损坏，必须直接报错
func TestExecute_InvalidWallet(t *testing.T) {
	_, err := newTestEngine(&fakeRPC{}, &fakeSigner{}).Execute(
		context.Background(), makeBatches(t, 1, 8), "0OIl-not-base58", "auth", domain.ClusterDevnet)
	assert.Error(t, err)
}

// 消费方暂停读取不会阻塞引擎（事件缓冲足够容纳整个 run 的全部事件）
func TestExecute_AbandonedConsumer(t *testing.T) {
	rpc := &fakeRPC{statuses: []*domain.TxConfirmation{confirmedStatus()}}
	batches := makeBatches(t, 10, 4) // 3 个批次

	events, err := newTestEngine(rpc, &fakeSigner{}).Execute(
		context.Background(), batches, testWallet, "auth", domain.ClusterDevnet)
	require.NoError(t, err)

	// 读一个事件后长时间不消费，引擎应在无人读取时跑完全部批次
	<-events
	time.Sleep(50 * time.Millisecond)

	// 事后补读：channel 关闭说明引擎已完整结束
	count := 1
	for range events {
		count++
	}
	assert.Equal(t, len(batches)*4+1, count, "每批次 3 个进度 + 1 个结果，外加 1 个 Complete")
	for _, batch := range batches {
		assert.Equal(t, domain.BatchConfirmed, batch.Status)
	}
}
