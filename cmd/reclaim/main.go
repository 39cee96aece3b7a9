package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"rent-reclaim-sol/internal/config"
	"rent-reclaim-sol/internal/logic/batcher"
	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/logic/engine"
	"rent-reclaim-sol/internal/logic/scanner"
	"rent-reclaim-sol/internal/svc"
	"rent-reclaim-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

var (
	configFile = flag.String("f", "etc/reclaim.yaml", "the config file")
	walletAddr = flag.String("wallet", "", "wallet address (base58)")
	authToken  = flag.String("auth-token", "", "signer auth token")
	execute    = flag.Bool("execute", false, "execute close transactions (default: dry-run)")
	history    = flag.Bool("history", false, "show recent run history and exit")
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.ReclaimerConfig
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		logx.Errorf("logger 初始化失败: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *walletAddr == "" {
		logx.Error("缺少 -wallet 参数")
		os.Exit(1)
	}

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		logx.Errorf("服务上下文初始化失败: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	// Ctrl+C 只跳过尚未开始的批次，进行中的批次会执行到终态
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *history {
		if err := showHistory(ctx, serviceContext, *walletAddr); err != nil {
			logx.Errorf("历史查询失败: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, serviceContext, *walletAddr, *authToken, *execute); err != nil {
		logx.Errorf("执行失败: %v", err)
		os.Exit(1)
	}
}

func showHistory(ctx context.Context, sc *svc.ServiceContext, wallet string) error {
	if sc.History == nil {
		logx.Error("未配置 Redis，无历史记录（检查 redisAddr 配置）")
		return nil
	}

	summaries, err := sc.History.RecentRunSummaries(ctx, wallet, int64(sc.Config.ReclaimConf.HistoryListLimit))
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		logx.Info("该钱包暂无执行记录")
		return nil
	}

	for _, summary := range summaries {
		logx.Infof("%s [%s] 关闭 %d 个账户, 回收 %.6f SOL, %d 笔交易 (id=%s)",
			time.Unix(summary.Timestamp, 0).Format(time.RFC3339), summary.Cluster,
			summary.AccountsClosed, summary.SolReclaimed(), len(summary.Signatures), summary.ID)
	}
	return nil
}

func run(ctx context.Context, sc *svc.ServiceContext, wallet, authToken string, execute bool) error {
	scanResult, err := scanner.New(sc.RpcClient).Scan(ctx, wallet)
	if err != nil {
		return err
	}
	logx.Infof("扫描完成: 共 %d 个账户, 可关闭 %d 个, 预计可回收 %.6f SOL",
		scanResult.TotalAccountsScanned, scanResult.ClosableCount(), scanResult.TotalReclaimableSol())

	if scanResult.ClosableCount() == 0 {
		logx.Info("没有可关闭的账户")
		return nil
	}

	b := batcher.New()
	maxPerBatch := sc.Config.ReclaimConf.MaxPerBatch
	if maxPerBatch <= 0 {
		maxPerBatch = batcher.OptimalBatchSize(scanResult.ClosableAccounts)
	}
	batches, err := b.Partition(scanResult.ClosableAccounts, maxPerBatch)
	if err != nil {
		return err
	}

	for i, batch := range batches {
		logx.Infof("批次 %d/%d: %d 个账户, 预计回收 %.6f SOL (id=%s)",
			i+1, len(batches), batch.AccountCount(), batch.EstimatedRentSol(), batch.ID)
	}

	if !execute {
		logx.Info("dry-run 模式，不提交交易（加 -execute 以执行）")
		return nil
	}
	if sc.Signer == nil {
		logx.Error("未配置签名服务，无法执行（检查 signer.endpoint 配置）")
		return nil
	}

	opts := []engine.Option{}
	if retries := sc.Config.ReclaimConf.ConfirmRetries; retries > 0 {
		delay := time.Duration(sc.Config.ReclaimConf.ConfirmDelayMs) * time.Millisecond
		if delay <= 0 {
			delay = time.Second
		}
		opts = append(opts, engine.WithConfirmPolicy(retries, delay))
	}

	eng := engine.New(sc.RpcClient, sc.Signer, opts...)
	events, err := eng.Execute(ctx, batches, wallet, authToken, sc.Config.Cluster())
	if err != nil {
		return err
	}

	for event := range events {
		switch e := event.(type) {
		case engine.ProgressEvent:
			logx.Infof("批次 %d/%d: %s", e.Index+1, e.Total, e.Status)
		case engine.SuccessEvent:
			logx.Infof("批次确认成功: sig=%s", e.Signature)
		case engine.FailureEvent:
			logx.Errorf("批次失败（可手动重试）: id=%s err=%s", e.Batch.ID, e.Error)
		case engine.CompleteEvent:
			finishRun(sc, wallet, e.Summary)
		}
	}
	return nil
}

// finishRun 输出汇总并尽力持久化/通知，失败只记日志
func finishRun(sc *svc.ServiceContext, wallet string, summary *domain.RunSummary) {
	logx.Infof("执行结束: 关闭 %d 个账户, 回收 %.6f SOL, %d 笔交易确认",
		summary.AccountsClosed, summary.SolReclaimed(), len(summary.Signatures))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if sc.History != nil {
		if err := sc.History.SaveRunSummary(ctx, wallet, summary); err != nil {
			logx.Errorf("历史记录写入失败: %v", err)
		}
	}
	if sc.Notifier != nil {
		if err := sc.Notifier.PublishRunSummary(ctx, wallet, summary); err != nil {
			logx.Errorf("汇总通知发送失败: %v", err)
		}
	}
}
