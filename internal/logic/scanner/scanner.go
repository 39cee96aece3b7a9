package scanner

import (
	"context"
	"fmt"

	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/logic/safety"
	"rent-reclaim-sol/pkg/logger"
)

// DiscoveryRPC 提供钱包 token 账户发现
type DiscoveryRPC interface {
	TokenAccountsByOwner(ctx context.Context, owner string) ([]domain.TokenAccount, error)
}

// Scanner 扫描钱包下的全部 token 账户并过滤出可安全关闭的部分
type Scanner struct {
	rpc DiscoveryRPC
}

func New(rpc DiscoveryRPC) *Scanner {
	return &Scanner{rpc: rpc}
}

// Scan 拉取钱包的全部 token 账户，应用安全过滤并汇总可回收租金。
func (s *Scanner) Scan(ctx context.Context, wallet string) (*domain.ScanResult, error) {
	accounts, err := s.rpc.TokenAccountsByOwner(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("scan token accounts: %w", err)
	}

	closable := safety.FilterClosable(accounts, wallet)

	var total uint64
	for i := range closable {
		total += closable[i].RentLamports
	}

	logger.Infof("[scanner] 扫描完成: 共 %d 个账户, 可关闭 %d 个, 可回收 %d lamports",
		len(accounts), len(closable), total)

	return &domain.ScanResult{
		ClosableAccounts:         closable,
		TotalReclaimableLamports: total,
		TotalAccountsScanned:     len(accounts),
	}, nil
}
