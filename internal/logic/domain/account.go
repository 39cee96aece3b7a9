package domain

import "rent-reclaim-sol/internal/consts"

// TokenAccount 表示扫描到的一个 SPL Token 账户（来自 RPC jsonParsed 结果，核心逻辑只读）。
type TokenAccount struct {
	Address        string // token 账户地址（base58）
	Mint           string // mint 地址（base58）
	Owner          string // 账户 owner（base58）
	Amount         uint64 // 余额，最小单位
	Decimals       int    // mint 精度
	ProgramID      string // 所属 token 程序（Tokenkeg... / Tokenz...）
	CloseAuthority string // close authority，为空表示未设置
	RentLamports   uint64 // 账户当前持有的 lamports（关闭后可回收的租金）
}

func (a *TokenAccount) IsZeroBalance() bool {
	return a.Amount == 0
}

func (a *TokenAccount) RentInSol() float64 {
	return float64(a.RentLamports) / consts.LamportsPerSol
}

// ScanResult 表示一次钱包扫描的结果
type ScanResult struct {
	ClosableAccounts         []TokenAccount // 通过安全过滤的账户，保持 RPC 返回顺序
	TotalReclaimableLamports uint64         // 可回收租金总额
	TotalAccountsScanned     int            // 扫描到的账户总数（含不可关闭的）
}

func (r *ScanResult) ClosableCount() int {
	return len(r.ClosableAccounts)
}

func (r *ScanResult) TotalReclaimableSol() float64 {
	return float64(r.TotalReclaimableLamports) / consts.LamportsPerSol
}
