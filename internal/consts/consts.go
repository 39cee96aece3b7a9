package consts

const (
	// LamportsPerSol 1 SOL = 10^9 lamports
	LamportsPerSol = 1_000_000_000

	// DefaultRentLamports 标准 165 字节 token 账户的免租金额（当前费率）
	DefaultRentLamports = 2_039_280
)
