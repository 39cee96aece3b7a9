package domain

// Cluster 表示目标 Solana 网络
type Cluster string

const (
	ClusterMainnetBeta Cluster = "mainnet-beta"
	ClusterDevnet      Cluster = "devnet"
)

// DefaultRPCEndpoint 返回该网络的默认公共 RPC 端点。
// 公共端点有限流，生产环境应在配置中指定自建或商业 RPC。
func (c Cluster) DefaultRPCEndpoint() string {
	switch c {
	case ClusterDevnet:
		return "https://api.devnet.solana.com"
	default:
		return "https://api.mainnet-beta.solana.com"
	}
}

func ClusterFromName(name string) Cluster {
	if Cluster(name) == ClusterDevnet {
		return ClusterDevnet
	}
	return ClusterMainnetBeta
}

// TxConfirmation 表示一次签名状态查询的结果
type TxConfirmation struct {
	Found              bool   // 链上是否已能查到该签名
	ConfirmationStatus string // processed / confirmed / finalized
	Err                string // 非空表示交易在链上执行失败
}

func (c *TxConfirmation) IsConfirmed() bool {
	return c.ConfirmationStatus == "confirmed" || c.ConfirmationStatus == "finalized"
}
