package wallet

import (
	"context"
	"errors"
)

// ErrNoSigner 表示当前环境没有可用的签名方（未配置 endpoint 或钱包未授权）
var ErrNoSigner = errors.New("no signer available")

// Session 表示一次已授权的钱包会话
type Session struct {
	PublicKey  string // 钱包公钥（base58）
	AuthToken  string // 签名方颁发的授权令牌
	WalletName string
}

// Signer 是外部签名协作方的契约：输入未签名消息字节与授权令牌，
// 返回完整的已签名交易字节。密钥管理与签名算法完全由外部实现。
type Signer interface {
	SignTransaction(ctx context.Context, unsigned []byte, authToken string) ([]byte, error)
}
