package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteSigner 通过 HTTP 与外部签名服务交互：
// POST {transaction: base64, auth_token} → {signed_transaction: base64}。
// 对应移动钱包适配器的 signTransactions 请求/响应契约。
type RemoteSigner struct {
	endpoint string
	http     *http.Client
}

type signRequest struct {
	Transaction string `json:"transaction"` // base64 编码的未签名消息
	AuthToken   string `json:"auth_token"`
}

type signResponse struct {
	SignedTransaction string `json:"signed_transaction"` // base64 编码的已签名交易
	Error             string `json:"error"`
}

func NewRemoteSigner(endpoint string) *RemoteSigner {
	return &RemoteSigner{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 120 * time.Second, // 等待用户在钱包侧确认，超时需足够宽
		},
	}
}

func (s *RemoteSigner) SignTransaction(ctx context.Context, unsigned []byte, authToken string) ([]byte, error) {
	if s == nil || s.endpoint == "" {
		return nil, ErrNoSigner
	}

	body, err := json.Marshal(signRequest{
		Transaction: base64.StdEncoding.EncodeToString(unsigned),
		AuthToken:   authToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read signer response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrNoSigner
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer http %d: %s", resp.StatusCode, string(respBody))
	}

	var signResp signResponse
	if err := json.Unmarshal(respBody, &signResp); err != nil {
		return nil, fmt.Errorf("decode signer response: %w", err)
	}
	if signResp.Error != "" {
		return nil, fmt.Errorf("signer rejected: %s", signResp.Error)
	}

	signed, err := base64.StdEncoding.DecodeString(signResp.SignedTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	if len(signed) == 0 {
		return nil, fmt.Errorf("signer returned empty transaction")
	}
	return signed, nil
}
