package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"rent-reclaim-sol/internal/consts"
	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/pkg/logger"

	sdkclient "github.com/blocto/solana-go-sdk/client"
)

// SolanaClient 封装回收流程依赖的全部链上 RPC：
// blockhash 走 SDK 客户端；账户发现（需要 jsonParsed 的 closeAuthority + lamports）、
// 原始交易提交与签名状态查询走原生 JSON-RPC。
type SolanaClient struct {
	endpoint string
	sdk      *sdkclient.Client
	http     *http.Client
}

func NewSolanaClient(endpoint string) *SolanaClient {
	return &SolanaClient{
		endpoint: endpoint,
		sdk:      sdkclient.NewClient(endpoint),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// TokenAccountsByOwner 拉取钱包在 Token 与 Token-2022 两个程序下的全部账户。
func (c *SolanaClient) TokenAccountsByOwner(ctx context.Context, owner string) ([]domain.TokenAccount, error) {
	var accounts []domain.TokenAccount
	for _, programID := range []string{consts.TokenProgramStr, consts.TokenProgram2022Str} {
		batch, err := c.fetchTokenAccounts(ctx, owner, programID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, batch...)
	}
	return accounts, nil
}

func (c *SolanaClient) fetchTokenAccounts(ctx context.Context, owner, programID string) ([]domain.TokenAccount, error) {
	params := []any{
		owner,
		map[string]any{"programId": programID},
		map[string]any{"encoding": "jsonParsed"},
	}

	var result tokenAccountsResult
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner(%s): %w", programID, err)
	}

	accounts := make([]domain.TokenAccount, 0, len(result.Value))
	for _, info := range result.Value {
		parsed := info.Account.Data.Parsed.Info
		amount, err := strconv.ParseUint(parsed.TokenAmount.Amount, 10, 64)
		if err != nil {
			logger.Warnf("[rpc] token 账户 %s 余额解析失败: %v", info.Pubkey, err)
			continue
		}
		accounts = append(accounts, domain.TokenAccount{
			Address:        info.Pubkey,
			Mint:           parsed.Mint,
			Owner:          parsed.Owner,
			Amount:         amount,
			Decimals:       parsed.TokenAmount.Decimals,
			ProgramID:      programID,
			CloseAuthority: parsed.CloseAuthority,
			RentLamports:   info.Account.Lamports,
		})
	}
	return accounts, nil
}

// LatestBlockhash 获取最新 blockhash（base58 文本）
func (c *SolanaClient) LatestBlockhash(ctx context.Context) (string, error) {
	value, err := c.sdk.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("getLatestBlockhash: %w", err)
	}
	if value.Blockhash == "" {
		return "", fmt.Errorf("getLatestBlockhash: empty blockhash in response")
	}
	return value.Blockhash, nil
}

// SendRawTransaction 以 base64 编码提交外部签名完成的交易字节，返回签名。
func (c *SolanaClient) SendRawTransaction(ctx context.Context, signed []byte) (string, error) {
	params := []any{
		base64.StdEncoding.EncodeToString(signed),
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": "confirmed",
		},
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	if signature == "" {
		return "", fmt.Errorf("sendTransaction: empty signature in response")
	}
	return signature, nil
}

// SignatureStatus 查询签名的确认状态（含历史检索）。
func (c *SolanaClient) SignatureStatus(ctx context.Context, signature string) (*domain.TxConfirmation, error) {
	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}

	var result signatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return &domain.TxConfirmation{Found: false}, nil
	}

	status := result.Value[0]
	confirmation := &domain.TxConfirmation{
		Found:              true,
		ConfirmationStatus: status.ConfirmationStatus,
	}
	// err 为 JSON null 表示执行成功，其它任意值都视为链上失败
	if len(status.Err) > 0 && string(status.Err) != "null" {
		confirmation.Err = string(status.Err)
	}
	return confirmation, nil
}

// call 执行一次 JSON-RPC 请求并将 result 反序列化到 out。
func (c *SolanaClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(jsonRpcRequest{
		JsonRpc: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, resp.Status)
	}

	var rpcResp jsonRpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
