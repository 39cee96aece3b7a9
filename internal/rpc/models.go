package rpc

import "encoding/json"

// JSON-RPC 2.0 请求/响应模型（仅覆盖 SDK 封装不到位的几个方法）

type jsonRpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonRpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type jsonRpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonRpcError   `json:"error"`
}

// getTokenAccountsByOwner (jsonParsed) 响应

type tokenAccountsResult struct {
	Value []tokenAccountInfo `json:"value"`
}

type tokenAccountInfo struct {
	Pubkey  string      `json:"pubkey"`
	Account accountData `json:"account"`
}

type accountData struct {
	Lamports uint64            `json:"lamports"`
	Owner    string            `json:"owner"`
	Data     parsedAccountData `json:"data"`
}

type parsedAccountData struct {
	Program string             `json:"program"`
	Parsed  parsedTokenAccount `json:"parsed"`
	Space   json.Number        `json:"space"`
}

type parsedTokenAccount struct {
	Type string                 `json:"type"`
	Info tokenAccountParsedInfo `json:"info"`
}

type tokenAccountParsedInfo struct {
	Mint           string      `json:"mint"`
	Owner          string      `json:"owner"`
	TokenAmount    tokenAmount `json:"tokenAmount"`
	CloseAuthority string      `json:"closeAuthority"`
	State          string      `json:"state"`
}

type tokenAmount struct {
	Amount   string `json:"amount"` // u64 以字符串形式返回
	Decimals int    `json:"decimals"`
}

// getSignatureStatuses 响应

type signatureStatusesResult struct {
	Value []*signatureStatus `json:"value"`
}

type signatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}
