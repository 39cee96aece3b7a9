package txbuilder

import (
	"rent-reclaim-sol/internal/types"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// AccountMeta 表示消息账户表中的一项引用
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction 表示一条待序列化的指令，构造完成后不再修改。
type Instruction struct {
	ProgramID types.Pubkey
	Accounts  []AccountMeta // 保持固定顺序
	Data      []byte
}

// NewCloseAccountInstruction 构造 SPL Token 的 CloseAccount 指令。
//
// 账户布局（固定顺序）：
//  0. [writable] 待关闭的 token 账户
//  1. [writable] 租金接收地址
//  2. [signer]   owner / close authority
func NewCloseAccountInstruction(accountToClose, destination, authority, programID types.Pubkey) Instruction {
	return Instruction{
		ProgramID: programID,
		Accounts: []AccountMeta{
			{Pubkey: accountToClose, IsSigner: false, IsWritable: true},
			{Pubkey: destination, IsSigner: false, IsWritable: true},
			{Pubkey: authority, IsSigner: true, IsWritable: false},
		},
		Data: []byte{byte(sdktoken.InstructionCloseAccount)},
	}
}
