package txbuilder

import (
	"fmt"
	"sort"

	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/types"
)

// BuildCloseBatchMessage 为一个批次构造未签名的 legacy 交易消息。
//
// 钱包同时充当手续费支付方、租金接收方和关闭授权方。
// 输出对 (batch, wallet, recentBlockhash) 三元组完全确定，不修改任何输入。
// 空批次也会产出合法的消息（头 + 仅含钱包的账户表 + blockhash + 空指令表），
// 是否提交由调用方负责。
func BuildCloseBatchMessage(batch *domain.CloseBatch, wallet types.Pubkey, recentBlockhash string) ([]byte, error) {
	blockhash, err := types.TryPubkeyFromBase58(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid recent blockhash: %w", err)
	}

	instructions := make([]Instruction, 0, len(batch.Accounts))
	for i := range batch.Accounts {
		account := &batch.Accounts[i]

		accountKey, err := types.TryPubkeyFromBase58(account.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid token account address: %w", err)
		}
		programID, err := types.TryPubkeyFromBase58(account.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("invalid program id: %w", err)
		}

		instructions = append(instructions, NewCloseAccountInstruction(accountKey, wallet, wallet, programID))
	}

	table := assembleAccountTable(wallet, instructions)
	return serializeLegacyMessage(table, blockhash, instructions)
}

// assembleAccountTable 组装消息账户表：
//   - 钱包固定为首个账户（signer + writable，接收租金）；
//   - 指令引用的账户按首次出现顺序追加；已存在且新引用要求 writable 时就地升级，
//     绝不降级、绝不重复；
//   - 所有被引用的 programId 以只读非签名项补在末尾（若尚未存在）；
//   - 最终按 (isSigner, isWritable) 降序稳定排序，同键保持原相对顺序。
func assembleAccountTable(wallet types.Pubkey, instructions []Instruction) []AccountMeta {
	table := []AccountMeta{{Pubkey: wallet, IsSigner: true, IsWritable: true}}
	index := map[types.Pubkey]int{wallet: 0}

	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			if pos, ok := index[meta.Pubkey]; ok {
				if meta.IsWritable && !table[pos].IsWritable {
					table[pos].IsWritable = true
				}
				continue
			}
			index[meta.Pubkey] = len(table)
			table = append(table, meta)
		}
	}

	for _, ix := range instructions {
		if _, ok := index[ix.ProgramID]; ok {
			continue
		}
		index[ix.ProgramID] = len(table)
		table = append(table, AccountMeta{Pubkey: ix.ProgramID, IsSigner: false, IsWritable: false})
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].IsSigner != table[j].IsSigner {
			return table[i].IsSigner
		}
		if table[i].IsWritable != table[j].IsWritable {
			return table[i].IsWritable
		}
		return false
	})
	return table
}

// serializeLegacyMessage 按 legacy 消息格式序列化：
//
//	header(3 字节) | compact-u16 账户数 + 32 字节公钥 × n | 32 字节 blockhash |
//	compact-u16 指令数 + 每条指令 (programId 索引字节, compact-u16 账户索引数 + 索引字节 × m, compact-u16 数据长度 + 数据)
func serializeLegacyMessage(table []AccountMeta, blockhash types.Pubkey, instructions []Instruction) ([]byte, error) {
	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for _, meta := range table {
		if meta.IsSigner {
			numSigners++
			if !meta.IsWritable {
				numReadonlySigned++
			}
		} else if !meta.IsWritable {
			numReadonlyUnsigned++
		}
	}

	buf := make([]byte, 0, 3+3+len(table)*32+32+3+len(instructions)*8)
	buf = append(buf, byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned))

	buf, err := appendCompactU16(buf, len(table))
	if err != nil {
		return nil, err
	}
	for _, meta := range table {
		buf = append(buf, meta.Pubkey[:]...)
	}

	buf = append(buf, blockhash[:]...)

	buf, err = appendCompactU16(buf, len(instructions))
	if err != nil {
		return nil, err
	}
	for _, ix := range instructions {
		programIndex, err := tableIndexOf(table, ix.ProgramID)
		if err != nil {
			return nil, err
		}
		buf = append(buf, byte(programIndex))

		buf, err = appendCompactU16(buf, len(ix.Accounts))
		if err != nil {
			return nil, err
		}
		for _, meta := range ix.Accounts {
			accountIndex, err := tableIndexOf(table, meta.Pubkey)
			if err != nil {
				return nil, err
			}
			buf = append(buf, byte(accountIndex))
		}

		buf, err = appendCompactU16(buf, len(ix.Data))
		if err != nil {
			return nil, err
		}
		buf = append(buf, ix.Data...)
	}
	return buf, nil
}

func tableIndexOf(table []AccountMeta, key types.Pubkey) (int, error) {
	for i := range table {
		if table[i].Pubkey == key {
			return i, nil
		}
	}
	return 0, fmt.Errorf("account %s not in message table", key)
}

// appendCompactU16 追加 compact-u16 编码：每字节携带低 7 位数据，最高位为续读标志，
// 低位组在前。格式上限为 u16，超出视为调用方错误。
func appendCompactU16(buf []byte, value int) ([]byte, error) {
	if value < 0 || value > 0xFFFF {
		return nil, fmt.Errorf("compact-u16 value out of range: %d", value)
	}
	remaining := value
	for {
		b := byte(remaining & 0x7F)
		remaining >>= 7
		if remaining == 0 {
			return append(buf, b), nil
		}
		buf = append(buf, b|0x80)
	}
}
