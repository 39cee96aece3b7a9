package tools

import (
	"rent-reclaim-sol/internal/consts"
	"rent-reclaim-sol/internal/types"
)

// IsSPLToken 判断一个 ProgramId 是否为标准的 SPL Token 程序。
// 支持 Token v1（Tokenkeg...）和 Token-2022（Tokenz...）
func IsSPLToken(programId string) bool {
	return programId == consts.TokenProgramStr || programId == consts.TokenProgram2022Str
}

func IsSPLTokenProgram(programId types.Pubkey) bool {
	return programId == consts.TokenProgram || programId == consts.TokenProgram2022
}

// IsToken2022 判断是否为 Token-2022 程序（账户可能携带 extension，序列化体积更大）
func IsToken2022(programId string) bool {
	return programId == consts.TokenProgram2022Str
}
