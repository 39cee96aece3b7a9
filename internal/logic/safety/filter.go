package safety

import (
	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/tools"
)

// IsClosable 判断一个 token 账户是否可以安全关闭。
//
// 规则按顺序短路执行：
//  1. 余额必须为 0（绝不关闭仍持有 token 的账户，任何其它条件都不能推翻该规则）；
//  2. programId 必须是已知的 token 程序；
//  3. 若设置了 closeAuthority，则它必须等于钱包地址（此时不看 owner）；
//     否则 owner 必须等于钱包地址。
//
// 纯函数，相同输入总是返回相同结果。
func IsClosable(account *domain.TokenAccount, wallet string) bool {
	if account.Amount != 0 {
		return false
	}
	if !tools.IsSPLToken(account.ProgramID) {
		return false
	}
	if account.CloseAuthority != "" {
		return account.CloseAuthority == wallet
	}
	return account.Owner == wallet
}

// FilterClosable 过滤出所有可关闭账户，保持输入顺序。
func FilterClosable(accounts []domain.TokenAccount, wallet string) []domain.TokenAccount {
	result := make([]domain.TokenAccount, 0, len(accounts))
	for i := range accounts {
		if IsClosable(&accounts[i], wallet) {
			result = append(result, accounts[i])
		}
	}
	return result
}
