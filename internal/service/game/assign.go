package game

import (
	"slices"
)

// AssignRoles 对角色做 Fisher–Yates 洗牌后按座位顺序分配，participants 需按座位排序
func AssignRoles(participants []*Participant, roles []RoleID, intN IntN) error {
	if len(roles) != len(participants) {
		return Invalid("角色数量与玩家数量不一致")
	}

	for _, p := range participants {
		if p.Role != "" {
			return WrongState("角色已经分配过")
		}
	}

	shuffled := slices.Clone(roles)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := intN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	for i, p := range participants {
		p.Role = shuffled[i]
	}

	return nil
}
