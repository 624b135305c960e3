package game

import (
	"slices"
)

type Team string

const (
	TEAM_GOOD Team = "GOOD"
	TEAM_EVIL Team = "EVIL"
)

type RoleID string

const (
	ROLE_MERLIN   RoleID = "MERLIN"
	ROLE_PERCIVAL RoleID = "PERCIVAL"
	ROLE_SERVANT  RoleID = "SERVANT"
	ROLE_ASSASSIN RoleID = "ASSASSIN"
	ROLE_MORGANA  RoleID = "MORGANA"
	ROLE_MORDRED  RoleID = "MORDRED"
	ROLE_OBERON   RoleID = "OBERON"
	ROLE_MINION   RoleID = "MINION"
)

// 角色看到其他玩家时显示的标签
type Label string

const (
	LABEL_EVIL            Label = "Evil"
	LABEL_LEADER_OR_DECOY Label = "Leader-or-Decoy"
	LABEL_EVIL_TEAMMATE   Label = "Evil teammate"
)

// VisibilityRule 描述一个角色能看到谁：按阵营或按角色列表选取，再排除 Except 中的角色
type VisibilityRule struct {
	Team   Team
	Roles  []RoleID
	Except []RoleID
	Label  Label
}

func (vr VisibilityRule) Matches(role RoleID) bool {
	if slices.Contains(vr.Except, role) {
		return false
	}

	if len(vr.Roles) > 0 {
		return slices.Contains(vr.Roles, role)
	}

	def, ok := catalog[role]
	return ok && vr.Team != "" && def.Team == vr.Team
}

type RoleDef struct {
	ID          RoleID
	Name        string
	Team        Team
	Description string
	Sees        []VisibilityRule
	// 同一局中至多出现一次
	Unique bool
}

var evilSeesEvil = VisibilityRule{
	Team:   TEAM_EVIL,
	Except: []RoleID{ROLE_OBERON},
	Label:  LABEL_EVIL_TEAMMATE,
}

var catalog = map[RoleID]RoleDef{
	ROLE_MERLIN: {
		ID:          ROLE_MERLIN,
		Name:        "梅林",
		Team:        TEAM_GOOD,
		Description: "知道除莫德雷德以外的所有坏人，但必须隐藏身份，否则会被刺客刺杀。",
		Sees: []VisibilityRule{
			{Team: TEAM_EVIL, Except: []RoleID{ROLE_MORDRED}, Label: LABEL_EVIL},
		},
		Unique: true,
	},
	ROLE_PERCIVAL: {
		ID:          ROLE_PERCIVAL,
		Name:        "派西维尔",
		Team:        TEAM_GOOD,
		Description: "能看到梅林与莫甘娜，但无法分辨谁是谁。",
		Sees: []VisibilityRule{
			{Roles: []RoleID{ROLE_MERLIN, ROLE_MORGANA}, Label: LABEL_LEADER_OR_DECOY},
		},
		Unique: true,
	},
	ROLE_SERVANT: {
		ID:          ROLE_SERVANT,
		Name:        "亚瑟的忠臣",
		Team:        TEAM_GOOD,
		Description: "没有额外信息，依靠推理帮助好人完成任务。",
	},
	ROLE_ASSASSIN: {
		ID:          ROLE_ASSASSIN,
		Name:        "刺客",
		Team:        TEAM_EVIL,
		Description: "认识其他坏人；好人完成三次任务后，可以刺杀梅林逆转胜负。",
		Sees:        []VisibilityRule{evilSeesEvil},
		Unique:      true,
	},
	ROLE_MORGANA: {
		ID:          ROLE_MORGANA,
		Name:        "莫甘娜",
		Team:        TEAM_EVIL,
		Description: "认识其他坏人，并在派西维尔眼中伪装成梅林。",
		Sees:        []VisibilityRule{evilSeesEvil},
		Unique:      true,
	},
	ROLE_MORDRED: {
		ID:          ROLE_MORDRED,
		Name:        "莫德雷德",
		Team:        TEAM_EVIL,
		Description: "认识其他坏人，且梅林看不到你。",
		Sees:        []VisibilityRule{evilSeesEvil},
		Unique:      true,
	},
	ROLE_OBERON: {
		ID:          ROLE_OBERON,
		Name:        "奥伯伦",
		Team:        TEAM_EVIL,
		Description: "坏人阵营，但不认识其他坏人，其他坏人也不认识你。",
		Unique:      true,
	},
	ROLE_MINION: {
		ID:          ROLE_MINION,
		Name:        "莫德雷德的爪牙",
		Team:        TEAM_EVIL,
		Description: "认识其他坏人，设法让任务失败。",
		Sees:        []VisibilityRule{evilSeesEvil},
	},
}

var roleOrder = []RoleID{
	ROLE_MERLIN,
	ROLE_PERCIVAL,
	ROLE_SERVANT,
	ROLE_ASSASSIN,
	ROLE_MORGANA,
	ROLE_MORDRED,
	ROLE_OBERON,
	ROLE_MINION,
}

const (
	GOOD_LEADER_ROLE = ROLE_MERLIN
	EVIL_LEADER_ROLE = ROLE_ASSASSIN
)

// 成对出现的角色：出现其一则必须同时出现另一个
var PairedRoles = [][2]RoleID{
	{ROLE_PERCIVAL, ROLE_MORGANA},
}

func LookupRole(id RoleID) (RoleDef, bool) {
	def, ok := catalog[id]
	return def, ok
}

func Roles() []RoleDef {
	defs := make([]RoleDef, 0, len(roleOrder))
	for _, id := range roleOrder {
		defs = append(defs, catalog[id])
	}

	return defs
}

func TeamOf(id RoleID) Team {
	return catalog[id].Team
}

// ValidateRoleSet 校验角色配置：数量等于人数，必须包含梅林与刺客，成对角色同进同出
func ValidateRoleSet(roles []RoleID, maxPlayers int) error {
	if len(roles) != maxPlayers {
		return Invalid("角色数量必须等于人数上限")
	}

	counts := make(map[RoleID]int, len(roles))
	for _, r := range roles {
		def, ok := catalog[r]
		if !ok {
			return Invalid("未知角色: " + string(r))
		}

		counts[r]++
		if def.Unique && counts[r] > 1 {
			return Invalid("角色只能出现一次: " + def.Name)
		}
	}

	if counts[GOOD_LEADER_ROLE] == 0 {
		return Invalid("角色配置必须包含梅林")
	}
	if counts[EVIL_LEADER_ROLE] == 0 {
		return Invalid("角色配置必须包含刺客")
	}

	for _, pair := range PairedRoles {
		if (counts[pair[0]] > 0) != (counts[pair[1]] > 0) {
			return Invalid("派西维尔与莫甘娜必须同时出现")
		}
	}

	return nil
}

// DefaultRoles 返回给定人数下的默认角色配置
func DefaultRoles(playerCount int) []RoleID {
	evil := EvilCount(playerCount)
	if evil == 0 {
		return nil
	}

	evilRoles := []RoleID{ROLE_ASSASSIN, ROLE_MORGANA, ROLE_MORDRED, ROLE_OBERON}[:evil]
	roles := []RoleID{ROLE_MERLIN, ROLE_PERCIVAL}
	for len(roles) < playerCount-evil {
		roles = append(roles, ROLE_SERVANT)
	}

	return append(roles, evilRoles...)
}

type VisibleParticipant struct {
	ParticipantID string
	Name          string
	Index         int
	Label         Label
}

// VisibleTo 按角色能力表计算 p 能看到的玩家，每次查询都重新计算
func (s *Session) VisibleTo(p *Participant) []VisibleParticipant {
	def, ok := catalog[p.Role]
	if !ok {
		return nil
	}

	visible := make([]VisibleParticipant, 0)
	for _, other := range s.Participants {
		if other.ID == p.ID || other.Role == "" {
			continue
		}

		for _, rule := range def.Sees {
			if rule.Matches(other.Role) {
				visible = append(visible, VisibleParticipant{
					ParticipantID: other.ID,
					Name:          other.Name,
					Index:         other.Index,
					Label:         rule.Label,
				})
				break
			}
		}
	}

	return visible
}
