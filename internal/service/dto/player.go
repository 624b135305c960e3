package dto

import "avalon-be/internal/service/game"

// 对局中的玩家信息，不包含角色
type PlayerView struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Index    int    `json:"index"`
	IsHost   bool   `json:"is_host"`
	IsReady  bool   `json:"is_ready"`
}

func NewPlayerView(p *game.Participant) PlayerView {
	return PlayerView{
		ID:       p.ID,
		Identity: p.Identity,
		Name:     p.Name,
		Index:    p.Index,
		IsHost:   p.IsHost,
		IsReady:  p.IsReady,
	}
}

func NewPlayerViews(s *game.Session) []PlayerView {
	views := make([]PlayerView, 0, len(s.Participants))
	for _, p := range s.Participants {
		views = append(views, NewPlayerView(p))
	}

	return views
}

// 某个玩家能看到的其他玩家，Label 为其看到的身份标签
type VisibleView struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Index         int    `json:"index"`
	Label         string `json:"label"`
}

// 仅发给玩家本人的角色信息
type RoleInfo struct {
	SessionID     string        `json:"session_id"`
	ParticipantID string        `json:"participant_id"`
	Role          string        `json:"role"`
	RoleName      string        `json:"role_name"`
	Team          string        `json:"team"`
	Description   string        `json:"description"`
	Visible       []VisibleView `json:"visible"`
}

func NewRoleInfo(s *game.Session, p *game.Participant) (RoleInfo, error) {
	def, ok := game.LookupRole(p.Role)
	if !ok {
		return RoleInfo{}, game.WrongState("角色尚未分配")
	}

	visible := s.VisibleTo(p)
	views := make([]VisibleView, 0, len(visible))
	for _, v := range visible {
		views = append(views, VisibleView{
			ParticipantID: v.ParticipantID,
			Name:          v.Name,
			Index:         v.Index,
			Label:         string(v.Label),
		})
	}

	return RoleInfo{
		SessionID:     s.ID,
		ParticipantID: p.ID,
		Role:          string(def.ID),
		RoleName:      def.Name,
		Team:          string(def.Team),
		Description:   def.Description,
		Visible:       views,
	}, nil
}
