package dto

import "avalon-be/internal/service/game"

type LobbyStatus struct {
	SessionID   string       `json:"session_id"`
	GroupRef    string       `json:"group_ref"`
	Status      string       `json:"status"`
	MaxPlayers  int          `json:"max_players"`
	ActiveRoles []string     `json:"active_roles"`
	Players     []PlayerView `json:"players"`
	IsStartable bool         `json:"is_startable"`
}

func NewLobbyStatus(s *game.Session) LobbyStatus {
	roles := make([]string, 0, len(s.ActiveRoles))
	for _, r := range s.ActiveRoles {
		roles = append(roles, string(r))
	}

	return LobbyStatus{
		SessionID:   s.ID,
		GroupRef:    s.GroupRef,
		Status:      string(s.Status),
		MaxPlayers:  s.MaxPlayers,
		ActiveRoles: roles,
		Players:     NewPlayerViews(s),
		IsStartable: s.IsStartable(),
	}
}

type CreateSessionRequest struct {
	GroupRef string `json:"group_ref"`
}

type UpdateMaxPlayersRequest struct {
	MaxPlayers int `json:"max_players"`
}

type UpdateActiveRolesRequest struct {
	Roles []string `json:"roles"`
}
