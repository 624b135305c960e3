package dto

import "avalon-be/internal/service/game"

const (
	PROPOSAL_PENDING  = "PENDING"
	PROPOSAL_APPROVED = "APPROVED"
	PROPOSAL_REJECTED = "REJECTED"
)

type ProposalView struct {
	ID         string   `json:"id"`
	ProposerID string   `json:"proposer_id"`
	Team       []string `json:"team"`
	Status     string   `json:"status"`
	// 已投票的玩家，表决结束前不公开投票内容
	Voters []string `json:"voters"`
	// 表决结束后公开，key 为玩家 ID
	Votes map[string]string `json:"votes,omitempty"`
	// 已提交任务结果的队员，结果本身永不公开
	Submitted []string `json:"submitted"`
}

func NewProposalView(p *game.Proposal) ProposalView {
	view := ProposalView{
		ID:         p.ID,
		ProposerID: p.ProposerID,
		Team:       append([]string(nil), p.Team...),
		Status:     PROPOSAL_PENDING,
		Voters:     make([]string, 0, len(p.Votes)),
		Submitted:  make([]string, 0, len(p.Actions)),
	}

	for _, v := range p.Votes {
		view.Voters = append(view.Voters, v.PlayerID)
	}
	for _, a := range p.Actions {
		view.Submitted = append(view.Submitted, a.PlayerID)
	}

	if p.IsPending() {
		return view
	}

	view.Status = PROPOSAL_REJECTED
	if p.Approved() {
		view.Status = PROPOSAL_APPROVED
	}

	view.Votes = make(map[string]string, len(p.Votes))
	for _, v := range p.Votes {
		view.Votes[v.PlayerID] = string(v.Decision)
	}

	return view
}

type RoundView struct {
	Number          int    `json:"number"`
	RequiredPlayers int    `json:"required_players"`
	FailsRequired   int    `json:"fails_required"`
	Result          string `json:"result,omitempty"`
	// 结算后公开失败票数
	Fails      *int `json:"fails,omitempty"`
	Rejections int  `json:"rejections"`
	Proposals  int  `json:"proposals"`
}

func NewRoundView(r *game.Round) RoundView {
	view := RoundView{
		Number:          r.Number,
		RequiredPlayers: r.RequiredPlayers,
		FailsRequired:   r.FailsRequired,
		Rejections:      r.Rejections(),
		Proposals:       len(r.Proposals),
	}

	if r.IsResolved() {
		view.Result = string(game.RESULT_FAIL)
		if *r.IsSuccess {
			view.Result = string(game.RESULT_SUCCESS)
		}
		if p := r.ApprovedProposal(); p != nil {
			fails := p.FailCount()
			view.Fails = &fails
		}
	}

	return view
}

// 对局结束后公开所有人的角色
type RoleReveal struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Team          string `json:"team"`
}

type GameStatus struct {
	SessionID      string        `json:"session_id"`
	Status         string        `json:"status"`
	Phase          string        `json:"phase"`
	CurrentRound   int           `json:"current_round"`
	Leader         *PlayerView   `json:"leader,omitempty"`
	Successes      int           `json:"successes"`
	Fails          int           `json:"fails"`
	Rounds         []RoundView   `json:"rounds"`
	ActiveProposal *ProposalView `json:"active_proposal,omitempty"`
	Winner         string        `json:"winner,omitempty"`
	WinReason      string        `json:"win_reason,omitempty"`
	AssassinTarget string        `json:"assassin_target,omitempty"`
	Roles          []RoleReveal  `json:"roles,omitempty"`
}

func NewGameStatus(s *game.Session) GameStatus {
	status := GameStatus{
		SessionID:      s.ID,
		Status:         string(s.Status),
		Phase:          string(s.Phase),
		CurrentRound:   s.CurrentRoundNumber,
		Rounds:         make([]RoundView, 0, len(s.Rounds)),
		Winner:         string(s.Winner),
		WinReason:      s.WinReason,
		AssassinTarget: s.AssassinTarget,
	}
	status.Successes, status.Fails = s.Score()

	if leader := s.Leader(); leader != nil {
		view := NewPlayerView(leader)
		status.Leader = &view
	}

	for _, r := range s.Rounds {
		status.Rounds = append(status.Rounds, NewRoundView(r))
	}

	if p := s.ActiveProposal(); p != nil {
		view := NewProposalView(p)
		status.ActiveProposal = &view
	}

	if s.Status == game.STATUS_FINISHED {
		for _, p := range s.Participants {
			status.Roles = append(status.Roles, RoleReveal{
				ParticipantID: p.ID,
				Name:          p.Name,
				Role:          string(p.Role),
				Team:          string(game.TeamOf(p.Role)),
			})
		}
	}

	return status
}

type SubmitProposalRequest struct {
	Team []string `json:"team"`
}

type StagePendingRequest struct {
	Text string `json:"text"`
}

type PendingView struct {
	LeaderID  string   `json:"leader_id"`
	Team      []string `json:"team"`
	Text      string   `json:"text"`
	ExpiresAt int64    `json:"expires_at"`
}

func NewPendingView(pp *game.PendingProposal) PendingView {
	return PendingView{
		LeaderID:  pp.LeaderID,
		Team:      append([]string(nil), pp.Team...),
		Text:      pp.Text,
		ExpiresAt: pp.ExpiresAt.UnixMilli(),
	}
}

type SubmitVoteRequest struct {
	Decision string `json:"decision"`
}

type VoteResult struct {
	ProposalID string `json:"proposal_id"`
	Resolved   bool   `json:"resolved"`
	Approved   bool   `json:"approved"`
	Approvals  int    `json:"approvals"`
	Rejections int    `json:"rejections"`
	GameOver   bool   `json:"game_over"`
}

type SubmitMissionRequest struct {
	Result string `json:"result"`
}

type MissionResult struct {
	ProposalID    string `json:"proposal_id"`
	Round         int    `json:"round"`
	Resolved      bool   `json:"resolved"`
	Success       bool   `json:"success"`
	Fails         int    `json:"fails"`
	NextRound     int    `json:"next_round,omitempty"`
	Assassination bool   `json:"assassination"`
	GameOver      bool   `json:"game_over"`
	Winner        string `json:"winner,omitempty"`
}

type AssassinateRequest struct {
	TargetID string `json:"target_id"`
}

type AssassinationResult struct {
	TargetID string `json:"target_id"`
	Hit      bool   `json:"hit"`
	Winner   string `json:"winner"`
}
