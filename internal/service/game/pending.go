package game

import (
	"slices"
	"time"
)

// StagePending 暂存队长用自然语言提出的队伍，等待确认；同一队长重复暂存会覆盖旧记录
func (s *Session) StagePending(identity string, team []string, text string, expiresAt time.Time) (*PendingProposal, error) {
	leader, round, err := s.requireLeader(identity)
	if err != nil {
		return nil, err
	}

	if err := s.validateTeam(round, team); err != nil {
		return nil, err
	}

	s.dropPending(leader.ID)

	pending := &PendingProposal{
		LeaderID:  leader.ID,
		Team:      slices.Clone(team),
		Text:      text,
		ExpiresAt: expiresAt,
	}
	s.Pending = append(s.Pending, pending)

	return pending, nil
}

func (s *Session) PendingFor(leaderID string, now time.Time) *PendingProposal {
	for _, pp := range s.Pending {
		if pp.LeaderID == leaderID && now.Before(pp.ExpiresAt) {
			return pp
		}
	}

	return nil
}

// ConfirmPending 把暂存的队伍作为正式提名提交
func (s *Session) ConfirmPending(identity string, now time.Time) (*Proposal, error) {
	p, err := s.requireParticipant(identity)
	if err != nil {
		return nil, err
	}

	pending := s.PendingFor(p.ID, now)
	if pending == nil {
		return nil, NotFound("没有待确认的提名或提名已过期")
	}

	return s.SubmitProposal(identity, pending.Team, now)
}

func (s *Session) CancelPending(identity string) error {
	p, err := s.requireParticipant(identity)
	if err != nil {
		return err
	}

	if !s.dropPending(p.ID) {
		return NotFound("没有待确认的提名")
	}

	return nil
}

// PurgeExpired 清除已过期的暂存提名，返回清除数量
func (s *Session) PurgeExpired(now time.Time) int {
	before := len(s.Pending)
	s.Pending = slices.DeleteFunc(s.Pending, func(pp *PendingProposal) bool {
		return !now.Before(pp.ExpiresAt)
	})

	return before - len(s.Pending)
}

func (s *Session) dropPending(leaderID string) bool {
	before := len(s.Pending)
	s.Pending = slices.DeleteFunc(s.Pending, func(pp *PendingProposal) bool {
		return pp.LeaderID == leaderID
	})

	return len(s.Pending) != before
}
