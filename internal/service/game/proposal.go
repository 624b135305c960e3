package game

import (
	"slices"
	"time"
)

type VoteOutcome struct {
	Proposal *Proposal
	Voter    *Participant
	// 全员投票完毕才会结算
	Resolved   bool
	Approved   bool
	Approvals  int
	Rejections int
	// 提名被否决后的新队长
	NewLeader *Participant
	// 同一回合否决次数达到上限，坏人获胜
	GameOver bool
}

// validateTeam 检查队伍人数、重复成员以及成员是否在座
func (s *Session) validateTeam(round *Round, team []string) error {
	if len(team) != round.RequiredPlayers {
		return Invalid("队伍人数与本回合要求不符")
	}

	seen := make(map[string]struct{}, len(team))
	for _, id := range team {
		if _, dup := seen[id]; dup {
			return Invalid("队伍中有重复的玩家")
		}
		seen[id] = struct{}{}

		if s.ParticipantByID(id) == nil {
			return Invalid("队伍中包含不在本局的玩家")
		}
	}

	return nil
}

// requireLeader 校验提名前提：对局进行中、处于提名阶段、调用者是当前队长
func (s *Session) requireLeader(identity string) (*Participant, *Round, error) {
	if err := s.requirePlaying(); err != nil {
		return nil, nil, err
	}

	round := s.CurrentRound()
	if round == nil {
		return nil, nil, NotFound("当前回合不存在")
	}

	if round.ApprovedProposal() != nil {
		return nil, nil, WrongState("本回合的提名已经通过")
	}

	if s.Phase != PHASE_PROPOSING {
		return nil, nil, WrongState("现在不是提名阶段")
	}

	p, err := s.requireParticipant(identity)
	if err != nil {
		return nil, nil, err
	}

	if p.Index != s.CurrentLeaderIndex {
		return nil, nil, Unauthorized("现在不是你提名")
	}

	return p, round, nil
}

func (s *Session) SubmitProposal(identity string, team []string, now time.Time) (*Proposal, error) {
	leader, round, err := s.requireLeader(identity)
	if err != nil {
		return nil, err
	}

	if err := s.validateTeam(round, team); err != nil {
		return nil, err
	}

	proposal := &Proposal{
		ID:         GenID(),
		RoundID:    round.ID,
		ProposerID: leader.ID,
		Team:       slices.Clone(team),
		Votes:      make([]Vote, 0, len(s.Participants)),
		Actions:    make([]MissionAction, 0, len(team)),
		CreatedAt:  now,
	}

	round.Proposals = append(round.Proposals, proposal)
	s.Phase = PHASE_VOTING
	s.dropPending(leader.ID)

	return proposal, nil
}

// SubmitVote 记录或覆盖玩家的投票；全员投完后按严格多数结算，平票视为否决
func (s *Session) SubmitVote(proposalID, identity string, decision Decision) (VoteOutcome, error) {
	round, proposal := s.FindProposal(proposalID)
	if proposal == nil {
		return VoteOutcome{}, NotFound("提名不存在")
	}

	if err := s.requirePlaying(); err != nil {
		return VoteOutcome{}, err
	}

	if !proposal.IsPending() {
		return VoteOutcome{}, WrongState("该提名已经结算")
	}

	if !decision.Valid() {
		return VoteOutcome{}, Invalid("投票必须是 APPROVE 或 REJECT")
	}

	voter, err := s.requireParticipant(identity)
	if err != nil {
		return VoteOutcome{}, err
	}

	upserted := false
	for i := range proposal.Votes {
		if proposal.Votes[i].PlayerID == voter.ID {
			proposal.Votes[i].Decision = decision
			upserted = true
			break
		}
	}
	if !upserted {
		proposal.Votes = append(proposal.Votes, Vote{PlayerID: voter.ID, Decision: decision})
	}

	outcome := VoteOutcome{
		Proposal: proposal,
		Voter:    voter,
	}
	outcome.Approvals, outcome.Rejections = proposal.Tally()

	if len(proposal.Votes) < len(s.Participants) {
		return outcome, nil
	}

	outcome.Resolved = true
	outcome.Approved = outcome.Approvals > outcome.Rejections

	if outcome.Approved {
		proposal.IsApproved = boolPtr(true)
		s.Phase = PHASE_QUESTING
		return outcome, nil
	}

	proposal.IsApproved = boolPtr(false)

	if round.Rejections() >= MAX_REJECTIONS {
		s.finish(TEAM_EVIL, "同一回合连续五次提名被否决")
		outcome.GameOver = true
		return outcome, nil
	}

	outcome.NewLeader = s.rotateLeader()
	s.Phase = PHASE_PROPOSING

	return outcome, nil
}
