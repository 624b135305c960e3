package game

type MissionOutcome struct {
	Proposal *Proposal
	Round    *Round
	Player   *Participant
	// 本次调用是否完成了回合结算
	Resolved  bool
	Success   bool
	Fails     int
	NextRound *Round
	NewLeader *Participant
	// 好人完成三次任务，进入刺杀阶段
	Assassination bool
	GameOver      bool
	Winner        Team
}

type AssassinationOutcome struct {
	Assassin *Participant
	Target   *Participant
	Hit      bool
	Winner   Team
}

// SubmitMissionAction 记录队员的任务结果；好人只能提交 SUCCESS，每人仅能提交一次
func (s *Session) SubmitMissionAction(proposalID, identity string, result MissionResult) (MissionOutcome, error) {
	round, proposal := s.FindProposal(proposalID)
	if proposal == nil {
		return MissionOutcome{}, NotFound("提名不存在")
	}

	if err := s.requirePlaying(); err != nil {
		return MissionOutcome{}, err
	}

	if !proposal.Approved() {
		return MissionOutcome{}, WrongState("该提名尚未通过，不能执行任务")
	}

	if round.IsResolved() {
		return MissionOutcome{}, WrongState("本回合任务已经结算")
	}

	if !result.Valid() {
		return MissionOutcome{}, Invalid("任务结果必须是 SUCCESS 或 FAIL")
	}

	player, err := s.requireParticipant(identity)
	if err != nil {
		return MissionOutcome{}, err
	}

	if !proposal.HasMember(player.ID) {
		return MissionOutcome{}, Unauthorized("你不是本次任务的队员")
	}

	if _, done := proposal.ActionOf(player.ID); done {
		return MissionOutcome{}, Conflict("你已经提交过任务结果")
	}

	if result == RESULT_FAIL && TeamOf(player.Role) != TEAM_EVIL {
		return MissionOutcome{}, Unauthorized("好人阵营只能提交任务成功")
	}

	proposal.Actions = append(proposal.Actions, MissionAction{
		PlayerID: player.ID,
		Result:   result,
	})

	outcome, err := s.resolveMission(round, proposal)
	outcome.Player = player

	return outcome, err
}

// ResolveMission 重新检查任务是否集齐并结算，回合已结算时不做任何修改
func (s *Session) ResolveMission(proposalID string) (MissionOutcome, error) {
	round, proposal := s.FindProposal(proposalID)
	if proposal == nil {
		return MissionOutcome{}, NotFound("提名不存在")
	}

	if round.IsResolved() {
		return MissionOutcome{Proposal: proposal, Round: round, Success: *round.IsSuccess, Fails: proposal.FailCount()}, nil
	}

	if err := s.requirePlaying(); err != nil {
		return MissionOutcome{}, err
	}

	if !proposal.Approved() {
		return MissionOutcome{}, WrongState("该提名尚未通过，不能执行任务")
	}

	return s.resolveMission(round, proposal)
}

func (s *Session) resolveMission(round *Round, proposal *Proposal) (MissionOutcome, error) {
	outcome := MissionOutcome{
		Proposal: proposal,
		Round:    round,
	}

	if round.IsResolved() || len(proposal.Actions) < len(proposal.Team) {
		return outcome, nil
	}

	outcome.Resolved = true
	outcome.Fails = proposal.FailCount()
	outcome.Success = outcome.Fails < round.FailsRequired
	round.IsSuccess = boolPtr(outcome.Success)

	successes, fails := s.Score()

	switch {
	case fails >= WINNING_SCORE:
		s.finish(TEAM_EVIL, "三次任务失败")
		outcome.GameOver = true
		outcome.Winner = TEAM_EVIL
		return outcome, nil

	case successes >= WINNING_SCORE:
		if s.hasRole(ROLE_ASSASSIN) {
			s.Phase = PHASE_ASSASSINATION
			outcome.Assassination = true
			return outcome, nil
		}

		s.finish(TEAM_GOOD, "三次任务成功")
		outcome.GameOver = true
		outcome.Winner = TEAM_GOOD
		return outcome, nil
	}

	if round.Number >= TOTAL_ROUNDS {
		return outcome, nil
	}

	next, err := s.openRound(round.Number + 1)
	if err != nil {
		return MissionOutcome{}, err
	}

	outcome.NextRound = next
	outcome.NewLeader = s.rotateLeader()
	s.Phase = PHASE_PROPOSING

	return outcome, nil
}

func (s *Session) hasRole(role RoleID) bool {
	for _, p := range s.Participants {
		if p.Role == role {
			return true
		}
	}

	return false
}

// Assassinate 刺客指认梅林：命中则坏人获胜，否则好人获胜
func (s *Session) Assassinate(identity, targetID string) (AssassinationOutcome, error) {
	if err := s.requirePlaying(); err != nil {
		return AssassinationOutcome{}, err
	}

	if s.Phase != PHASE_ASSASSINATION {
		return AssassinationOutcome{}, WrongState("现在不是刺杀阶段")
	}

	assassin, err := s.requireParticipant(identity)
	if err != nil {
		return AssassinationOutcome{}, err
	}

	if assassin.Role != ROLE_ASSASSIN {
		return AssassinationOutcome{}, Unauthorized("只有刺客可以刺杀")
	}

	target := s.ParticipantByID(targetID)
	if target == nil {
		return AssassinationOutcome{}, NotFound("刺杀目标不存在")
	}

	if TeamOf(target.Role) != TEAM_GOOD {
		return AssassinationOutcome{}, Invalid("只能刺杀好人阵营的玩家")
	}

	outcome := AssassinationOutcome{
		Assassin: assassin,
		Target:   target,
		Hit:      target.Role == ROLE_MERLIN,
	}

	s.AssassinTarget = target.ID
	if outcome.Hit {
		outcome.Winner = TEAM_EVIL
		s.finish(TEAM_EVIL, "刺客刺中了梅林")
	} else {
		outcome.Winner = TEAM_GOOD
		s.finish(TEAM_GOOD, "刺客没有刺中梅林")
	}

	return outcome, nil
}
