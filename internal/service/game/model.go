package game

import (
	"slices"
	"time"
)

// 对局生命周期状态，FINISHED 与 ABORTED 为终态
type Status string

const (
	STATUS_WAITING  Status = "WAITING"
	STATUS_PLAYING  Status = "PLAYING"
	STATUS_FINISHED Status = "FINISHED"
	STATUS_ABORTED  Status = "ABORTED"
)

func (s Status) IsActive() bool {
	return s == STATUS_WAITING || s == STATUS_PLAYING
}

// 游戏进行中的阶段：
// 1. 大厅（Lobby）：玩家加入、准备，房主调整配置
// 2. 提名（Proposing）：队长提名出任务的队伍
// 3. 投票（Voting）：全体玩家对提名进行表决
// 4. 任务（Questing）：队员秘密提交任务结果
// 5. 刺杀（Assassination）：好人完成三次任务后，刺客指认梅林
// 6. 结束（Over）
type Phase string

const (
	PHASE_LOBBY         Phase = "LOBBY"
	PHASE_PROPOSING     Phase = "PROPOSING"
	PHASE_VOTING        Phase = "VOTING"
	PHASE_QUESTING      Phase = "QUESTING"
	PHASE_ASSASSINATION Phase = "ASSASSINATION"
	PHASE_OVER          Phase = "OVER"
)

type Decision string

const (
	DECISION_APPROVE Decision = "APPROVE"
	DECISION_REJECT  Decision = "REJECT"
)

func (d Decision) Valid() bool {
	return d == DECISION_APPROVE || d == DECISION_REJECT
}

type MissionResult string

const (
	RESULT_SUCCESS MissionResult = "SUCCESS"
	RESULT_FAIL    MissionResult = "FAIL"
)

func (r MissionResult) Valid() bool {
	return r == RESULT_SUCCESS || r == RESULT_FAIL
}

type Participant struct {
	ID       string
	Identity string
	Name     string
	IsHost   bool
	IsReady  bool
	// 座位序号，从 0 开始，对局内保持不变
	Index int
	// 开局前为空
	Role     RoleID
	JoinedAt time.Time
}

type Vote struct {
	PlayerID string
	Decision Decision
}

type MissionAction struct {
	PlayerID string
	Result   MissionResult
}

type Proposal struct {
	ID         string
	RoundID    string
	ProposerID string
	Team       []string
	// nil 表示仍在表决
	IsApproved *bool
	Votes      []Vote
	Actions    []MissionAction
	CreatedAt  time.Time
}

func (p *Proposal) IsPending() bool {
	return p.IsApproved == nil
}

func (p *Proposal) Approved() bool {
	return p.IsApproved != nil && *p.IsApproved
}

func (p *Proposal) HasMember(participantID string) bool {
	return slices.Contains(p.Team, participantID)
}

func (p *Proposal) VoteOf(participantID string) (Vote, bool) {
	for _, v := range p.Votes {
		if v.PlayerID == participantID {
			return v, true
		}
	}

	return Vote{}, false
}

func (p *Proposal) ActionOf(participantID string) (MissionAction, bool) {
	for _, a := range p.Actions {
		if a.PlayerID == participantID {
			return a, true
		}
	}

	return MissionAction{}, false
}

func (p *Proposal) Tally() (approvals, rejections int) {
	for _, v := range p.Votes {
		switch v.Decision {
		case DECISION_APPROVE:
			approvals++
		case DECISION_REJECT:
			rejections++
		}
	}

	return approvals, rejections
}

func (p *Proposal) FailCount() int {
	fails := 0
	for _, a := range p.Actions {
		if a.Result == RESULT_FAIL {
			fails++
		}
	}

	return fails
}

type Round struct {
	ID              string
	Number          int
	RequiredPlayers int
	FailsRequired   int
	// nil 表示尚未结算
	IsSuccess *bool
	Proposals []*Proposal
}

func (r *Round) IsResolved() bool {
	return r.IsSuccess != nil
}

func (r *Round) ApprovedProposal() *Proposal {
	for _, p := range r.Proposals {
		if p.Approved() {
			return p
		}
	}

	return nil
}

func (r *Round) Rejections() int {
	n := 0
	for _, p := range r.Proposals {
		if p.IsApproved != nil && !*p.IsApproved {
			n++
		}
	}

	return n
}

// 队长通过自然语言提名后、确认前暂存的队伍，按 (对局, 队长) 唯一
type PendingProposal struct {
	LeaderID  string
	Team      []string
	Text      string
	ExpiresAt time.Time
}

type Session struct {
	ID       string
	GroupRef string
	Status   Status
	Phase    Phase

	MaxPlayers  int
	ActiveRoles []RoleID

	CurrentLeaderIndex int
	CurrentRoundNumber int

	Participants []*Participant
	Rounds       []*Round
	Pending      []*PendingProposal

	Winner         Team
	WinReason      string
	AssassinTarget string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) Host() *Participant {
	for _, p := range s.Participants {
		if p.IsHost {
			return p
		}
	}

	return nil
}

func (s *Session) ParticipantByIdentity(identity string) *Participant {
	for _, p := range s.Participants {
		if p.Identity == identity {
			return p
		}
	}

	return nil
}

func (s *Session) ParticipantByID(id string) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (s *Session) ParticipantAt(index int) *Participant {
	for _, p := range s.Participants {
		if p.Index == index {
			return p
		}
	}

	return nil
}

func (s *Session) Leader() *Participant {
	if s.Status != STATUS_PLAYING && s.Status != STATUS_FINISHED {
		return nil
	}

	return s.ParticipantAt(s.CurrentLeaderIndex)
}

func (s *Session) RoundByNumber(n int) *Round {
	for _, r := range s.Rounds {
		if r.Number == n {
			return r
		}
	}

	return nil
}

func (s *Session) CurrentRound() *Round {
	return s.RoundByNumber(s.CurrentRoundNumber)
}

func (s *Session) FindProposal(id string) (*Round, *Proposal) {
	for _, r := range s.Rounds {
		for _, p := range r.Proposals {
			if p.ID == id {
				return r, p
			}
		}
	}

	return nil, nil
}

// ActiveProposal 返回当前回合中仍在表决或已通过但未结算的提名
func (s *Session) ActiveProposal() *Proposal {
	r := s.CurrentRound()
	if r == nil || r.IsResolved() {
		return nil
	}

	for _, p := range r.Proposals {
		if p.IsPending() || p.Approved() {
			return p
		}
	}

	return nil
}

// Score 统计已结算回合中成功与失败的任务数
func (s *Session) Score() (successes, fails int) {
	for _, r := range s.Rounds {
		if r.IsSuccess == nil {
			continue
		}

		if *r.IsSuccess {
			successes++
		} else {
			fails++
		}
	}

	return successes, fails
}

// Clone 深拷贝整个对局，存储层在副本上执行修改，失败时直接丢弃
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	c := *s
	c.ActiveRoles = slices.Clone(s.ActiveRoles)

	c.Participants = make([]*Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		cp := *p
		c.Participants = append(c.Participants, &cp)
	}

	c.Rounds = make([]*Round, 0, len(s.Rounds))
	for _, r := range s.Rounds {
		cr := *r
		cr.IsSuccess = cloneBool(r.IsSuccess)
		cr.Proposals = make([]*Proposal, 0, len(r.Proposals))
		for _, p := range r.Proposals {
			cp := *p
			cp.Team = slices.Clone(p.Team)
			cp.IsApproved = cloneBool(p.IsApproved)
			cp.Votes = slices.Clone(p.Votes)
			cp.Actions = slices.Clone(p.Actions)
			cr.Proposals = append(cr.Proposals, &cp)
		}
		c.Rounds = append(c.Rounds, &cr)
	}

	c.Pending = make([]*PendingProposal, 0, len(s.Pending))
	for _, pp := range s.Pending {
		cpp := *pp
		cpp.Team = slices.Clone(pp.Team)
		c.Pending = append(c.Pending, &cpp)
	}

	return &c
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}

	return boolPtr(*b)
}
