package game

import (
	"slices"
	"strings"
	"time"
)

// NewSession 创建等待中的对局，房主坐在 0 号位且默认已准备
func NewSession(groupRef, hostIdentity, hostName string, now time.Time) (*Session, error) {
	groupRef = strings.TrimSpace(groupRef)
	if groupRef == "" {
		return nil, Invalid("群组标识不能为空")
	}
	if strings.TrimSpace(hostIdentity) == "" {
		return nil, Invalid("房主身份不能为空")
	}

	host := &Participant{
		ID:       GenID(),
		Identity: hostIdentity,
		Name:     hostName,
		IsHost:   true,
		IsReady:  true,
		Index:    0,
		JoinedAt: now,
	}

	return &Session{
		ID:           GenID(),
		GroupRef:     groupRef,
		Status:       STATUS_WAITING,
		Phase:        PHASE_LOBBY,
		MaxPlayers:   DEFAULT_MAX_PLAYERS,
		ActiveRoles:  DefaultRoles(DEFAULT_MAX_PLAYERS),
		Participants: []*Participant{host},
		Rounds:       make([]*Round, 0, TOTAL_ROUNDS),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Session) requireWaiting() error {
	if s.Status != STATUS_WAITING {
		return WrongState("对局已开始或已结束")
	}

	return nil
}

func (s *Session) requirePlaying() error {
	if s.Status != STATUS_PLAYING {
		return WrongState("对局不在进行中")
	}

	return nil
}

func (s *Session) requireParticipant(identity string) (*Participant, error) {
	p := s.ParticipantByIdentity(identity)
	if p == nil {
		return nil, NotFound("你不在这局游戏中")
	}

	return p, nil
}

func (s *Session) requireHost(identity string) (*Participant, error) {
	p, err := s.requireParticipant(identity)
	if err != nil {
		return nil, err
	}

	if !p.IsHost {
		return nil, Unauthorized("只有房主可以执行该操作")
	}

	return p, nil
}

func (s *Session) Join(identity, name string, now time.Time) (*Participant, error) {
	if err := s.requireWaiting(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(identity) == "" {
		return nil, Invalid("玩家身份不能为空")
	}

	if s.ParticipantByIdentity(identity) != nil {
		return nil, Conflict("你已经在这局游戏中")
	}

	if len(s.Participants) >= s.MaxPlayers {
		return nil, Conflict("房间已满")
	}

	p := &Participant{
		ID:       GenID(),
		Identity: identity,
		Name:     name,
		Index:    len(s.Participants),
		JoinedAt: now,
	}

	s.Participants = append(s.Participants, p)

	return p, nil
}

// ToggleReady 准备状态只在大厅阶段有意义
func (s *Session) ToggleReady(identity string) (*Participant, error) {
	if err := s.requireWaiting(); err != nil {
		return nil, err
	}

	p, err := s.requireParticipant(identity)
	if err != nil {
		return nil, err
	}

	p.IsReady = !p.IsReady

	return p, nil
}

// UpdateMaxPlayers 调整人数上限，同时将角色配置重置为该人数的默认配置
func (s *Session) UpdateMaxPlayers(identity string, maxPlayers int) error {
	if err := s.requireWaiting(); err != nil {
		return err
	}

	if _, err := s.requireHost(identity); err != nil {
		return err
	}

	if maxPlayers < MIN_PLAYERS || maxPlayers > MAX_PLAYERS {
		return Invalid("人数上限必须在 5 到 10 之间")
	}

	if maxPlayers < len(s.Participants) {
		return Invalid("人数上限不能低于当前人数")
	}

	s.MaxPlayers = maxPlayers
	s.ActiveRoles = DefaultRoles(maxPlayers)

	return nil
}

func (s *Session) UpdateActiveRoles(identity string, roles []RoleID) error {
	if err := s.requireWaiting(); err != nil {
		return err
	}

	if _, err := s.requireHost(identity); err != nil {
		return err
	}

	if err := ValidateRoleSet(roles, s.MaxPlayers); err != nil {
		return err
	}

	s.ActiveRoles = slices.Clone(roles)

	return nil
}

func (s *Session) allReady() bool {
	for _, p := range s.Participants {
		if !p.IsReady {
			return false
		}
	}

	return true
}

// IsStartable 报告房主现在能否开局
func (s *Session) IsStartable() bool {
	n := len(s.Participants)

	return s.Status == STATUS_WAITING &&
		n >= MIN_PLAYERS && n <= MAX_PLAYERS &&
		n == s.MaxPlayers &&
		s.allReady() &&
		ValidateRoleSet(s.ActiveRoles, n) == nil
}

// Start 分配角色、随机选出首任队长并开启第一回合，只能从等待状态触发一次
func (s *Session) Start(identity string, intN IntN) error {
	if err := s.requireWaiting(); err != nil {
		return err
	}

	if _, err := s.requireHost(identity); err != nil {
		return err
	}

	n := len(s.Participants)
	if n < MIN_PLAYERS || n > MAX_PLAYERS {
		return Invalid("开局人数必须在 5 到 10 之间")
	}

	if n != s.MaxPlayers {
		return Invalid("人数未达到设定的人数上限")
	}

	if !s.allReady() {
		return WrongState("还有玩家没有准备")
	}

	if err := ValidateRoleSet(s.ActiveRoles, n); err != nil {
		return err
	}

	if err := AssignRoles(s.seated(), s.ActiveRoles, intN); err != nil {
		return err
	}

	s.Status = STATUS_PLAYING
	s.Phase = PHASE_PROPOSING
	s.CurrentLeaderIndex = intN(n)

	_, err := s.openRound(1)

	return err
}

// Close 房主中止对局，等待中与进行中的对局均可中止
func (s *Session) Close(identity string) error {
	if !s.Status.IsActive() {
		return WrongState("对局已经结束")
	}

	if _, err := s.requireHost(identity); err != nil {
		return err
	}

	s.Status = STATUS_ABORTED
	s.Phase = PHASE_OVER
	s.Pending = nil

	return nil
}

// seated 返回按座位排序的玩家列表
func (s *Session) seated() []*Participant {
	seated := slices.Clone(s.Participants)
	slices.SortFunc(seated, func(a, b *Participant) int {
		return a.Index - b.Index
	})

	return seated
}

// openRound 在不存在时创建回合，已存在则原样返回
func (s *Session) openRound(number int) (*Round, error) {
	if r := s.RoundByNumber(number); r != nil {
		return r, nil
	}

	quest, err := QuestFor(len(s.Participants), number)
	if err != nil {
		return nil, err
	}

	r := &Round{
		ID:              GenID(),
		Number:          number,
		RequiredPlayers: quest.RequiredPlayers,
		FailsRequired:   quest.FailsRequired,
		Proposals:       make([]*Proposal, 0),
	}

	s.Rounds = append(s.Rounds, r)
	s.CurrentRoundNumber = number

	return r, nil
}

func (s *Session) finish(winner Team, reason string) {
	s.Status = STATUS_FINISHED
	s.Phase = PHASE_OVER
	s.Winner = winner
	s.WinReason = reason
	s.Pending = nil
}

func (s *Session) rotateLeader() *Participant {
	s.CurrentLeaderIndex = (s.CurrentLeaderIndex + 1) % len(s.Participants)
	return s.ParticipantAt(s.CurrentLeaderIndex)
}
