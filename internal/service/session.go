package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"avalon-be/internal/service/dto"
	"avalon-be/internal/service/game"
	"avalon-be/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DEFAULT_PENDING_TTL  = 2 * time.Minute
	DEFAULT_FINISHED_TTL = time.Hour
)

// SessionService 对外提供对局的命令与查询。每个命令在 store.UpdateSession
// 的互斥作用域内完成校验与修改，提交成功后再发送通知。
type SessionService struct {
	store      store.Store
	notifier   Notifier
	directory  IdentityDirectory
	parser     IntentParser
	intN       game.IntN
	now        func() time.Time
	pendingTTL time.Duration

	// 已结束对局的保留时长，<= 0 表示永久保留
	finishedTTL time.Duration
	tracer      trace.Tracer
}

type Option func(*SessionService)

func WithNotifier(n Notifier) Option {
	return func(ss *SessionService) { ss.notifier = n }
}

func WithDirectory(d IdentityDirectory) Option {
	return func(ss *SessionService) { ss.directory = d }
}

func WithIntentParser(p IntentParser) Option {
	return func(ss *SessionService) { ss.parser = p }
}

func WithRandom(intN game.IntN) Option {
	return func(ss *SessionService) { ss.intN = intN }
}

func WithClock(now func() time.Time) Option {
	return func(ss *SessionService) { ss.now = now }
}

func WithPendingTTL(ttl time.Duration) Option {
	return func(ss *SessionService) {
		if ttl > 0 {
			ss.pendingTTL = ttl
		}
	}
}

func WithFinishedTTL(ttl time.Duration) Option {
	return func(ss *SessionService) { ss.finishedTTL = ttl }
}

func NewSessionService(st store.Store, opts ...Option) *SessionService {
	ss := &SessionService{
		store:       st,
		notifier:    LogNotifier{},
		directory:   NewMemoryDirectory(),
		parser:      SeatNumberParser{},
		intN:        game.DefaultIntN,
		now:         time.Now,
		pendingTTL:  DEFAULT_PENDING_TTL,
		finishedTTL: DEFAULT_FINISHED_TTL,
		tracer:      otel.Tracer("avalon-be/internal/service"),
	}

	for _, opt := range opts {
		opt(ss)
	}

	return ss
}

func (ss *SessionService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ss.tracer.Start(ctx, "avalon.service/"+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// translateErr 把存储层错误转换为领域错误，领域错误原样返回
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case game.KindOf(err) != "":
		return err
	case errors.Is(err, store.ErrNotFound):
		return game.NotFound("对局不存在")
	case errors.Is(err, store.ErrAlreadyExists):
		return game.Conflict("记录已存在")
	default:
		return game.Storage("存储访问失败", err)
	}
}

// mutate 在对局的互斥作用域内执行 fn，提交成功后按顺序派发 fn 产生的通知
func (ss *SessionService) mutate(
	ctx context.Context,
	sessionID string,
	fn func(s *game.Session) ([]Notification, error),
) (*game.Session, error) {
	var (
		notes     []Notification
		committed *game.Session
	)

	err := ss.store.UpdateSession(ctx, sessionID, func(s *game.Session) error {
		n, err := fn(s)
		if err != nil {
			return err
		}

		s.UpdatedAt = ss.now()
		notes, committed = n, s
		return nil
	})
	if err != nil {
		return nil, translateErr(err)
	}

	ss.dispatch(ctx, notes)

	return committed, nil
}

func (ss *SessionService) dispatch(ctx context.Context, notes []Notification) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range notes {
		ss.notifier.Notify(ctx, n)
	}
}

func (ss *SessionService) sessionForProposal(ctx context.Context, proposalID string) (string, error) {
	id, err := ss.store.SessionIDForProposal(ctx, proposalID)
	if errors.Is(err, store.ErrNotFound) {
		return "", game.NotFound("提名不存在")
	}

	return id, translateErr(err)
}

func groupNote(s *game.Session, kind NotificationKind, text string, payload any) Notification {
	return Notification{
		Kind:      kind,
		SessionID: s.ID,
		GroupRef:  s.GroupRef,
		Text:      text,
		Payload:   payload,
	}
}

func privateNote(s *game.Session, identity string, kind NotificationKind, text string, payload any) Notification {
	n := groupNote(s, kind, text, payload)
	n.TargetIdentity = identity
	return n
}

func teamNames(s *game.Session, team []string) string {
	names := make([]string, 0, len(team))
	for _, id := range team {
		if p := s.ParticipantByID(id); p != nil {
			names = append(names, p.Name)
		}
	}

	return strings.Join(names, "、")
}

func (ss *SessionService) CreateSession(ctx context.Context, groupRef, hostIdentity string) (_ dto.LobbyStatus, err error) {
	ctx, span := ss.startSpan(ctx, "CreateSession", attribute.String("group_ref", groupRef))
	defer func() { endSpan(span, err) }()

	profile, err := ss.directory.Lookup(ctx, hostIdentity)
	if err != nil {
		return dto.LobbyStatus{}, game.Storage("查询玩家信息失败", err)
	}

	s, err := game.NewSession(groupRef, hostIdentity, profile.DisplayName, ss.now())
	if err != nil {
		return dto.LobbyStatus{}, err
	}

	if err := ss.store.CreateSession(ctx, s); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return dto.LobbyStatus{}, game.Conflict("该群组已有未结束的对局")
		}
		return dto.LobbyStatus{}, translateErr(err)
	}

	zap.L().Info(
		"创建对局",
		zap.String("session_id", s.ID),
		zap.String("group_ref", s.GroupRef),
		zap.String("identity", hostIdentity),
	)

	lobby := dto.NewLobbyStatus(s)
	ss.dispatch(ctx, []Notification{
		groupNote(s, NOTIFY_LOBBY_INVITE, fmt.Sprintf("%s 发起了一局阿瓦隆，快来加入", profile.DisplayName), lobby),
	})

	return lobby, nil
}

func (ss *SessionService) JoinSession(ctx context.Context, sessionID, identity string) (_ dto.LobbyStatus, err error) {
	ctx, span := ss.startSpan(ctx, "JoinSession", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	profile, err := ss.directory.Lookup(ctx, identity)
	if err != nil {
		return dto.LobbyStatus{}, game.Storage("查询玩家信息失败", err)
	}

	s, err := ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		p, err := s.Join(identity, profile.DisplayName, ss.now())
		if err != nil {
			return nil, err
		}

		return []Notification{
			groupNote(s, NOTIFY_LOBBY_UPDATE, fmt.Sprintf("%s 加入了对局", p.Name), dto.NewLobbyStatus(s)),
		}, nil
	})
	if err != nil {
		return dto.LobbyStatus{}, err
	}

	zap.L().Debug("玩家加入对局", zap.String("session_id", sessionID), zap.String("identity", identity))

	return dto.NewLobbyStatus(s), nil
}

func (ss *SessionService) ToggleReady(ctx context.Context, sessionID, identity string) (_ dto.LobbyStatus, err error) {
	ctx, span := ss.startSpan(ctx, "ToggleReady", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	s, err := ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		p, err := s.ToggleReady(identity)
		if err != nil {
			return nil, err
		}

		text := fmt.Sprintf("%s 已准备", p.Name)
		if !p.IsReady {
			text = fmt.Sprintf("%s 取消了准备", p.Name)
		}

		return []Notification{groupNote(s, NOTIFY_LOBBY_UPDATE, text, dto.NewLobbyStatus(s))}, nil
	})
	if err != nil {
		return dto.LobbyStatus{}, err
	}

	return dto.NewLobbyStatus(s), nil
}

func (ss *SessionService) UpdateMaxPlayers(ctx context.Context, sessionID, identity string, maxPlayers int) (_ dto.LobbyStatus, err error) {
	ctx, span := ss.startSpan(ctx, "UpdateMaxPlayers",
		attribute.String("session_id", sessionID),
		attribute.Int("max_players", maxPlayers),
	)
	defer func() { endSpan(span, err) }()

	s, err := ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		if err := s.UpdateMaxPlayers(identity, maxPlayers); err != nil {
			return nil, err
		}

		return []Notification{
			groupNote(s, NOTIFY_LOBBY_UPDATE, fmt.Sprintf("人数上限调整为 %d 人", maxPlayers), dto.NewLobbyStatus(s)),
		}, nil
	})
	if err != nil {
		return dto.LobbyStatus{}, err
	}

	return dto.NewLobbyStatus(s), nil
}

func (ss *SessionService) UpdateActiveRoles(ctx context.Context, sessionID, identity string, roles []string) (_ dto.LobbyStatus, err error) {
	ctx, span := ss.startSpan(ctx, "UpdateActiveRoles", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	roleIDs := make([]game.RoleID, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, game.RoleID(strings.ToUpper(strings.TrimSpace(r))))
	}

	s, err := ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		if err := s.UpdateActiveRoles(identity, roleIDs); err != nil {
			return nil, err
		}

		return []Notification{groupNote(s, NOTIFY_LOBBY_UPDATE, "角色配置已更新", dto.NewLobbyStatus(s))}, nil
	})
	if err != nil {
		return dto.LobbyStatus{}, err
	}

	return dto.NewLobbyStatus(s), nil
}

func (ss *SessionService) StartGame(ctx context.Context, sessionID, identity string) (_ dto.GameStatus, err error) {
	ctx, span := ss.startSpan(ctx, "StartGame", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	s, err := ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		if err := s.Start(identity, ss.intN); err != nil {
			return nil, err
		}

		notes := make([]Notification, 0, len(s.Participants)+2)
		notes = append(notes, groupNote(s, NOTIFY_TEXT, "游戏开始，角色已私信发送", dto.NewGameStatus(s)))

		for _, p := range s.Participants {
			info, err := dto.NewRoleInfo(s, p)
			if err != nil {
				return nil, err
			}
			notes = append(notes, privateNote(s, p.Identity, NOTIFY_TEXT,
				fmt.Sprintf("你的角色是 %s（%s）", info.RoleName, info.Team), info))
		}

		leader := s.Leader()
		round := s.CurrentRound()
		notes = append(notes, groupNote(s, NOTIFY_TEXT,
			fmt.Sprintf("第 %d 回合，请队长 %s 提名 %d 名队员", round.Number, leader.Name, round.RequiredPlayers), nil))

		return notes, nil
	})
	if err != nil {
		return dto.GameStatus{}, err
	}

	zap.L().Info(
		"对局开始",
		zap.String("session_id", s.ID),
		zap.Int("players", len(s.Participants)),
		zap.Int("leader_index", s.CurrentLeaderIndex),
	)

	return dto.NewGameStatus(s), nil
}

func (ss *SessionService) CloseSession(ctx context.Context, sessionID, identity string) (_ dto.LobbyStatus, err error) {
	ctx, span := ss.startSpan(ctx, "CloseSession", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	s, err := ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		if err := s.Close(identity); err != nil {
			return nil, err
		}

		return []Notification{groupNote(s, NOTIFY_GAME_OVER, "房主中止了对局", dto.NewGameStatus(s))}, nil
	})
	if err != nil {
		return dto.LobbyStatus{}, err
	}

	zap.L().Info("对局已中止", zap.String("session_id", sessionID), zap.String("identity", identity))

	return dto.NewLobbyStatus(s), nil
}

func (ss *SessionService) SubmitProposal(ctx context.Context, sessionID, identity string, team []string) (_ dto.ProposalView, err error) {
	ctx, span := ss.startSpan(ctx, "SubmitProposal", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	var proposal *game.Proposal
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		p, err := s.SubmitProposal(identity, team, ss.now())
		if err != nil {
			return nil, err
		}
		proposal = p

		return []Notification{votingCard(s, p)}, nil
	})
	if err != nil {
		return dto.ProposalView{}, err
	}

	zap.L().Info(
		"队长提交提名",
		zap.String("session_id", sessionID),
		zap.String("proposal_id", proposal.ID),
		zap.String("identity", identity),
	)

	return dto.NewProposalView(proposal), nil
}

func votingCard(s *game.Session, p *game.Proposal) Notification {
	return groupNote(s, NOTIFY_VOTING_CARD,
		fmt.Sprintf("队长提名了 %s，请所有人投票", teamNames(s, p.Team)),
		dto.NewProposalView(p))
}

func roster(s *game.Session) []RosterEntry {
	entries := make([]RosterEntry, 0, len(s.Participants))
	for _, p := range s.Participants {
		entries = append(entries, RosterEntry{Index: p.Index, Name: p.Name})
	}

	return entries
}

// StagePendingProposal 解析队长的自然语言提名并暂存，等待队长确认
func (ss *SessionService) StagePendingProposal(ctx context.Context, sessionID, identity, text string) (_ dto.PendingView, err error) {
	ctx, span := ss.startSpan(ctx, "StagePendingProposal", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	current, err := ss.store.GetSession(ctx, sessionID)
	if err != nil {
		return dto.PendingView{}, translateErr(err)
	}

	intent, err := ss.parser.Parse(ctx, text, roster(current))
	if err != nil {
		return dto.PendingView{}, game.Invalid("无法解析提名：" + err.Error())
	}
	if !intent.IsProposal {
		return dto.PendingView{}, game.Invalid("这条消息不是提名")
	}

	var pending *game.PendingProposal
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		team := make([]string, 0, len(intent.SeatIndices))
		for _, idx := range intent.SeatIndices {
			p := s.ParticipantAt(idx)
			if p == nil {
				return nil, game.Invalid(fmt.Sprintf("座位 %d 没有玩家", idx+1))
			}
			team = append(team, p.ID)
		}

		pp, err := s.StagePending(identity, team, text, ss.now().Add(ss.pendingTTL))
		if err != nil {
			return nil, err
		}
		pending = pp

		return []Notification{
			groupNote(s, NOTIFY_TEXT,
				fmt.Sprintf("队长想提名 %s，确认后开始投票", teamNames(s, pp.Team)),
				dto.NewPendingView(pp)),
		}, nil
	})
	if err != nil {
		return dto.PendingView{}, err
	}

	return dto.NewPendingView(pending), nil
}

func (ss *SessionService) ConfirmPendingProposal(ctx context.Context, sessionID, identity string) (_ dto.ProposalView, err error) {
	ctx, span := ss.startSpan(ctx, "ConfirmPendingProposal", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	var proposal *game.Proposal
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		p, err := s.ConfirmPending(identity, ss.now())
		if err != nil {
			return nil, err
		}
		proposal = p

		return []Notification{votingCard(s, p)}, nil
	})
	if err != nil {
		return dto.ProposalView{}, err
	}

	return dto.NewProposalView(proposal), nil
}

func (ss *SessionService) CancelPendingProposal(ctx context.Context, sessionID, identity string) (err error) {
	ctx, span := ss.startSpan(ctx, "CancelPendingProposal", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		return nil, s.CancelPending(identity)
	})

	return err
}

func (ss *SessionService) SubmitVote(ctx context.Context, proposalID, identity, decision string) (_ dto.VoteResult, err error) {
	ctx, span := ss.startSpan(ctx, "SubmitVote", attribute.String("proposal_id", proposalID))
	defer func() { endSpan(span, err) }()

	sessionID, err := ss.sessionForProposal(ctx, proposalID)
	if err != nil {
		return dto.VoteResult{}, err
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	var outcome game.VoteOutcome
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		o, err := s.SubmitVote(proposalID, identity, game.Decision(strings.ToUpper(decision)))
		if err != nil {
			return nil, err
		}
		outcome = o

		return voteNotes(s, o), nil
	})
	if err != nil {
		return dto.VoteResult{}, err
	}

	if outcome.Resolved {
		zap.L().Info(
			"提名表决结束",
			zap.String("session_id", sessionID),
			zap.String("proposal_id", proposalID),
			zap.Bool("approved", outcome.Approved),
			zap.Int("approvals", outcome.Approvals),
			zap.Int("rejections", outcome.Rejections),
		)
	}

	return dto.VoteResult{
		ProposalID: proposalID,
		Resolved:   outcome.Resolved,
		Approved:   outcome.Approved,
		Approvals:  outcome.Approvals,
		Rejections: outcome.Rejections,
		GameOver:   outcome.GameOver,
	}, nil
}

func voteNotes(s *game.Session, o game.VoteOutcome) []Notification {
	if !o.Resolved {
		return nil
	}

	view := dto.NewProposalView(o.Proposal)
	notes := make([]Notification, 0, len(o.Proposal.Team)+2)

	if o.Approved {
		notes = append(notes, groupNote(s, NOTIFY_VOTE_RESULT,
			fmt.Sprintf("提名通过（%d:%d），%s 出发执行任务", o.Approvals, o.Rejections, teamNames(s, o.Proposal.Team)),
			view))

		for _, id := range o.Proposal.Team {
			member := s.ParticipantByID(id)
			notes = append(notes, privateNote(s, member.Identity, NOTIFY_MISSION_CARD, "请提交任务结果", view))
		}

		return notes
	}

	notes = append(notes, groupNote(s, NOTIFY_VOTE_RESULT,
		fmt.Sprintf("提名被否决（%d:%d）", o.Approvals, o.Rejections), view))

	if o.GameOver {
		notes = append(notes, groupNote(s, NOTIFY_GAME_OVER, s.WinReason+"，坏人阵营获胜", dto.NewGameStatus(s)))
	} else if o.NewLeader != nil {
		notes = append(notes, groupNote(s, NOTIFY_TEXT, fmt.Sprintf("队长轮换为 %s", o.NewLeader.Name), nil))
	}

	return notes
}

func (ss *SessionService) SubmitMissionAction(ctx context.Context, proposalID, identity, result string) (_ dto.MissionResult, err error) {
	ctx, span := ss.startSpan(ctx, "SubmitMissionAction", attribute.String("proposal_id", proposalID))
	defer func() { endSpan(span, err) }()

	sessionID, err := ss.sessionForProposal(ctx, proposalID)
	if err != nil {
		return dto.MissionResult{}, err
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	var outcome game.MissionOutcome
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		o, err := s.SubmitMissionAction(proposalID, identity, game.MissionResult(strings.ToUpper(result)))
		if err != nil {
			return nil, err
		}
		outcome = o

		return missionNotes(s, o), nil
	})
	if err != nil {
		return dto.MissionResult{}, err
	}

	logMission(sessionID, outcome)

	return missionResult(outcome), nil
}

// ResolveMission 重新执行结算检查，回合已结算时不做任何修改
func (ss *SessionService) ResolveMission(ctx context.Context, proposalID string) (_ dto.MissionResult, err error) {
	ctx, span := ss.startSpan(ctx, "ResolveMission", attribute.String("proposal_id", proposalID))
	defer func() { endSpan(span, err) }()

	sessionID, err := ss.sessionForProposal(ctx, proposalID)
	if err != nil {
		return dto.MissionResult{}, err
	}

	var outcome game.MissionOutcome
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		o, err := s.ResolveMission(proposalID)
		if err != nil {
			return nil, err
		}
		outcome = o

		return missionNotes(s, o), nil
	})
	if err != nil {
		return dto.MissionResult{}, err
	}

	logMission(sessionID, outcome)

	return missionResult(outcome), nil
}

func logMission(sessionID string, o game.MissionOutcome) {
	if !o.Resolved {
		return
	}

	zap.L().Info(
		"任务结算",
		zap.String("session_id", sessionID),
		zap.Int("round", o.Round.Number),
		zap.Bool("success", o.Success),
		zap.Int("fails", o.Fails),
		zap.Bool("game_over", o.GameOver),
	)
}

func missionResult(o game.MissionOutcome) dto.MissionResult {
	res := dto.MissionResult{
		Resolved:      o.Resolved,
		Success:       o.Success,
		Fails:         o.Fails,
		Assassination: o.Assassination,
		GameOver:      o.GameOver,
		Winner:        string(o.Winner),
	}
	if o.Proposal != nil {
		res.ProposalID = o.Proposal.ID
	}
	if o.Round != nil {
		res.Round = o.Round.Number
	}
	if o.NextRound != nil {
		res.NextRound = o.NextRound.Number
	}

	return res
}

func missionNotes(s *game.Session, o game.MissionOutcome) []Notification {
	if !o.Resolved {
		return nil
	}

	text := fmt.Sprintf("第 %d 回合任务成功", o.Round.Number)
	if !o.Success {
		text = fmt.Sprintf("第 %d 回合任务失败，共 %d 张失败票", o.Round.Number, o.Fails)
	}

	notes := []Notification{groupNote(s, NOTIFY_MISSION_RESULT, text, dto.NewRoundView(o.Round))}

	switch {
	case o.GameOver:
		notes = append(notes, groupNote(s, NOTIFY_GAME_OVER, s.WinReason, dto.NewGameStatus(s)))

	case o.Assassination:
		notes = append(notes, groupNote(s, NOTIFY_TEXT, "好人完成了三次任务，请刺客指认梅林", nil))

	case o.NextRound != nil && o.NewLeader != nil:
		notes = append(notes, groupNote(s, NOTIFY_TEXT,
			fmt.Sprintf("第 %d 回合，请队长 %s 提名 %d 名队员", o.NextRound.Number, o.NewLeader.Name, o.NextRound.RequiredPlayers),
			nil))
	}

	return notes
}

func (ss *SessionService) Assassinate(ctx context.Context, sessionID, identity, targetID string) (_ dto.AssassinationResult, err error) {
	ctx, span := ss.startSpan(ctx, "Assassinate", attribute.String("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	var outcome game.AssassinationOutcome
	_, err = ss.mutate(ctx, sessionID, func(s *game.Session) ([]Notification, error) {
		o, err := s.Assassinate(identity, targetID)
		if err != nil {
			return nil, err
		}
		outcome = o

		return []Notification{
			groupNote(s, NOTIFY_GAME_OVER, fmt.Sprintf("刺客指认了 %s，%s", o.Target.Name, s.WinReason), dto.NewGameStatus(s)),
		}, nil
	})
	if err != nil {
		return dto.AssassinationResult{}, err
	}

	zap.L().Info(
		"刺杀结算",
		zap.String("session_id", sessionID),
		zap.Bool("hit", outcome.Hit),
		zap.String("winner", string(outcome.Winner)),
	)

	return dto.AssassinationResult{
		TargetID: outcome.Target.ID,
		Hit:      outcome.Hit,
		Winner:   string(outcome.Winner),
	}, nil
}

func (ss *SessionService) GetLobbyStatus(ctx context.Context, sessionID string) (dto.LobbyStatus, error) {
	s, err := ss.store.GetSession(ctx, sessionID)
	if err != nil {
		return dto.LobbyStatus{}, translateErr(err)
	}

	return dto.NewLobbyStatus(s), nil
}

// GetActiveSession 群组没有未结束的对局时返回 nil
func (ss *SessionService) GetActiveSession(ctx context.Context, groupRef string) (*dto.LobbyStatus, error) {
	s, err := ss.store.GetActiveSession(ctx, groupRef)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(err)
	}

	lobby := dto.NewLobbyStatus(s)
	return &lobby, nil
}

func (ss *SessionService) GetRoleInfo(ctx context.Context, sessionID, identity string) (dto.RoleInfo, error) {
	s, err := ss.store.GetSession(ctx, sessionID)
	if err != nil {
		return dto.RoleInfo{}, translateErr(err)
	}

	p := s.ParticipantByIdentity(identity)
	if p == nil {
		return dto.RoleInfo{}, game.NotFound("你不在这局游戏中")
	}

	return dto.NewRoleInfo(s, p)
}

func (ss *SessionService) GetGameStatus(ctx context.Context, sessionID string) (dto.GameStatus, error) {
	s, err := ss.store.GetSession(ctx, sessionID)
	if err != nil {
		return dto.GameStatus{}, translateErr(err)
	}

	return dto.NewGameStatus(s), nil
}

// PurgeExpiredPending 清理过期的暂存提名，由后台清理循环调用
func (ss *SessionService) PurgeExpiredPending(ctx context.Context) (int, error) {
	n, err := ss.store.PurgeExpiredPending(ctx, ss.now())
	if err != nil {
		return 0, translateErr(err)
	}

	return n, nil
}

// PurgeFinishedSessions 删除超过保留时长的已结束对局
func (ss *SessionService) PurgeFinishedSessions(ctx context.Context) (int, error) {
	if ss.finishedTTL <= 0 {
		return 0, nil
	}

	n, err := ss.store.PurgeFinished(ctx, ss.now().Add(-ss.finishedTTL))
	if err != nil {
		return 0, translateErr(err)
	}

	return n, nil
}
