package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"avalon-be/internal/service/game"
	"avalon-be/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lobby, err := f.svc.CreateSession(ctx, "group-1", ident(0))
	require.NoError(t, err)
	assert.Equal(t, string(game.STATUS_WAITING), lobby.Status)
	require.Len(t, lobby.Players, 1)
	assert.Equal(t, "玩家0", lobby.Players[0].Name)
	assert.True(t, lobby.Players[0].IsHost)
	assert.True(t, lobby.Players[0].IsReady)
	assert.Len(t, f.rec.ofKind(NOTIFY_LOBBY_INVITE), 1)

	_, err = f.svc.CreateSession(ctx, "group-1", ident(1))
	assert.ErrorIs(t, err, game.ErrConflict)

	active, err := f.svc.GetActiveSession(ctx, "group-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, lobby.SessionID, active.SessionID)

	_, err = f.svc.CloseSession(ctx, lobby.SessionID, ident(0))
	require.NoError(t, err)

	active, err = f.svc.GetActiveSession(ctx, "group-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = f.svc.CreateSession(ctx, "group-1", ident(1))
	assert.NoError(t, err)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.JoinSession(ctx, "missing", ident(1))
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = f.svc.GetLobbyStatus(ctx, "missing")
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = f.svc.SubmitVote(ctx, "missing", ident(1), "APPROVE")
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestLobbyConfiguration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lobby, err := f.svc.CreateSession(ctx, "group-1", ident(0))
	require.NoError(t, err)

	_, err = f.svc.UpdateMaxPlayers(ctx, lobby.SessionID, ident(1), 7)
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = f.svc.JoinSession(ctx, lobby.SessionID, ident(1))
	require.NoError(t, err)

	_, err = f.svc.UpdateMaxPlayers(ctx, lobby.SessionID, ident(1), 7)
	assert.ErrorIs(t, err, game.ErrAuthorization)

	updated, err := f.svc.UpdateMaxPlayers(ctx, lobby.SessionID, ident(0), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.MaxPlayers)
	assert.Len(t, updated.ActiveRoles, 7)

	_, err = f.svc.UpdateActiveRoles(ctx, lobby.SessionID, ident(0), []string{"merlin", "assassin"})
	assert.ErrorIs(t, err, game.ErrValidation)

	updated, err = f.svc.UpdateActiveRoles(ctx, lobby.SessionID, ident(0),
		[]string{"merlin", "servant", "servant", "servant", "assassin", "minion", "minion"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MERLIN", "SERVANT", "SERVANT", "SERVANT", "ASSASSIN", "MINION", "MINION"}, updated.ActiveRoles)
	assert.False(t, updated.IsStartable)
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.lobby(t)

	lobby, err := f.svc.GetLobbyStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, lobby.IsStartable)

	_, err = f.svc.GetRoleInfo(ctx, id, ident(0))
	assert.ErrorIs(t, err, game.ErrState)

	_, err = f.svc.StartGame(ctx, id, ident(1))
	assert.ErrorIs(t, err, game.ErrAuthorization)

	f.rec.reset()
	status, err := f.svc.StartGame(ctx, id, ident(0))
	require.NoError(t, err)
	assert.Equal(t, string(game.STATUS_PLAYING), status.Status)
	assert.Equal(t, string(game.PHASE_PROPOSING), status.Phase)
	assert.Equal(t, 1, status.CurrentRound)
	require.Len(t, status.Rounds, 1)
	assert.Equal(t, 2, status.Rounds[0].RequiredPlayers)

	// 每位玩家都私下收到自己的角色
	private := make(map[string]bool)
	for _, n := range f.rec.ofKind(NOTIFY_TEXT) {
		if n.IsPrivate() {
			private[n.TargetIdentity] = true
		}
	}
	assert.Len(t, private, 5)

	_, err = f.svc.StartGame(ctx, id, ident(0))
	assert.ErrorIs(t, err, game.ErrState)

	_, err = f.svc.JoinSession(ctx, id, ident(5))
	assert.ErrorIs(t, err, game.ErrState)
}

func TestGetRoleInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)

	merlin, err := f.svc.GetRoleInfo(ctx, id, ident(0))
	require.NoError(t, err)
	assert.Equal(t, string(game.ROLE_MERLIN), merlin.Role)
	assert.Equal(t, string(game.TEAM_GOOD), merlin.Team)
	require.Len(t, merlin.Visible, 2)
	for _, v := range merlin.Visible {
		assert.Equal(t, string(game.LABEL_EVIL), v.Label)
		assert.Contains(t, []int{3, 4}, v.Index)
	}

	servant, err := f.svc.GetRoleInfo(ctx, id, ident(2))
	require.NoError(t, err)
	assert.Empty(t, servant.Visible)

	_, err = f.svc.GetRoleInfo(ctx, id, "stranger")
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestProposalVoteAndMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)

	_, err := f.svc.SubmitProposal(ctx, id, ident(0), []string{f.seatID(t, id, 0), f.seatID(t, id, 1)})
	assert.ErrorIs(t, err, game.ErrAuthorization)

	team := []string{f.seatID(t, id, 0), f.seatID(t, id, 1)}
	proposal, err := f.svc.SubmitProposal(ctx, id, ident(4), team)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", proposal.Status)
	assert.Len(t, f.rec.ofKind(NOTIFY_VOTING_CARD), 1)

	// 3 票同意 2 票反对
	decisions := []string{"APPROVE", "approve", "APPROVE", "REJECT", "REJECT"}
	for i, d := range decisions {
		res, err := f.svc.SubmitVote(ctx, proposal.ID, ident(i), d)
		require.NoError(t, err)
		assert.Equal(t, i == 4, res.Resolved)
		if res.Resolved {
			assert.True(t, res.Approved)
			assert.Equal(t, 3, res.Approvals)
			assert.Equal(t, 2, res.Rejections)
		}
	}

	_, err = f.svc.SubmitVote(ctx, proposal.ID, ident(0), "REJECT")
	assert.ErrorIs(t, err, game.ErrState)

	cards := f.rec.ofKind(NOTIFY_MISSION_CARD)
	require.Len(t, cards, 2)
	assert.ElementsMatch(t, []string{ident(0), ident(1)}, []string{cards[0].TargetIdentity, cards[1].TargetIdentity})

	status, err := f.svc.GetGameStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ident(4), status.Leader.Identity)
	require.NotNil(t, status.ActiveProposal)
	assert.Equal(t, "APPROVED", status.ActiveProposal.Status)
	assert.Equal(t, "APPROVE", status.ActiveProposal.Votes[f.seatID(t, id, 0)])

	_, err = f.svc.SubmitMissionAction(ctx, proposal.ID, ident(2), "SUCCESS")
	assert.ErrorIs(t, err, game.ErrAuthorization)

	_, err = f.svc.SubmitMissionAction(ctx, proposal.ID, ident(0), "FAIL")
	assert.ErrorIs(t, err, game.ErrAuthorization)

	res, err := f.svc.SubmitMissionAction(ctx, proposal.ID, ident(0), "SUCCESS")
	require.NoError(t, err)
	assert.False(t, res.Resolved)

	_, err = f.svc.SubmitMissionAction(ctx, proposal.ID, ident(0), "SUCCESS")
	assert.ErrorIs(t, err, game.ErrConflict)

	res, err = f.svc.SubmitMissionAction(ctx, proposal.ID, ident(1), "success")
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.NextRound)

	status, err = f.svc.GetGameStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CurrentRound)
	assert.Equal(t, 1, status.Successes)
	assert.Equal(t, ident(0), status.Leader.Identity)
	assert.Nil(t, status.ActiveProposal)
	assert.Len(t, f.rec.ofKind(NOTIFY_MISSION_RESULT), 1)
}

func TestConcurrentFinalMissionActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)
	proposal := f.approvedProposal(t, id, 0, 3)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		resolved int
	)
	for _, seat := range []int{0, 3} {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			res, err := f.svc.SubmitMissionAction(ctx, proposal.ID, ident(seat), "SUCCESS")
			assert.NoError(t, err)
			if res.Resolved {
				mu.Lock()
				resolved++
				mu.Unlock()
			}
		}(seat)
	}
	wg.Wait()

	assert.Equal(t, 1, resolved)

	// 结算已完成，重复检查不会再开新回合
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.ResolveMission(ctx, proposal.ID)
			assert.NoError(t, err)
			assert.False(t, res.Resolved)
		}()
	}
	wg.Wait()

	status, err := f.svc.GetGameStatus(ctx, id)
	require.NoError(t, err)
	assert.Len(t, status.Rounds, 2)
	assert.Equal(t, 2, status.CurrentRound)
	assert.Len(t, f.rec.ofKind(NOTIFY_MISSION_RESULT), 1)
}

func TestRejectionRotatesLeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)

	proposal, err := f.svc.SubmitProposal(ctx, id, ident(4), []string{f.seatID(t, id, 0), f.seatID(t, id, 1)})
	require.NoError(t, err)

	for i, d := range []string{"APPROVE", "APPROVE", "REJECT", "REJECT", "REJECT"} {
		_, err := f.svc.SubmitVote(ctx, proposal.ID, ident(i), d)
		require.NoError(t, err)
	}

	status, err := f.svc.GetGameStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ident(0), status.Leader.Identity)
	assert.Equal(t, string(game.PHASE_PROPOSING), status.Phase)
	assert.Equal(t, 1, status.Rounds[0].Rejections)

	_, err = f.svc.SubmitVote(ctx, "nope", ident(0), "APPROVE")
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = f.svc.SubmitVote(ctx, proposal.ID, ident(0), "MAYBE")
	assert.ErrorIs(t, err, game.ErrState)
}

func TestAssassinationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)

	for round := 0; round < 3; round++ {
		status, err := f.svc.GetGameStatus(ctx, id)
		require.NoError(t, err)

		seats := []int{0, 1, 2}[:status.Rounds[len(status.Rounds)-1].RequiredPlayers]
		proposal := f.approvedProposal(t, id, seats...)
		for _, seat := range seats {
			_, err := f.svc.SubmitMissionAction(ctx, proposal.ID, ident(seat), "SUCCESS")
			require.NoError(t, err)
		}
	}

	status, err := f.svc.GetGameStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(game.PHASE_ASSASSINATION), status.Phase)
	assert.Equal(t, 3, status.Successes)

	_, err = f.svc.Assassinate(ctx, id, ident(4), f.seatID(t, id, 0))
	assert.ErrorIs(t, err, game.ErrAuthorization)

	res, err := f.svc.Assassinate(ctx, id, ident(3), f.seatID(t, id, 0))
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, string(game.TEAM_EVIL), res.Winner)

	status, err = f.svc.GetGameStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(game.STATUS_FINISHED), status.Status)
	assert.Len(t, status.Roles, 5)
	assert.Len(t, f.rec.ofKind(NOTIFY_GAME_OVER), 1)
}

func TestPendingProposalLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)

	_, err := f.svc.StagePendingProposal(ctx, id, ident(4), "今天天气不错")
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = f.svc.StagePendingProposal(ctx, id, ident(4), "我提名 1 号和 9 号")
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = f.svc.StagePendingProposal(ctx, id, ident(0), "我提名 1 号和 2 号")
	assert.ErrorIs(t, err, game.ErrAuthorization)

	pending, err := f.svc.StagePendingProposal(ctx, id, ident(4), "我提名 1 号和 2 号")
	require.NoError(t, err)
	assert.Equal(t, []string{f.seatID(t, id, 0), f.seatID(t, id, 1)}, pending.Team)
	assert.Equal(t, testNow.Add(2*time.Minute).UnixMilli(), pending.ExpiresAt)

	// 过期后无法确认，清理协程会删除记录
	f.clock.Advance(3 * time.Minute)
	_, err = f.svc.ConfirmPendingProposal(ctx, id, ident(4))
	assert.ErrorIs(t, err, game.ErrNotFound)

	sweeper := NewSweeper(f.svc, time.Minute)
	assert.Equal(t, 1, sweeper.SweepOnce(ctx))
	assert.Zero(t, sweeper.SweepOnce(ctx))

	_, err = f.svc.StagePendingProposal(ctx, id, ident(4), "派 玩家2 和 玩家3 出任务")
	require.NoError(t, err)

	proposal, err := f.svc.ConfirmPendingProposal(ctx, id, ident(4))
	require.NoError(t, err)
	assert.Equal(t, []string{f.seatID(t, id, 2), f.seatID(t, id, 3)}, proposal.Team)

	_, err = f.svc.ConfirmPendingProposal(ctx, id, ident(4))
	assert.ErrorIs(t, err, game.ErrNotFound)

	assert.ErrorIs(t, f.svc.CancelPendingProposal(ctx, id, ident(4)), game.ErrNotFound)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n Notification) {
	m.Called(ctx, n)
}

func TestNotificationsAfterCommit(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.Kind == NOTIFY_LOBBY_INVITE && n.GroupRef == "group-9" && !n.IsPrivate()
	})).Once()

	svc := NewSessionService(store.NewMemoryStore(), WithNotifier(notifier))
	lobby, err := svc.CreateSession(context.Background(), "group-9", "host")
	require.NoError(t, err)

	// 被拒绝的操作不产生通知
	_, err = svc.UpdateMaxPlayers(context.Background(), lobby.SessionID, "host", 42)
	assert.ErrorIs(t, err, game.ErrValidation)

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

type brokenStore struct {
	store.Store
	err error
}

func (b brokenStore) UpdateSession(context.Context, string, func(*game.Session) error) error {
	return b.err
}

func (b brokenStore) GetSession(context.Context, string) (*game.Session, error) {
	return nil, b.err
}

func TestStorageFailuresAreDistinguishable(t *testing.T) {
	svc := NewSessionService(brokenStore{Store: store.NewMemoryStore(), err: errors.New("connection refused")})

	_, err := svc.JoinSession(context.Background(), "any", "U01")
	assert.ErrorIs(t, err, game.ErrStorage)
	assert.NotErrorIs(t, err, game.ErrNotFound)

	_, err = svc.GetGameStatus(context.Background(), "any")
	assert.ErrorIs(t, err, game.ErrStorage)
}

func TestToggleReadyRejectedAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.lobby(t)

	_, err := f.svc.CloseSession(ctx, id, ident(0))
	require.NoError(t, err)
	f.rec.reset()

	_, err = f.svc.ToggleReady(ctx, id, ident(1))
	assert.ErrorIs(t, err, game.ErrState)
	assert.Empty(t, f.rec.ofKind(NOTIFY_LOBBY_UPDATE))

	lobby, err := f.svc.GetLobbyStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, lobby.Players[1].IsReady)
}

func TestPurgeFinishedSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.started(t)

	_, err := f.svc.CloseSession(ctx, id, ident(0))
	require.NoError(t, err)

	n, err := f.svc.PurgeFinishedSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(DEFAULT_FINISHED_TTL + time.Minute)

	sweeper := NewSweeper(f.svc, time.Minute)
	assert.Equal(t, 1, sweeper.SweepOnce(ctx))

	_, err = f.svc.GetLobbyStatus(ctx, id)
	assert.ErrorIs(t, err, game.ErrNotFound)

	// 群组可以重新开一局
	_, err = f.svc.CreateSession(ctx, "group-1", ident(0))
	assert.NoError(t, err)
}

func TestPurgeFinishedSessionsDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewSessionService(f.store, WithClock(f.clock.Now), WithFinishedTTL(0))

	lobby, err := svc.CreateSession(ctx, "group-keep", ident(0))
	require.NoError(t, err)
	_, err = svc.CloseSession(ctx, lobby.SessionID, ident(0))
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	n, err := svc.PurgeFinishedSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.GetLobbyStatus(ctx, lobby.SessionID)
	assert.NoError(t, err)
}
