package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"avalon-be/internal/service/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 持久化层只保留毫秒精度
var contractNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func keepOrder(n int) int { return n - 1 }

func newLobby(t *testing.T, group string, players int) *game.Session {
	t.Helper()

	s, err := game.NewSession(group, "host", "房主", contractNow)
	require.NoError(t, err)

	for i := 1; i < players; i++ {
		_, err := s.Join(fmt.Sprintf("p%d", i), fmt.Sprintf("玩家%d", i), contractNow)
		require.NoError(t, err)
	}

	return s
}

func newPlaying(t *testing.T, group string) *game.Session {
	t.Helper()

	s := newLobby(t, group, game.DEFAULT_MAX_PLAYERS)
	for _, p := range s.Participants {
		if !p.IsReady {
			_, err := s.ToggleReady(p.Identity)
			require.NoError(t, err)
		}
	}
	require.NoError(t, s.Start("host", keepOrder))

	return s
}

// runStoreContract 对任意 Store 实现执行同一组行为检查
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		st := open(t)
		s := newLobby(t, "group-create", 3)
		require.NoError(t, st.CreateSession(ctx, s))

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, "group-create", got.GroupRef)
		assert.Equal(t, game.STATUS_WAITING, got.Status)
		assert.Equal(t, game.PHASE_LOBBY, got.Phase)
		assert.Equal(t, game.DEFAULT_MAX_PLAYERS, got.MaxPlayers)
		assert.Equal(t, s.ActiveRoles, got.ActiveRoles)
		assert.True(t, got.CreatedAt.Equal(contractNow))
		require.Len(t, got.Participants, 3)
		for i, p := range got.Participants {
			assert.Equal(t, i, p.Index)
			assert.Equal(t, s.Participants[i].ID, p.ID)
			assert.Equal(t, s.Participants[i].Identity, p.Identity)
			assert.Equal(t, s.Participants[i].IsHost, p.IsHost)
		}

		active, err := st.GetActiveSession(ctx, "group-create")
		require.NoError(t, err)
		assert.Equal(t, s.ID, active.ID)
	})

	t.Run("missing session", func(t *testing.T) {
		st := open(t)

		_, err := st.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = st.GetActiveSession(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = st.SessionIDForProposal(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		err = st.UpdateSession(ctx, "nope", func(*game.Session) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("one active session per group", func(t *testing.T) {
		st := open(t)
		first := newLobby(t, "group-dup", 1)
		require.NoError(t, st.CreateSession(ctx, first))

		second := newLobby(t, "group-dup", 1)
		assert.ErrorIs(t, st.CreateSession(ctx, second), ErrAlreadyExists)

		require.NoError(t, st.UpdateSession(ctx, first.ID, func(s *game.Session) error {
			return s.Close("host")
		}))

		_, err := st.GetActiveSession(ctx, "group-dup")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, st.CreateSession(ctx, second))

		closed, err := st.GetSession(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, game.STATUS_ABORTED, closed.Status)
	})

	t.Run("failed update is discarded", func(t *testing.T) {
		st := open(t)
		s := newLobby(t, "group-rollback", 1)
		require.NoError(t, st.CreateSession(ctx, s))

		boom := errors.New("boom")
		err := st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
			if _, err := s.Join("p1", "玩家1", contractNow); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, got.Participants, 1)
	})

	t.Run("game progress round trips", func(t *testing.T) {
		st := open(t)
		s := newPlaying(t, "group-play")
		require.NoError(t, st.CreateSession(ctx, s))

		var proposalID string
		var team []string
		require.NoError(t, st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
			leader := s.Leader()
			team = []string{s.Participants[0].ID, s.Participants[1].ID}
			p, err := s.SubmitProposal(leader.Identity, team, contractNow)
			if err != nil {
				return err
			}
			proposalID = p.ID
			return nil
		}))

		sessionID, err := st.SessionIDForProposal(ctx, proposalID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, sessionID)

		// 先投反对再改成赞成，只保留最后一票
		require.NoError(t, st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
			_, err := s.SubmitVote(proposalID, "host", game.DECISION_REJECT)
			return err
		}))
		for _, identity := range []string{"host", "p1", "p2", "p3", "p4"} {
			require.NoError(t, st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
				_, err := s.SubmitVote(proposalID, identity, game.DECISION_APPROVE)
				return err
			}))
		}

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, game.PHASE_QUESTING, got.Phase)
		_, proposal := got.FindProposal(proposalID)
		require.NotNil(t, proposal)
		assert.True(t, proposal.Approved())
		assert.Equal(t, team, proposal.Team)
		assert.Len(t, proposal.Votes, 5)
		approvals, rejections := proposal.Tally()
		assert.Equal(t, 5, approvals)
		assert.Zero(t, rejections)

		for _, memberID := range team {
			require.NoError(t, st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
				member := s.ParticipantByID(memberID)
				_, err := s.SubmitMissionAction(proposalID, member.Identity, game.RESULT_SUCCESS)
				return err
			}))
		}

		got, err = st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, game.PHASE_PROPOSING, got.Phase)
		assert.Equal(t, 2, got.CurrentRoundNumber)
		require.Len(t, got.Rounds, 2)
		require.NotNil(t, got.Rounds[0].IsSuccess)
		assert.True(t, *got.Rounds[0].IsSuccess)
		assert.Nil(t, got.Rounds[1].IsSuccess)
		_, proposal = got.FindProposal(proposalID)
		require.NotNil(t, proposal)
		assert.Len(t, proposal.Actions, 2)
		for _, p := range got.Participants {
			assert.NotEmpty(t, p.Role)
		}
	})

	t.Run("pending proposals expire", func(t *testing.T) {
		st := open(t)
		s := newPlaying(t, "group-pending")
		require.NoError(t, st.CreateSession(ctx, s))

		expiresAt := contractNow.Add(2 * time.Minute)
		require.NoError(t, st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
			team := []string{s.Participants[2].ID, s.Participants[3].ID}
			_, err := s.StagePending(s.Leader().Identity, team, "三号和四号", expiresAt)
			return err
		}))

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got.Pending, 1)
		assert.Equal(t, "三号和四号", got.Pending[0].Text)
		assert.True(t, got.Pending[0].ExpiresAt.Equal(expiresAt))

		n, err := st.PurgeExpiredPending(ctx, contractNow.Add(time.Minute))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = st.PurgeExpiredPending(ctx, expiresAt)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err = st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Pending)
	})

	t.Run("finished sessions are purged after retention", func(t *testing.T) {
		st := open(t)
		done := newPlaying(t, "group-done")
		require.NoError(t, st.CreateSession(ctx, done))
		live := newLobby(t, "group-live", 2)
		require.NoError(t, st.CreateSession(ctx, live))

		var proposalID string
		require.NoError(t, st.UpdateSession(ctx, done.ID, func(s *game.Session) error {
			team := []string{s.Participants[0].ID, s.Participants[1].ID}
			p, err := s.SubmitProposal(s.Leader().Identity, team, contractNow)
			if err != nil {
				return err
			}
			proposalID = p.ID
			if _, err := s.SubmitVote(p.ID, "p1", game.DECISION_APPROVE); err != nil {
				return err
			}
			return s.Close("host")
		}))

		n, err := st.PurgeFinished(ctx, contractNow.Add(-time.Minute))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = st.PurgeFinished(ctx, contractNow)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = st.GetSession(ctx, done.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.SessionIDForProposal(ctx, proposalID)
		assert.ErrorIs(t, err, ErrNotFound)

		// 未结束的对局不受保留时长影响
		n, err = st.PurgeFinished(ctx, contractNow.Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = st.GetSession(ctx, live.ID)
		assert.NoError(t, err)
	})

	t.Run("concurrent updates serialize", func(t *testing.T) {
		st := open(t)
		s := newLobby(t, "group-race", 1)
		require.NoError(t, st.CreateSession(ctx, s))

		var wg sync.WaitGroup
		errs := make(chan error, 4)
		for i := 1; i <= 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- st.UpdateSession(ctx, s.ID, func(s *game.Session) error {
					_, err := s.Join(fmt.Sprintf("p%d", i), fmt.Sprintf("玩家%d", i), contractNow)
					return err
				})
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got.Participants, 5)
		seats := make(map[int]bool)
		for _, p := range got.Participants {
			seats[p.Index] = true
		}
		assert.Len(t, seats, 5)
	})
}
