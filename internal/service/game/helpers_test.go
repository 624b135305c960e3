package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC)

func ident(seat int) string {
	return fmt.Sprintf("U%02d", seat)
}

// noShuffle 让洗牌保持原顺序：角色按座位依次分配
func noShuffle(n int) int {
	return n - 1
}

// newLobby 创建 n 人满员且全部准备好的大厅，座位 i 的身份为 ident(i)
func newLobby(t *testing.T, n int) *Session {
	t.Helper()

	s, err := NewSession("group-1", ident(0), "player-0", testNow)
	require.NoError(t, err)
	require.NoError(t, s.UpdateMaxPlayers(ident(0), n))

	for i := 1; i < n; i++ {
		p, err := s.Join(ident(i), fmt.Sprintf("player-%d", i), testNow)
		require.NoError(t, err)
		_, err = s.ToggleReady(p.Identity)
		require.NoError(t, err)
	}

	return s
}

// startWith 以给定角色开局，座位 i 拿到 roles[i]，首任队长为 0 号位
func startWith(t *testing.T, roles ...RoleID) *Session {
	t.Helper()

	s := newLobby(t, len(roles))
	require.NoError(t, s.UpdateActiveRoles(ident(0), roles))
	require.NoError(t, s.Start(ident(0), noShuffle))
	s.CurrentLeaderIndex = 0

	return s
}

func fiveStandard() []RoleID {
	return []RoleID{ROLE_MERLIN, ROLE_PERCIVAL, ROLE_SERVANT, ROLE_MORGANA, ROLE_ASSASSIN}
}

func seatIDs(s *Session, seats ...int) []string {
	ids := make([]string, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, s.ParticipantAt(seat).ID)
	}

	return ids
}

// approveTeam 当前队长提名给定座位并让全员同意
func approveTeam(t *testing.T, s *Session, seats ...int) *Proposal {
	t.Helper()

	leader := s.ParticipantAt(s.CurrentLeaderIndex)
	proposal, err := s.SubmitProposal(leader.Identity, seatIDs(s, seats...), testNow)
	require.NoError(t, err)

	for _, p := range s.Participants {
		_, err := s.SubmitVote(proposal.ID, p.Identity, DECISION_APPROVE)
		require.NoError(t, err)
	}
	require.True(t, proposal.Approved())

	return proposal
}

// playRound 让当前回合以给定座位组队，并让 failSeats 中的队员提交失败
func playRound(t *testing.T, s *Session, seats []int, failSeats ...int) MissionOutcome {
	t.Helper()

	proposal := approveTeam(t, s, seats...)

	var outcome MissionOutcome
	for _, seat := range seats {
		result := RESULT_SUCCESS
		for _, f := range failSeats {
			if f == seat {
				result = RESULT_FAIL
			}
		}

		var err error
		outcome, err = s.SubmitMissionAction(proposal.ID, ident(seat), result)
		require.NoError(t, err)
	}
	require.True(t, outcome.Resolved)

	return outcome
}
