package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingProposal_StageAndConfirm(t *testing.T) {
	s := startWith(t, fiveStandard()...)
	expires := testNow.Add(time.Minute)

	_, err := s.StagePending(ident(1), seatIDs(s, 0, 1), "我派 1 2", expires)
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = s.StagePending(ident(0), seatIDs(s, 0), "我派 1", expires)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.StagePending(ident(0), seatIDs(s, 0, 1), "我派 1 2", expires)
	require.NoError(t, err)
	_, err = s.StagePending(ident(0), seatIDs(s, 0, 2), "改成 1 3", expires)
	require.NoError(t, err)
	require.Len(t, s.Pending, 1, "同一队长只保留最新的暂存")

	p, err := s.ConfirmPending(ident(0), testNow)
	require.NoError(t, err)
	assert.Equal(t, seatIDs(s, 0, 2), p.Team)
	assert.Empty(t, s.Pending)
	assert.Equal(t, PHASE_VOTING, s.Phase)
}

func TestPendingProposal_Expiry(t *testing.T) {
	s := startWith(t, fiveStandard()...)

	_, err := s.StagePending(ident(0), seatIDs(s, 0, 1), "", testNow.Add(time.Minute))
	require.NoError(t, err)

	_, err = s.ConfirmPending(ident(0), testNow.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 0, s.PurgeExpired(testNow))
	assert.Equal(t, 1, s.PurgeExpired(testNow.Add(time.Minute)))
	assert.Empty(t, s.Pending)
}

func TestPendingProposal_CancelAndClose(t *testing.T) {
	s := startWith(t, fiveStandard()...)

	assert.ErrorIs(t, s.CancelPending(ident(0)), ErrNotFound)

	_, err := s.StagePending(ident(0), seatIDs(s, 0, 1), "", testNow.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.CancelPending(ident(0)))
	assert.Empty(t, s.Pending)

	_, err = s.StagePending(ident(0), seatIDs(s, 0, 1), "", testNow.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.Close(ident(0)))
	assert.Empty(t, s.Pending)
}
