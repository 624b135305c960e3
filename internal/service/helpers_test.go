package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"avalon-be/internal/service/dto"
	"avalon-be/internal/store"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC)

func ident(seat int) string {
	return fmt.Sprintf("U%02d", seat)
}

// recorder 记录所有派发的通知
type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notes = append(r.notes, n)
}

func (r *recorder) ofKind(kind NotificationKind) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, 0)
	for _, n := range r.notes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}

	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notes = nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *SessionService
	store *store.MemoryStore
	rec   *recorder
	clock *clock
}

// newFixture 使用内存存储；洗牌保持原顺序，首任队长为最后一个座位
func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := NewMemoryDirectory()
	for i := 0; i < 10; i++ {
		dir.Remember(ident(i), fmt.Sprintf("玩家%d", i))
	}

	f := &fixture{
		store: store.NewMemoryStore(),
		rec:   &recorder{},
		clock: &clock{now: testNow},
	}
	f.svc = NewSessionService(f.store,
		WithNotifier(f.rec),
		WithDirectory(dir),
		WithRandom(func(n int) int { return n - 1 }),
		WithClock(f.clock.Now),
		WithPendingTTL(2*time.Minute),
	)

	return f
}

// lobby 创建 5 人满员且全部准备好的大厅
func (f *fixture) lobby(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	lobby, err := f.svc.CreateSession(ctx, "group-1", ident(0))
	require.NoError(t, err)

	for i := 1; i < 5; i++ {
		_, err := f.svc.JoinSession(ctx, lobby.SessionID, ident(i))
		require.NoError(t, err)
		_, err = f.svc.ToggleReady(ctx, lobby.SessionID, ident(i))
		require.NoError(t, err)
	}

	return lobby.SessionID
}

// started 开局后座位依次为 梅林、派西维尔、忠臣、刺客、莫甘娜，队长为 4 号位
func (f *fixture) started(t *testing.T) string {
	t.Helper()

	id := f.lobby(t)
	status, err := f.svc.StartGame(context.Background(), id, ident(0))
	require.NoError(t, err)
	require.Equal(t, ident(4), status.Leader.Identity)

	return id
}

func (f *fixture) seatID(t *testing.T, sessionID string, seat int) string {
	t.Helper()

	lobby, err := f.svc.GetLobbyStatus(context.Background(), sessionID)
	require.NoError(t, err)
	for _, p := range lobby.Players {
		if p.Index == seat {
			return p.ID
		}
	}

	t.Fatalf("seat %d not found", seat)
	return ""
}

// approvedProposal 当前队长提名给定座位并全员同意
func (f *fixture) approvedProposal(t *testing.T, sessionID string, seats ...int) dto.ProposalView {
	t.Helper()
	ctx := context.Background()

	status, err := f.svc.GetGameStatus(ctx, sessionID)
	require.NoError(t, err)

	team := make([]string, 0, len(seats))
	for _, seat := range seats {
		team = append(team, f.seatID(t, sessionID, seat))
	}

	proposal, err := f.svc.SubmitProposal(ctx, sessionID, status.Leader.Identity, team)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := f.svc.SubmitVote(ctx, proposal.ID, ident(i), "APPROVE")
		require.NoError(t, err)
	}

	return proposal
}
