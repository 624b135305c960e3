package store

import (
	"context"
	"sync"
	"time"

	"avalon-be/internal/service/game"
)

// MemoryStore 单实例部署使用的内存存储，每个对局持有独立的互斥锁
type MemoryStore struct {
	mu sync.RWMutex

	sessions map[string]*sessionEntry
	// 群组 -> 未结束的对局 ID
	active map[string]string
	// 提名 ID -> 对局 ID
	proposals map[string]string
}

// 已提交的对局不再原地修改，只整体替换
type sessionEntry struct {
	mu      sync.Mutex
	session *game.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*sessionEntry),
		active:    make(map[string]string),
		proposals: make(map[string]string),
	}
}

func (ms *MemoryStore) CreateSession(ctx context.Context, session *game.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.sessions[session.ID]; exists {
		return ErrAlreadyExists
	}

	if session.Status.IsActive() {
		if _, busy := ms.active[session.GroupRef]; busy {
			return ErrAlreadyExists
		}
		ms.active[session.GroupRef] = session.ID
	}

	stored := session.Clone()
	ms.sessions[session.ID] = &sessionEntry{session: stored}
	ms.indexProposals(stored)

	return nil
}

func (ms *MemoryStore) entry(id string) (*sessionEntry, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	e, ok := ms.sessions[id]
	return e, ok
}

func (ms *MemoryStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := ms.entry(id)
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.Clone(), nil
}

func (ms *MemoryStore) GetActiveSession(ctx context.Context, groupRef string) (*game.Session, error) {
	ms.mu.RLock()
	id, ok := ms.active[groupRef]
	ms.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return ms.GetSession(ctx, id)
}

func (ms *MemoryStore) SessionIDForProposal(ctx context.Context, proposalID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.proposals[proposalID]
	if !ok {
		return "", ErrNotFound
	}

	return id, nil
}

func (ms *MemoryStore) UpdateSession(ctx context.Context, id string, fn func(*game.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, ok := ms.entry(id)
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.session.Clone()
	if err := fn(draft); err != nil {
		return err
	}

	ms.mu.Lock()
	if !draft.Status.IsActive() && ms.active[draft.GroupRef] == draft.ID {
		delete(ms.active, draft.GroupRef)
	}
	ms.indexProposals(draft)
	ms.mu.Unlock()

	e.session = draft

	return nil
}

func (ms *MemoryStore) PurgeExpiredPending(ctx context.Context, now time.Time) (int, error) {
	ms.mu.RLock()
	entries := make([]*sessionEntry, 0, len(ms.sessions))
	for _, e := range ms.sessions {
		entries = append(entries, e)
	}
	ms.mu.RUnlock()

	purged := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		e.mu.Lock()
		draft := e.session.Clone()
		if n := draft.PurgeExpired(now); n > 0 {
			purged += n
			e.session = draft
		}
		e.mu.Unlock()
	}

	return purged, nil
}

func (ms *MemoryStore) PurgeFinished(ctx context.Context, before time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.RLock()
	candidates := make(map[string]*sessionEntry, len(ms.sessions))
	for id, e := range ms.sessions {
		candidates[id] = e
	}
	ms.mu.RUnlock()

	purged := 0
	for id, e := range candidates {
		e.mu.Lock()
		s := e.session
		stale := !s.Status.IsActive() && !s.UpdatedAt.After(before)
		if stale {
			ms.mu.Lock()
			delete(ms.sessions, id)
			ms.dropProposals(s)
			ms.mu.Unlock()
			purged++
		}
		e.mu.Unlock()
	}

	return purged, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}

// indexProposals 需持有 ms.mu 写锁
func (ms *MemoryStore) indexProposals(s *game.Session) {
	for _, r := range s.Rounds {
		for _, p := range r.Proposals {
			ms.proposals[p.ID] = s.ID
		}
	}
}

// dropProposals 需持有 ms.mu 写锁
func (ms *MemoryStore) dropProposals(s *game.Session) {
	for _, r := range s.Rounds {
		for _, p := range r.Proposals {
			delete(ms.proposals, p.ID)
		}
	}
}
