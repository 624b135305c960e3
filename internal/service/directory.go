package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Profile struct {
	Identity    string
	DisplayName string
}

// IdentityDirectory 将外部身份解析为展示信息
type IdentityDirectory interface {
	Lookup(ctx context.Context, identity string) (Profile, error)
}

// MemoryDirectory 由 HTTP 中间件根据令牌中的昵称写入
type MemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		profiles: make(map[string]Profile),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (d *MemoryDirectory) Remember(identity, displayName string) {
	displayName = strings.TrimSpace(displayName)
	if identity == "" || displayName == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.profiles[identity] = Profile{Identity: identity, DisplayName: displayName}
	d.lastSeen[identity] = d.now()
}

// Evict 删除在 before 之前最后一次登记的身份
func (d *MemoryDirectory) Evict(before time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for identity, seen := range d.lastSeen {
		if seen.Before(before) {
			delete(d.lastSeen, identity)
			delete(d.profiles, identity)
			n++
		}
	}

	return n
}

// Lookup 未登记的身份以身份字符串本身作为昵称
func (d *MemoryDirectory) Lookup(_ context.Context, identity string) (Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if p, ok := d.profiles[identity]; ok {
		return p, nil
	}

	return Profile{Identity: identity, DisplayName: identity}, nil
}
