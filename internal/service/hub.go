package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const SUBSCRIPTION_BUFFER = 32

// Subscription 某个玩家对某局游戏的事件订阅
type Subscription struct {
	SessionID string
	Identity  string

	ch   chan Notification
	once sync.Once
}

func (sub *Subscription) C() <-chan Notification {
	return sub.ch
}

// Hub 按对局分发通知，供 websocket 推送使用，调用方无需轮询
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

func (h *Hub) Subscribe(sessionID, identity string) *Subscription {
	sub := &Subscription{
		SessionID: sessionID,
		Identity:  identity,
		ch:        make(chan Notification, SUBSCRIPTION_BUFFER),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*Subscription]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}

	zap.L().Debug(
		"新增事件订阅",
		zap.String("session_id", sessionID),
		zap.String("identity", identity),
	)

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sub.SessionID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.SessionID)
		}
	}

	sub.once.Do(func() { close(sub.ch) })
}

// Notify 非阻塞投递，订阅者缓冲区已满时丢弃该条通知
func (h *Hub) Notify(_ context.Context, n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[n.SessionID] {
		if n.IsPrivate() && sub.Identity != n.TargetIdentity {
			continue
		}

		select {
		case sub.ch <- n:
		default:
			zap.L().Warn(
				"推送通知失败：订阅通道已满",
				zap.String("session_id", n.SessionID),
				zap.String("identity", sub.Identity),
				zap.String("kind", string(n.Kind)),
			)
		}
	}
}

func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[sessionID])
}
