package service

import (
	"context"

	"go.uber.org/zap"
)

type NotificationKind string

// 通知类型，对应消息通道中的纯文本与几种卡片
const (
	NOTIFY_TEXT           NotificationKind = "TEXT"
	NOTIFY_LOBBY_INVITE   NotificationKind = "LOBBY_INVITE"
	NOTIFY_LOBBY_UPDATE   NotificationKind = "LOBBY_UPDATE"
	NOTIFY_VOTING_CARD    NotificationKind = "VOTING_CARD"
	NOTIFY_VOTE_RESULT    NotificationKind = "VOTE_RESULT"
	NOTIFY_MISSION_CARD   NotificationKind = "MISSION_CARD"
	NOTIFY_MISSION_RESULT NotificationKind = "MISSION_RESULT"
	NOTIFY_GAME_OVER      NotificationKind = "GAME_OVER"
)

// Notification 发往群组或单个玩家的消息；TargetIdentity 为空表示群发
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	SessionID      string           `json:"session_id"`
	GroupRef       string           `json:"group_ref"`
	TargetIdentity string           `json:"target_identity,omitempty"`
	Text           string           `json:"text"`
	Payload        any              `json:"payload,omitempty"`
}

func (n Notification) IsPrivate() bool {
	return n.TargetIdentity != ""
}

// Notifier 只在状态提交之后调用，发送失败不影响已提交的状态
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) {
	zap.L().Debug(
		"发送通知",
		zap.String("kind", string(n.Kind)),
		zap.String("session_id", n.SessionID),
		zap.String("group_ref", n.GroupRef),
		zap.String("target_identity", n.TargetIdentity),
		zap.String("text", n.Text),
	)
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
