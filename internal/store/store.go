// Package store 定义对局状态的持久化契约，并提供内存与 SQL 两种实现。
package store

import (
	"context"
	"errors"
	"time"

	"avalon-be/internal/service/game"
)

var (
	// ErrNotFound 表示请求的对局或提名不存在
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists 表示违反唯一约束，例如同一群组已有未结束的对局
	ErrAlreadyExists = errors.New("record already exists")
)

// Store 持久化对局聚合。UpdateSession 是以对局 ID 为键的互斥作用域：
// fn 在该作用域内读改写对局，只有 fn 返回 nil 时修改才会提交。
type Store interface {
	CreateSession(ctx context.Context, session *game.Session) error
	GetSession(ctx context.Context, id string) (*game.Session, error)
	GetActiveSession(ctx context.Context, groupRef string) (*game.Session, error)
	SessionIDForProposal(ctx context.Context, proposalID string) (string, error)
	UpdateSession(ctx context.Context, id string, fn func(*game.Session) error) error
	PurgeExpiredPending(ctx context.Context, now time.Time) (int, error)
	// PurgeFinished 删除最后更新时间不晚于 before 的已结束或已中止对局
	PurgeFinished(ctx context.Context, before time.Time) (int, error)
	Close() error
}
