package state

import (
	"context"
	"time"

	"avalon-be/internal/config"
	"avalon-be/internal/service"
	"avalon-be/internal/store"
)

type AppState struct {
	Cfg        *config.AppConfig
	Store      store.Store
	SessionSvc *service.SessionService
	Hub        *service.Hub
	Directory  *service.MemoryDirectory
	Limiter    *service.IdentityLimiter
	Sweeper    *service.Sweeper
}

// NewAppState 组装服务：通知同时写入日志并推送给 websocket 订阅者
func NewAppState(cfg *config.AppConfig, st store.Store) *AppState {
	hub := service.NewHub()
	dir := service.NewMemoryDirectory()
	limiter := service.NewIdentityLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	svc := service.NewSessionService(
		st,
		service.WithNotifier(service.MultiNotifier{service.LogNotifier{}, hub}),
		service.WithDirectory(dir),
		service.WithPendingTTL(cfg.Game.PendingProposalTTL),
		service.WithFinishedTTL(cfg.Game.FinishedSessionTTL),
	)

	idleTTL := cfg.RateLimit.IdleTTL

	sweeper := service.NewSweeper(svc, cfg.Game.SweepInterval,
		service.SweepTask{
			Name: "闲置限流记录",
			Run: func(context.Context) (int, error) {
				return limiter.Evict(time.Now().Add(-idleTTL)), nil
			},
		},
		service.SweepTask{
			Name: "闲置玩家昵称",
			Run: func(context.Context) (int, error) {
				return dir.Evict(time.Now().Add(-idleTTL)), nil
			},
		},
	)

	return &AppState{
		Cfg:        cfg,
		Store:      st,
		SessionSvc: svc,
		Hub:        hub,
		Directory:  dir,
		Limiter:    limiter,
		Sweeper:    sweeper,
	}
}
