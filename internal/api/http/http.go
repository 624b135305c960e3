package http

import (
	"context"
	"fmt"
	"time"

	"avalon-be/internal/api/http/websocket"
	"avalon-be/internal/state"

	"github.com/kataras/iris/v12"
)

// NewApp 注册所有路由，除角色目录与健康检查外均需要身份令牌
func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()
	app.Use(Trace())

	tokens := NewTokenManager(appState.Cfg.Auth.JWTSecret, appState.Cfg.Auth.Issuer)

	app.Get("/healthz", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	api := app.Party("/api/v1")

	api.Get("/roles", ListRoles())

	authed := api.Party("/", Authenticate(tokens, appState.Directory), RateLimit(appState.Limiter))

	authed.Post("/sessions", CreateSession(appState))
	authed.Get("/groups/{groupRef}/session", GetActiveSession(appState))

	sessions := authed.Party("/sessions/{id}")
	sessions.Get("/lobby", GetLobbyStatus(appState))
	sessions.Post("/join", JoinSession(appState))
	sessions.Post("/ready", ToggleReady(appState))
	sessions.Put("/max-players", UpdateMaxPlayers(appState))
	sessions.Put("/roles", UpdateActiveRoles(appState))
	sessions.Post("/start", StartGame(appState))
	sessions.Post("/close", CloseSession(appState))
	sessions.Get("/role", GetRoleInfo(appState))
	sessions.Get("/game", GetGameStatus(appState))
	sessions.Post("/proposals", SubmitProposal(appState))
	sessions.Post("/pending", StagePendingProposal(appState))
	sessions.Post("/pending/confirm", ConfirmPendingProposal(appState))
	sessions.Delete("/pending", CancelPendingProposal(appState))
	sessions.Post("/assassinate", Assassinate(appState))
	sessions.Get("/events", websocket.SessionEvents(appState, identityOf))

	proposals := authed.Party("/proposals/{id}")
	proposals.Post("/votes", SubmitVote(appState))
	proposals.Post("/missions", SubmitMissionAction(appState))
	proposals.Post("/resolve", ResolveMission(appState))

	return app
}

// RunServer 阻塞运行直到 ctx 结束，随后优雅关闭
func RunServer(ctx context.Context, appState *state.AppState) error {
	app := NewApp(appState)

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.Shutdown(shutdownCtx)
	}()

	return app.Listen(addr, iris.WithoutInterruptHandler, iris.WithoutServerError(iris.ErrServerClosed))
}
