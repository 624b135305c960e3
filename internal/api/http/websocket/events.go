package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"avalon-be/internal/service/game"
	"avalon-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// SessionEvents 推送对局事件，同时接受少量即时操作（准备、投票、任务）
func SessionEvents(appState *state.AppState, identityOf func(iris.Context) string) iris.Handler {
	return func(ctx iris.Context) {
		sessionID := ctx.Params().Get("id")
		identity := identityOf(ctx)

		lobby, err := appState.SessionSvc.GetLobbyStatus(ctx.Request().Context(), sessionID)
		if err != nil {
			if errors.Is(err, game.ErrNotFound) {
				ctx.StopWithStatus(iris.StatusNotFound)
			} else {
				ctx.StopWithStatus(iris.StatusServiceUnavailable)
			}
			return
		}

		member := false
		for _, p := range lobby.Players {
			if p.Identity == identity {
				member = true
				break
			}
		}
		if !member {
			ctx.StopWithStatus(iris.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		sub := appState.Hub.Subscribe(sessionID, identity)
		defer appState.Hub.Unsubscribe(sub)

		respCh := make(chan ResponseWrapper, 16)
		readDoneCh := make(chan struct{})
		writeDoneCh := make(chan struct{})

		clientIP := ctx.RemoteAddr()
		reqCtx := context.WithoutCancel(ctx.Request().Context())

		// 连接建立后先推送一次当前状态
		respCh <- handleRequest(reqCtx, appState, sessionID, identity, RequestWrapper{ReqType: REQ_GAME_STATUS})

		// 写入协程，连接上只有它会写
		go func() {
			defer close(writeDoneCh)

			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-readDoneCh:
					return

				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Warn("发送心跳失败", zap.String("client_ip", clientIP), zap.Error(err))
						return
					}

				case n, ok := <-sub.C():
					if !ok {
						return
					}

					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
					if err := conn.WriteJSON(WrapEvent(n)); err != nil {
						zap.L().Warn("推送事件失败", zap.String("client_ip", clientIP), zap.Error(err))
						return
					}

				case resp := <-respCh:
					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
					if err := conn.WriteJSON(resp); err != nil {
						zap.L().Warn("发送响应失败", zap.String("client_ip", clientIP), zap.Error(err))
						return
					}
				}
			}
		}()

		zap.L().Info(
			"玩家订阅对局事件",
			zap.String("client_ip", clientIP),
			zap.String("session_id", sessionID),
			zap.String("identity", identity),
		)

		// 读取协程（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
				) {
					zap.L().Warn("读取消息失败", zap.String("client_ip", clientIP), zap.Error(err))
				}

				break
			}

			var wrapper RequestWrapper

			var resp ResponseWrapper
			if err := json.Unmarshal(msg, &wrapper); err != nil {
				resp = WrapErrResponse("", game.Invalid("无效的请求格式"))
			} else if !appState.Limiter.Allow(identity) {
				resp = WrapRateLimited(wrapper.ReqType)
			} else {
				resp = handleRequest(reqCtx, appState, sessionID, identity, wrapper)
			}

			select {
			case respCh <- resp:
			case <-writeDoneCh:
			default:
				zap.L().Warn("发送响应失败：响应通道已满", zap.String("client_ip", clientIP))
			}
		}

		close(readDoneCh)
		<-writeDoneCh

		zap.L().Info(
			"WebSocket连接处理完成",
			zap.String("client_ip", clientIP),
			zap.String("session_id", sessionID),
			zap.String("identity", identity),
		)
	}
}

func handleRequest(
	ctx context.Context,
	appState *state.AppState,
	sessionID, identity string,
	wrapper RequestWrapper,
) ResponseWrapper {
	svc := appState.SessionSvc

	var (
		data any
		err  error
	)

	switch wrapper.ReqType {
	case REQ_GAME_STATUS:
		data, err = svc.GetGameStatus(ctx, sessionID)

	case REQ_ROLE_INFO:
		data, err = svc.GetRoleInfo(ctx, sessionID, identity)

	case REQ_READY:
		data, err = svc.ToggleReady(ctx, sessionID, identity)

	case REQ_VOTE:
		req := tryUnwrap[VoteRequest](wrapper, REQ_VOTE)
		if req == nil {
			return WrapErrResponse(wrapper.ReqType, game.Invalid("无效的投票请求"))
		}
		data, err = svc.SubmitVote(ctx, req.ProposalID, identity, req.Decision)

	case REQ_MISSION:
		req := tryUnwrap[MissionRequest](wrapper, REQ_MISSION)
		if req == nil {
			return WrapErrResponse(wrapper.ReqType, game.Invalid("无效的任务请求"))
		}
		data, err = svc.SubmitMissionAction(ctx, req.ProposalID, identity, req.Result)

	default:
		return WrapErrResponse(wrapper.ReqType, game.Invalid("未知的请求类型"))
	}

	if err != nil {
		return WrapErrResponse(wrapper.ReqType, err)
	}

	return WrapResponse(wrapper.ReqType, data)
}
