package http

import (
	"avalon-be/internal/service/dto"
	"avalon-be/internal/service/game"
	"avalon-be/internal/state"

	"github.com/kataras/iris/v12"
)

func CreateSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.CreateSessionRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.CreateSession(ctx.Request().Context(), req.GroupRef, identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(resp)
	}
}

func GetActiveSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.GetActiveSession(ctx.Request().Context(), ctx.Params().Get("groupRef"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(iris.Map{"session": resp})
	}
}

func GetLobbyStatus(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.GetLobbyStatus(ctx.Request().Context(), ctx.Params().Get("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func JoinSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.JoinSession(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func ToggleReady(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.ToggleReady(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func UpdateMaxPlayers(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.UpdateMaxPlayersRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.UpdateMaxPlayers(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.MaxPlayers,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func UpdateActiveRoles(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.UpdateActiveRolesRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.UpdateActiveRoles(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.Roles,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func StartGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.StartGame(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func CloseSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.CloseSession(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func GetRoleInfo(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.GetRoleInfo(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func GetGameStatus(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.GetGameStatus(ctx.Request().Context(), ctx.Params().Get("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

// ListRoles 返回角色目录，无需登录
func ListRoles() iris.Handler {
	type roleView struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Team        string `json:"team"`
		Description string `json:"description"`
		Unique      bool   `json:"unique"`
	}

	return func(ctx iris.Context) {
		defs := game.Roles()
		views := make([]roleView, 0, len(defs))
		for _, def := range defs {
			views = append(views, roleView{
				ID:          string(def.ID),
				Name:        def.Name,
				Team:        string(def.Team),
				Description: def.Description,
				Unique:      def.Unique,
			})
		}

		ctx.JSON(views)
	}
}
