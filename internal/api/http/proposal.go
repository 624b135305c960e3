package http

import (
	"avalon-be/internal/service/dto"
	"avalon-be/internal/state"

	"github.com/kataras/iris/v12"
)

func SubmitProposal(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.SubmitProposalRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.SubmitProposal(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.Team,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(resp)
	}
}

func StagePendingProposal(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.StagePendingRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.StagePendingProposal(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.Text,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func ConfirmPendingProposal(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.ConfirmPendingProposal(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(resp)
	}
}

func CancelPendingProposal(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		if err := appState.SessionSvc.CancelPendingProposal(ctx.Request().Context(), ctx.Params().Get("id"), identityOf(ctx)); err != nil {
			writeError(ctx, err)
			return
		}

		ctx.StatusCode(iris.StatusNoContent)
	}
}

func SubmitVote(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.SubmitVoteRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.SubmitVote(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.Decision,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func SubmitMissionAction(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.SubmitMissionRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.SubmitMissionAction(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.Result,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func ResolveMission(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.SessionSvc.ResolveMission(ctx.Request().Context(), ctx.Params().Get("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func Assassinate(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.AssassinateRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.SessionSvc.Assassinate(
			ctx.Request().Context(),
			ctx.Params().Get("id"),
			identityOf(ctx),
			req.TargetID,
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}
