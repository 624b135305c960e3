package http

import (
	"avalon-be/internal/service/game"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

func statusOf(err error) int {
	switch game.KindOf(err) {
	case game.KIND_NOT_FOUND:
		return iris.StatusNotFound
	case game.KIND_CONFLICT:
		return iris.StatusConflict
	case game.KIND_AUTHORIZATION:
		return iris.StatusForbidden
	case game.KIND_VALIDATION:
		return iris.StatusBadRequest
	case game.KIND_STATE:
		return iris.StatusUnprocessableEntity
	case game.KIND_STORAGE:
		return iris.StatusServiceUnavailable
	default:
		return iris.StatusInternalServerError
	}
}

// writeError 被拒绝的操作返回具体原因，存储故障与未知错误只返回通用提示
func writeError(ctx iris.Context, err error) {
	status := statusOf(err)
	kind := game.KindOf(err)

	msg := err.Error()
	if status >= iris.StatusInternalServerError {
		zap.L().Error(
			"请求处理失败",
			zap.String("path", ctx.Path()),
			zap.String("identity", identityOf(ctx)),
			zap.Error(err),
		)
		msg = "服务暂时不可用，请稍后重试"
		if kind == "" {
			kind = "Internal"
		}
	}

	ctx.StopWithJSON(status, iris.Map{
		"error_kind": string(kind),
		"error":      msg,
	})
}

func badRequest(ctx iris.Context) {
	ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
		"error_kind": string(game.KIND_VALIDATION),
		"error":      "请求参数无效",
	})
}
