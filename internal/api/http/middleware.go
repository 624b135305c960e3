package http

import (
	"strings"

	"avalon-be/internal/service"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

const (
	CTX_IDENTITY     = "identity"
	RATE_LIMITED_MSG = "请求过于频繁，请稍后再试"
)

// Authenticate 校验 Bearer 令牌，websocket 客户端无法设置请求头时可使用 token 查询参数
func Authenticate(tokens *TokenManager, dir *service.MemoryDirectory) iris.Handler {
	return func(ctx iris.Context) {
		raw, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			raw = ctx.URLParam("token")
		}

		if raw == "" {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{
				"error_kind": "Unauthenticated",
				"error":      "缺少身份令牌",
			})
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			zap.L().Debug("令牌校验失败", zap.String("client_ip", ctx.RemoteAddr()), zap.Error(err))
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{
				"error_kind": "Unauthenticated",
				"error":      err.Error(),
			})
			return
		}

		dir.Remember(claims.Subject, claims.Name)
		ctx.Values().Set(CTX_IDENTITY, claims.Subject)

		ctx.Next()
	}
}

func identityOf(ctx iris.Context) string {
	return ctx.Values().GetString(CTX_IDENTITY)
}

// RateLimit 按玩家身份限流，未登录的请求按客户端地址计数
func RateLimit(limiter *service.IdentityLimiter) iris.Handler {
	return func(ctx iris.Context) {
		identity := identityOf(ctx)
		if identity == "" {
			identity = ctx.RemoteAddr()
		}

		if !limiter.Allow(identity) {
			zap.L().Warn("请求过于频繁", zap.String("identity", identity))
			ctx.StopWithJSON(iris.StatusTooManyRequests, iris.Map{
				"error_kind": "RateLimited",
				"error":      RATE_LIMITED_MSG,
			})
			return
		}

		ctx.Next()
	}
}
