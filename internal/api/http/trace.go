package http

import (
	"fmt"

	"github.com/kataras/iris/v12"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Trace 为每个请求开启一个 span，并把带 span 的 context 交给后续处理器
func Trace() iris.Handler {
	tracer := otel.Tracer("avalon-be/internal/api/http")

	return func(ctx iris.Context) {
		r := ctx.Request()

		route := r.URL.Path
		if cur := ctx.GetCurrentRoute(); cur != nil {
			route = cur.Path()
		}

		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		spanCtx, span := tracer.Start(parent, r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		ctx.ResetRequest(r.WithContext(spanCtx))
		ctx.Next()

		status := ctx.GetStatusCode()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= iris.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}
	}
}
