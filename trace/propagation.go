package trace

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ceyewan/workhub/trace"

// Inject 将 ctx 中的链路信息写入 HTTP 请求头
func Inject(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}

// Extract 从 HTTP 请求头恢复链路信息
func Extract(ctx context.Context, header http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(header))
}

// StartPeerSpan 为一次对端服务调用启动 Client Span
func StartPeerSpan(ctx context.Context, peer, method string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs = append(attrs, attribute.String(AttrPeerService, peer))
	return otel.Tracer(tracerName).Start(ctx, SpanNamePeerCall(peer, method),
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attrs...),
	)
}

// MarkSpanError 记录错误并将 Span 标记为失败，err 为 nil 时不做任何事
func MarkSpanError(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
