package clog

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// NamespaceKey 是日志中命名空间的字段名
const NamespaceKey = "namespace"

func namespaceString(o *options) string {
	if o == nil || len(o.namespaceParts) == 0 {
		return ""
	}
	return strings.Join(o.namespaceParts, ".")
}

// appendContextFields 从 ctx 中提取配置的字段，开启 trace 提取时追加 trace_id/span_id
func appendContextFields(ctx context.Context, o *options, attrs []slog.Attr) []slog.Attr {
	if o == nil {
		return attrs
	}

	for _, cf := range o.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, val))
		}
	}

	if o.enableTraceExtraction {
		sc := trace.SpanContextFromContext(ctx)
		if sc.IsValid() {
			attrs = append(attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return attrs
}
