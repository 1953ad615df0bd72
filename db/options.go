package db

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/workhub/clog"
)

// Option 配置 DB 实例的选项
type Option func(*options)

type options struct {
	logger        clog.Logger
	tracer        trace.TracerProvider
	silentMode    bool
	slowThreshold time.Duration
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("db")
		}
	}
}

// WithTracer 注入 TracerProvider，启用 otelgorm 链路追踪
func WithTracer(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

// WithSilentMode 禁用 SQL 日志输出
func WithSilentMode() Option {
	return func(o *options) {
		o.silentMode = true
	}
}

// WithSlowThreshold 设置慢查询阈值 (默认: 200ms)
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.slowThreshold = d
		}
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.slowThreshold == 0 {
		o.slowThreshold = 200 * time.Millisecond
	}
}
