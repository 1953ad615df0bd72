package breaker

import (
	"time"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用）
type options struct {
	logger clog.Logger
	meter  metrics.Meter
	now    func() time.Time
}

func defaultOptions() *options {
	return &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		now:    time.Now,
	}
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置指标 Meter，传入 nil 时不记录指标
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter == nil {
			o.meter = metrics.Discard()
		} else {
			o.meter = meter
		}
	}
}

// WithClock 替换时间源，主要用于测试
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
