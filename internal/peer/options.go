package peer

import (
	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/resilience"
)

// Option 客户端选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	metrics    *metrics.HTTPClientMetrics
	classifier *resilience.Classifier
}

// WithLogger 设置 Logger，内部会自动添加 namespace: "peer"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("peer")
		}
	}
}

// WithMetrics 记录对端调用的 RED 指标
func WithMetrics(m *metrics.HTTPClientMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClassifier 决定哪些错误计入对端熔断器，默认使用 resilience.DefaultClassifier
func WithClassifier(c *resilience.Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}
