package resilience

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/trace"
	"github.com/ceyewan/workhub/xerrors"
)

const (
	// MetricFallbacksTotal 降级次数 (Counter)
	MetricFallbacksTotal = "resilience_fallbacks_total"

	// MessageListUnavailable 列表降级消息
	MessageListUnavailable = "service unavailable, cannot retrieve list."

	// MessageLookupUnavailable 未给出标识时的单条查询降级消息
	MessageLookupUnavailable = "service unavailable, cannot retrieve the requested item."
)

// Dispatcher 将失败原因映射为降级 Envelope
//
// Dispatch 从不 panic，总是返回 503 Envelope。每次调用输出一条 WARN 与一条 ERROR 日志，
// 如果 ctx 中有正在记录的 Span，同时写入 error / exception.* 标签。
type Dispatcher struct {
	logger    clog.Logger
	fallbacks metrics.Counter
}

// NewDispatcher 创建降级分发器
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	fallbacks, err := o.meter.Counter(MetricFallbacksTotal, "降级响应次数")
	if err != nil {
		return nil, xerrors.Wrap(err, "resilience: create fallback counter")
	}

	return &Dispatcher{logger: o.logger, fallbacks: fallbacks}, nil
}

// Dispatch 生成降级响应
//
// id 是请求涉及的标识（用户名、项目编码等），可以为空。
func (d *Dispatcher) Dispatch(ctx context.Context, dependency string, category Category, id string, cause Cause, err error) Envelope {
	summary := summarize(category, id)

	d.logger.WarnContext(ctx, "breaker open/tripped for "+dependency,
		clog.String("dependency", dependency),
		clog.String("cause", cause.String()))
	d.logger.ErrorContext(ctx, "fallback dispatched",
		clog.String("dependency", dependency),
		clog.String("category", category.String()),
		clog.String("cause", cause.String()),
		clog.String("context", summary),
		clog.Error(err))

	trace.RecordFailure(ctx, summary, err)

	d.fallbacks.Inc(ctx,
		metrics.L("dependency", dependency),
		metrics.L("category", category.String()),
		metrics.L("cause", cause.String()))

	return degraded(category, id)
}

// degraded 按类别构造 503 Envelope
func degraded(category Category, id string) Envelope {
	env := Envelope{Status: http.StatusServiceUnavailable, Degraded: true}
	switch category {
	case List:
		env.Message = MessageListUnavailable
		env.Data = []any{}
	case SingleLookup:
		if id == "" {
			env.Message = MessageLookupUnavailable
		} else {
			env.Message = fmt.Sprintf("service unavailable, cannot retrieve %q.", id)
		}
	case Modify:
		env.Message = "service unavailable, the write could not be completed."
	default:
		env.Message = "service unavailable, action failed."
	}
	return env
}

func summarize(category Category, id string) string {
	var s string
	switch category {
	case List:
		return "failed to retrieve list"
	case SingleLookup:
		s = "failed to retrieve"
	case Modify:
		s = "failed to create/update"
	default:
		s = "failed to perform action"
	}
	if id != "" {
		s += ": " + id
	}
	return s
}
