// Package peer 提供服务之间的 REST 调用客户端。
//
// 每个 Client 对应一个对端服务，调用路径上依次经过：
// 限流（x/time/rate）→ 熔断器（breaker.Registry.Do，依赖名即对端服务名）→
// Client Span 与链路头注入 → resty 发送请求 → 指标记录 → 状态码分类。
//
// 对端统一返回 {message, data, status} 结构，客户端解出 data 字段。
// 传输失败与 5xx 映射为 xerrors.ErrUnavailable（计入熔断），404 映射为 xerrors.ErrNotFound（业务错误）。
package peer

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/trace"
	"github.com/ceyewan/workhub/xerrors"
)

// envelope 对端响应的线上格式
type envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
	Status  int    `json:"status"`
}

// Client 单个对端服务的 HTTP 客户端，并发安全
type Client struct {
	name     string
	http     *resty.Client
	limiter  *rate.Limiter
	breakers *breaker.Registry
	counts   func(error) bool
	metrics  *metrics.HTTPClientMetrics
	logger   clog.Logger
}

// New 创建对端客户端，name 同时作为熔断器依赖名与指标中的 peer 标签
func New(name string, cfg Config, breakers *breaker.Registry, opts ...Option) (*Client, error) {
	if name == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "peer: name is required")
	}
	if breakers == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "peer: breaker registry is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{logger: clog.Discard(), classifier: resilience.DefaultClassifier()}
	for _, opt := range opts {
		opt(o)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		name:     name,
		http:     httpClient,
		limiter:  limiter,
		breakers: breakers,
		counts:   o.classifier.Counts,
		metrics:  o.metrics,
		logger:   o.logger.With(clog.String("peer", name)),
	}, nil
}

// Name 返回对端服务名
func (c *Client) Name() string {
	return c.name
}

// call 在对端熔断器保护下执行一次请求并解出 data
//
// 熔断器拒绝准入时返回 breaker.ErrOpenState，不发出请求。
func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.breakers.Do(ctx, c.name, func(ctx context.Context) error {
		data, err := execute[T](ctx, c, method, path, body)
		if err != nil {
			return err
		}
		out = data
		return nil
	}, c.counts)
	if err != nil {
		c.logger.WarnContext(ctx, "peer call failed",
			clog.String("method", method),
			clog.String("path", path),
			clog.String("kind", string(xerrors.KindOf(err))),
			clog.Error(err))
	}
	return out, err
}

func execute[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, transportError(ctx, c.name, err)
	}

	ctx, span := trace.StartPeerSpan(ctx, c.name, method, attribute.String("http.route", path))
	defer span.End()

	var (
		result  envelope[T]
		failure envelope[any]
	)
	req := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&failure)
	trace.Inject(ctx, req.Header)
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	c.metrics.Observe(ctx, c.name, method, status, time.Since(start))

	if err != nil {
		err = transportError(ctx, c.name, err)
		trace.MarkSpanError(span, err)
		return zero, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if resp.IsError() {
		err := statusError(c.name, method, path, status, failure.Message)
		if c.counts(err) {
			trace.MarkSpanError(span, err)
		}
		return zero, err
	}

	c.logger.DebugContext(ctx, "peer call succeeded",
		clog.String("method", method),
		clog.String("path", path),
		clog.Int("status", status))
	return result.Data, nil
}
