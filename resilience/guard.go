package resilience

import (
	"context"
	"net/http"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/clog"
)

// Operation 受保护的操作，成功时返回要响应的 Envelope
type Operation func(ctx context.Context) (Envelope, error)

// Guard 以熔断器保护一次调用
//
// Execute 的结果只有两种：一个 Envelope（成功或降级），或一个未被拦截的业务错误。
type Guard struct {
	registry   *breaker.Registry
	classifier *Classifier
	dispatcher *Dispatcher
	logger     clog.Logger
}

// NewGuard 创建 Guard，classifier 或 dispatcher 为 nil 时使用默认实现
func NewGuard(registry *breaker.Registry, classifier *Classifier, dispatcher *Dispatcher, opts ...Option) *Guard {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if dispatcher == nil {
		dispatcher = &Dispatcher{logger: o.logger, fallbacks: noopCounter()}
	}
	return &Guard{
		registry:   registry,
		classifier: classifier,
		dispatcher: dispatcher,
		logger:     o.logger,
	}
}

// Registry 返回 Guard 使用的熔断器注册表
func (g *Guard) Registry() *breaker.Registry {
	return g.registry
}

// Execute 在依赖 dependency 的熔断保护下执行 op
//
//   - 拒绝准入：op 不执行，返回 CauseBreakerOpen 降级 Envelope
//   - op 成功：记录成功，返回 op 的 Envelope
//   - op 返回计入失败的错误：记录失败，返回 CauseDependencyUnavailable 降级 Envelope
//   - op 返回业务错误：不记录，原样返回错误
func (g *Guard) Execute(ctx context.Context, dependency string, category Category, id string, op Operation) (Envelope, error) {
	permit, ok := g.registry.Allow(dependency)
	if !ok {
		return g.dispatcher.Dispatch(ctx, dependency, category, id, CauseBreakerOpen, breaker.ErrOpenState), nil
	}

	env, err := g.run(ctx, op)
	if err == nil {
		permit.Done(breaker.Success)
		env.Degraded = false
		if env.Status == 0 {
			env.Status = http.StatusOK
		}
		return env, nil
	}

	if g.classifier.IsBusiness(err) {
		permit.Release()
		g.logger.DebugContext(ctx, "business error passed through",
			clog.String("dependency", dependency),
			clog.String("category", category.String()),
			clog.Error(err))
		return Envelope{}, err
	}

	permit.Done(breaker.Failure)
	return g.dispatcher.Dispatch(ctx, dependency, category, id, CauseDependencyUnavailable, err), nil
}

// run 执行 op，panic 视为计入失败的错误
func (g *Guard) run(ctx context.Context, op Operation) (env Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return op(ctx)
}
