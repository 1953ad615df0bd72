package breaker

import "github.com/ceyewan/workhub/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrInvalidPolicy 熔断策略无效，在 NewRegistry 阶段返回
	ErrInvalidPolicy = xerrors.New("breaker: invalid policy")

	// ErrNameEmpty 依赖名为空
	ErrNameEmpty = xerrors.New("breaker: dependency name is empty")

	// ErrOpenState 熔断器拒绝准入（Open，或 HalfOpen 探测名额已用完）
	// 错误链包含 xerrors.ErrUnavailable
	ErrOpenState = xerrors.Wrap(xerrors.ErrUnavailable, "breaker: circuit breaker is open")
)
