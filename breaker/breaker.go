// Package breaker 提供按依赖名隔离的熔断器，专注于下游调用（数据库、对端服务）的故障隔离与自动恢复。
//
// 每个依赖名对应一个独立的状态机：
//   - Closed：调用正常通过，结果写入固定容量的滑动窗口
//   - Open：窗口失败率达到阈值后进入，等待 WaitDuration 期间拒绝所有调用
//   - HalfOpen：等待结束后的第一次准入触发，放行 PermittedTrialCalls 个探测调用，
//     连续 RequiredConsecutiveSuccesses 次成功后关闭，任一失败立即重新打开
//
// Open -> HalfOpen 在准入时惰性判断，不依赖后台 goroutine。每次状态切换都会清空滑动窗口。
//
// ## 基本使用
//
//	reg, err := breaker.NewRegistry(&breaker.Config{
//		Default: breaker.DefaultPolicy(),
//		Dependencies: map[string]breaker.Policy{
//			"user-service": {WaitDuration: 10 * time.Second},
//		},
//	}, breaker.WithLogger(logger), breaker.WithMeter(meter))
//
//	permit, ok := reg.Allow("user-service")
//	if !ok {
//		// 快速失败，走降级逻辑
//	}
//	err := call()
//	permit.Done(breaker.OutcomeOf(err == nil))
//
// ## 简化调用
//
//	err := reg.Do(ctx, "user-service", func(ctx context.Context) error {
//		return client.Get(ctx)
//	}, nil)
//	if errors.Is(err, breaker.ErrOpenState) {
//		// 熔断中
//	}
package breaker

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
	// StateOpen 打开状态（熔断中）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Outcome 一次被准入调用的结果
type Outcome int

const (
	// Success 调用成功
	Success Outcome = iota
	// Failure 调用失败，计入熔断统计
	Failure
)

// String 返回结果的字符串表示
func (o Outcome) String() string {
	if o == Failure {
		return "failure"
	}
	return "success"
}

// OutcomeOf 将布尔结果转换为 Outcome
func OutcomeOf(ok bool) Outcome {
	if ok {
		return Success
	}
	return Failure
}
