package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/xerrors"
)

// Registry 进程级的熔断器注册表
//
// 依赖名到熔断器的映射在首次访问时惰性创建，并发首次访问只会保留一个实例。
// Registry 应在启动阶段创建一次，并注入到所有需要它的组件中。
type Registry struct {
	def      Policy
	policies map[string]Policy
	circuits sync.Map // name -> *circuit

	logger  clog.Logger
	now     func() time.Time
	metrics *breakerMetrics
}

// NewRegistry 创建熔断器注册表
// 所有策略在此阶段校验，无效策略返回 ErrInvalidPolicy
func NewRegistry(cfg *Config, opts ...Option) (*Registry, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	def, policies, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	bm, err := newBreakerMetrics(o.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "breaker: create metrics")
	}

	r := &Registry{
		def:      def,
		policies: policies,
		logger:   o.logger,
		now:      o.now,
		metrics:  bm,
	}

	r.logger.Info("breaker registry created",
		clog.Int("window_size", def.WindowSize),
		clog.Float64("failure_rate_threshold", def.FailureRateThreshold),
		clog.Duration("wait_duration", def.WaitDuration),
		clog.Int("overrides", len(policies)))

	return r, nil
}

// Must 类似 NewRegistry，但出错时 panic
func Must(cfg *Config, opts ...Option) *Registry {
	return xerrors.Must(NewRegistry(cfg, opts...))
}

// PolicyFor 返回依赖生效的策略
func (r *Registry) PolicyFor(name string) Policy {
	if p, ok := r.policies[name]; ok {
		return p
	}
	return r.def
}

func (r *Registry) get(name string) *circuit {
	if v, ok := r.circuits.Load(name); ok {
		return v.(*circuit)
	}

	v, loaded := r.circuits.LoadOrStore(name, newCircuit(name, r.PolicyFor(name), r.now))
	if !loaded {
		r.logger.Debug("circuit created", clog.String("dependency", name))
	}
	return v.(*circuit)
}

// Allow 请求一次准入
// 准入成功时返回的 Permit 必须以 Done 或 Release 结束
func (r *Registry) Allow(name string) (Permit, bool) {
	c := r.get(name)
	gen, admitted, t := c.acquire()
	r.metrics.admission(name, admitted)
	r.notify(c, t)
	if !admitted {
		return Permit{}, false
	}
	return Permit{reg: r, c: c, gen: gen}, true
}

// Acquire 请求一次准入，仅返回是否准入
// 与 Report 搭配使用，结果按熔断器当前状态记录
func (r *Registry) Acquire(name string) bool {
	_, ok := r.Allow(name)
	return ok
}

// Report 记录一次已准入调用的结果
func (r *Registry) Report(name string, o Outcome) {
	c := r.get(name)
	accepted, t := c.report(o)
	if accepted {
		r.metrics.outcome(name, o)
	}
	r.notify(c, t)
}

// State 返回依赖当前状态
// Open 状态到期后的切换只在准入时发生，因此这里可能仍返回 StateOpen
func (r *Registry) State(name string) State {
	return r.Snapshot(name).State
}

// Snapshot 返回依赖当前的只读视图
func (r *Registry) Snapshot(name string) Snapshot {
	return r.get(name).snapshot()
}

// Names 返回已创建的依赖名
func (r *Registry) Names() []string {
	var names []string
	r.circuits.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}

// Reset 将依赖强制恢复为 Closed 并清空窗口，进行中的调用结果将被丢弃
func (r *Registry) Reset(name string) {
	c := r.get(name)
	r.notify(c, c.reset())
}

// Do 在熔断保护下执行 fn
//
// 拒绝准入时返回 ErrOpenState，fn 不会被调用。
// counts 判断 fn 的错误是否计入失败；为 nil 时所有错误都计入。
// 不计入的错误既不算失败也不算成功，准入名额被归还。
func (r *Registry) Do(ctx context.Context, name string, fn func(context.Context) error, counts func(error) bool) error {
	permit, ok := r.Allow(name)
	if !ok {
		return ErrOpenState
	}

	err := fn(ctx)
	switch {
	case err == nil:
		permit.Done(Success)
	case counts == nil || counts(err):
		permit.Done(Failure)
	default:
		permit.Release()
	}
	return err
}

func (r *Registry) notify(c *circuit, t *transition) {
	if t == nil {
		return
	}
	r.metrics.stateChange(c.name, t)

	fields := []clog.Field{
		clog.String("dependency", c.name),
		clog.String("from", t.from.String()),
		clog.String("to", t.to.String()),
	}
	if t.to == StateOpen {
		r.logger.Warn("circuit opened", append(fields, clog.Duration("wait_duration", c.policy.WaitDuration))...)
		return
	}
	r.logger.Info("circuit state changed", fields...)
}

// Permit 一次准入凭证
//
// 凭证绑定准入时熔断器的代数，状态切换后迟到的结果会被忽略。
// Done 与 Release 只应调用其中之一，且只调用一次。
type Permit struct {
	reg *Registry
	c   *circuit
	gen uint64
}

// Done 记录调用结果
func (p Permit) Done(o Outcome) {
	if p.c == nil {
		return
	}
	accepted, t := p.c.record(p.gen, o)
	if accepted {
		p.reg.metrics.outcome(p.c.name, o)
	}
	p.reg.notify(p.c, t)
}

// Release 放弃记录结果并归还准入名额
func (p Permit) Release() {
	if p.c == nil {
		return
	}
	p.c.release(p.gen)
}
