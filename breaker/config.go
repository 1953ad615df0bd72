package breaker

import (
	"time"

	"github.com/ceyewan/workhub/xerrors"
)

// Config 熔断器组件配置
//
// 典型配置（YAML）：
//
//	breaker:
//	  default:
//	    window_size: 10
//	    failure_rate_threshold: 0.5
//	    minimum_calls: 4
//	    wait_duration: 30s
//	    permitted_trial_calls: 3
//	    required_consecutive_successes: 2
//	  dependencies:
//	    user-service:
//	      wait_duration: 10s
type Config struct {
	// Default 默认策略，未单独配置的依赖使用此策略
	Default Policy `json:"default" yaml:"default" mapstructure:"default"`

	// Dependencies 按依赖名覆盖策略，未设置的字段继承 Default
	Dependencies map[string]Policy `json:"dependencies" yaml:"dependencies" mapstructure:"dependencies"`
}

// Policy 单个依赖的熔断策略
//
// 结构体中的零值字段表示“继承 Default”，因此无法在此表达显式的 0。
// 从配置文件加载时，依赖覆盖里显式写 0 的字段由加载方拒绝（见 app.LoadConfig）。
type Policy struct {
	// WindowSize 滑动窗口容量（最近 N 次调用结果）
	WindowSize int `json:"window_size" yaml:"window_size" mapstructure:"window_size"`

	// FailureRateThreshold 失败率阈值，取值 (0, 1]
	FailureRateThreshold float64 `json:"failure_rate_threshold" yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`

	// MinimumCalls 窗口内结果数达到此值才评估失败率，取值 [1, WindowSize]
	MinimumCalls int `json:"minimum_calls" yaml:"minimum_calls" mapstructure:"minimum_calls"`

	// WaitDuration Open 状态持续时间
	WaitDuration time.Duration `json:"wait_duration" yaml:"wait_duration" mapstructure:"wait_duration"`

	// PermittedTrialCalls HalfOpen 状态允许的探测调用数
	PermittedTrialCalls int `json:"permitted_trial_calls" yaml:"permitted_trial_calls" mapstructure:"permitted_trial_calls"`

	// RequiredConsecutiveSuccesses HalfOpen 关闭所需的连续成功数，取值 [1, PermittedTrialCalls]
	RequiredConsecutiveSuccesses int `json:"required_consecutive_successes" yaml:"required_consecutive_successes" mapstructure:"required_consecutive_successes"`
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		WindowSize:                   10,
		FailureRateThreshold:         0.5,
		MinimumCalls:                 4,
		WaitDuration:                 30 * time.Second,
		PermittedTrialCalls:          3,
		RequiredConsecutiveSuccesses: 2,
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Default:      DefaultPolicy(),
		Dependencies: make(map[string]Policy),
	}
}

// inherit 用 base 填充 p 中的零值字段
func (p Policy) inherit(base Policy) Policy {
	if p.WindowSize == 0 {
		p.WindowSize = base.WindowSize
	}
	if p.FailureRateThreshold == 0 {
		p.FailureRateThreshold = base.FailureRateThreshold
	}
	if p.MinimumCalls == 0 {
		p.MinimumCalls = base.MinimumCalls
	}
	if p.WaitDuration == 0 {
		p.WaitDuration = base.WaitDuration
	}
	if p.PermittedTrialCalls == 0 {
		p.PermittedTrialCalls = base.PermittedTrialCalls
	}
	if p.RequiredConsecutiveSuccesses == 0 {
		p.RequiredConsecutiveSuccesses = base.RequiredConsecutiveSuccesses
	}
	return p
}

// Validate 检查策略取值范围
func (p Policy) Validate() error {
	switch {
	case p.WindowSize < 1:
		return xerrors.Wrapf(ErrInvalidPolicy, "window_size must be >= 1, got %d", p.WindowSize)
	case p.FailureRateThreshold <= 0 || p.FailureRateThreshold > 1:
		return xerrors.Wrapf(ErrInvalidPolicy, "failure_rate_threshold must be in (0, 1], got %v", p.FailureRateThreshold)
	case p.MinimumCalls < 1 || p.MinimumCalls > p.WindowSize:
		return xerrors.Wrapf(ErrInvalidPolicy, "minimum_calls must be in [1, %d], got %d", p.WindowSize, p.MinimumCalls)
	case p.WaitDuration <= 0:
		return xerrors.Wrapf(ErrInvalidPolicy, "wait_duration must be positive, got %v", p.WaitDuration)
	case p.PermittedTrialCalls < 1:
		return xerrors.Wrapf(ErrInvalidPolicy, "permitted_trial_calls must be >= 1, got %d", p.PermittedTrialCalls)
	case p.RequiredConsecutiveSuccesses < 1 || p.RequiredConsecutiveSuccesses > p.PermittedTrialCalls:
		return xerrors.Wrapf(ErrInvalidPolicy, "required_consecutive_successes must be in [1, %d], got %d",
			p.PermittedTrialCalls, p.RequiredConsecutiveSuccesses)
	}
	return nil
}

// Validate 按继承规则补齐后校验全部策略，不修改 c
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	_, _, err := c.resolve()
	return err
}

// resolve 填充默认值并校验全部策略
func (c *Config) resolve() (Policy, map[string]Policy, error) {
	def := c.Default.inherit(DefaultPolicy())
	if err := def.Validate(); err != nil {
		return Policy{}, nil, xerrors.Wrap(err, "default policy")
	}

	deps := make(map[string]Policy, len(c.Dependencies))
	for name, p := range c.Dependencies {
		if name == "" {
			return Policy{}, nil, ErrNameEmpty
		}
		merged := p.inherit(def)
		if err := merged.Validate(); err != nil {
			return Policy{}, nil, xerrors.Wrapf(err, "policy for %s", name)
		}
		deps[name] = merged
	}
	return def, deps, nil
}
