package app

import (
	"context"
	"time"

	"github.com/spf13/cast"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/config"
	"github.com/ceyewan/workhub/connector"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/trace"
	"github.com/ceyewan/workhub/xerrors"
)

// Config 单个服务的完整配置
type Config struct {
	App      Info                   `mapstructure:"app"`
	HTTP     HTTPConfig             `mapstructure:"http"`
	Log      clog.Config            `mapstructure:"log"`
	Trace    trace.Config           `mapstructure:"trace"`
	Metrics  metrics.Config         `mapstructure:"metrics"`
	Database connector.Config       `mapstructure:"database"`
	Breaker  BreakerConfig          `mapstructure:"breaker"`
	Peers    map[string]peer.Config `mapstructure:"peers"`
}

// Info 服务基本信息
type Info struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务器配置
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`                // 默认: ":8080"
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"` // 默认: 5s
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`    // 默认: 10s
}

// BreakerConfig 熔断策略与错误分类，两者位于同一个 breaker 配置段
type BreakerConfig struct {
	Policies breaker.Config    `mapstructure:",squash"`
	Kinds    resilience.Config `mapstructure:",squash"`
}

// LoadConfig 通过 config 包加载 <name>.yaml 并补齐默认值
func LoadConfig(ctx context.Context, name string, opts ...config.Option) (*Config, config.Loader, error) {
	loader, err := config.New(append([]config.Option{config.WithConfigName(name)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, nil, xerrors.Wrap(err, "app: unmarshal config")
	}
	if err := rejectZeroOverrides(loader, cfg.Breaker.Policies.Dependencies); err != nil {
		return nil, nil, xerrors.Wrap(err, "app: breaker config")
	}
	if cfg.App.Name == "" {
		cfg.App.Name = name
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, loader, nil
}

// overrideKeys 依赖覆盖中的策略字段，true 表示按时长解析
var overrideKeys = map[string]bool{
	"window_size":                    false,
	"failure_rate_threshold":         false,
	"minimum_calls":                  false,
	"wait_duration":                  true,
	"permitted_trial_calls":          false,
	"required_consecutive_successes": false,
}

// rejectZeroOverrides 拒绝依赖覆盖中显式写为 0 的字段
//
// breaker.Policy 的零值表示继承默认策略，解码后已无法区分“未写”与“写了 0”，
// 所以这里直接检查原始配置。
func rejectZeroOverrides(loader config.Loader, deps map[string]breaker.Policy) error {
	for name := range deps {
		for key, isDuration := range overrideKeys {
			raw := loader.Get("breaker.dependencies." + name + "." + key)
			if raw == nil {
				continue
			}
			var zero bool
			if isDuration {
				d, err := cast.ToDurationE(raw)
				zero = err == nil && d == 0
			} else {
				f, err := cast.ToFloat64E(raw)
				zero = err == nil && f == 0
			}
			if zero {
				return xerrors.Wrapf(breaker.ErrInvalidPolicy,
					"policy for %s: %s must not be 0, omit it to inherit the default", name, key)
			}
		}
	}
	return nil
}

// SetDefaults 补齐未配置的字段
func (c *Config) SetDefaults() {
	if c.App.Version == "" {
		c.App.Version = "dev"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Trace.ServiceName == "" {
		c.Trace.ServiceName = c.App.Name
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.App.Name
	}
	if c.Metrics.Version == "" {
		c.Metrics.Version = c.App.Version
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if len(c.Breaker.Kinds.CountedKinds) == 0 && len(c.Breaker.Kinds.IgnoredKinds) == 0 {
		c.Breaker.Kinds = resilience.DefaultConfig()
	}
}

// Validate 校验配置，熔断策略非法时服务不应启动
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return xerrors.Wrap(config.ErrValidationFailed, "app.name is required")
	}
	if err := c.Breaker.Policies.Validate(); err != nil {
		return xerrors.Wrap(err, "app: breaker config")
	}
	if _, err := resilience.NewClassifier(c.Breaker.Kinds); err != nil {
		return xerrors.Wrap(err, "app: breaker kinds")
	}
	return nil
}

// Peer 返回对端服务配置，未配置时返回错误
func (c *Config) Peer(name string) (peer.Config, error) {
	pc, ok := c.Peers[name]
	if !ok {
		return peer.Config{}, xerrors.Wrapf(config.ErrValidationFailed, "peers.%s is not configured", name)
	}
	return pc, nil
}
