package peer

import (
	"time"

	"github.com/ceyewan/workhub/xerrors"
)

// Config 对端服务客户端配置
//
//	peers:
//	  user-service:
//	    base_url: "http://localhost:8081"
//	    timeout: 3s
//	    rate_limit: 200   # 每秒请求数，0 表示不限流
//	    burst: 50
//	    cache_ttl: 30s
//	    cache_size: 10000
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		c.Burst = max(1, int(c.RateLimit))
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 10_000
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if c.BaseURL == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "peer: base_url is required")
	}
	if c.RateLimit < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "peer: rate_limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}
