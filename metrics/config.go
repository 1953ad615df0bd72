package metrics

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "user-service"
//	  version: "v1.2.3"
//	  port: 0          # 0 表示与业务端口共用，由路由挂载 Handler()
//	  path: "/metrics"
//	  runtime: true    # 采集 Go runtime 指标
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 写入 OTel Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 写入 OTel Resource 的 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动独立的 Prometheus HTTP 服务器
	Port int `mapstructure:"port"`

	// Path 指标暴露路径，必须以 "/" 开头
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go runtime 指标（GC、goroutine、内存）
	Runtime bool `mapstructure:"runtime"`
}

// NewDevDefaultConfig 开发环境默认配置
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Port:        9090,
		Path:        "/metrics",
	}
}

// NewProdDefaultConfig 生产环境默认配置
func NewProdDefaultConfig(serviceName, version string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     version,
		Port:        9090,
		Path:        "/metrics",
		Runtime:     true,
	}
}
