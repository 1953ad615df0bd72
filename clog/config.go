package clog

import (
	"fmt"
	"strings"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置结构，定义日志的基本行为
//
// 示例：
//
//	config := &clog.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "/var/log/user-service.log",
//	    AddSource: true,
//	}
type Config struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`                   // debug|info|warn|error|fatal
	Format     string `json:"format" yaml:"format" mapstructure:"format"`                // json|console
	Output     string `json:"output" yaml:"output" mapstructure:"output"`                // stdout|stderr|<file path>
	AddSource  bool   `json:"addSource" yaml:"addSource" mapstructure:"add_source"`      // 是否输出调用位置
	SourceRoot string `json:"sourceRoot" yaml:"sourceRoot" mapstructure:"source_root"` // 用于裁剪文件路径
}

// NewDevDefaultConfig 开发环境默认配置：debug 级别、console 格式、输出调用位置
func NewDevDefaultConfig(sourceRoot string) *Config {
	return &Config{
		Level:      "debug",
		Format:     "console",
		Output:     "stdout",
		AddSource:  true,
		SourceRoot: sourceRoot,
	}
}

// NewProdDefaultConfig 生产环境默认配置：info 级别、json 格式
func NewProdDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// validate 设置默认值并检查 Level 与 Format
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}
