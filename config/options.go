package config

import (
	"strings"

	"github.com/ceyewan/workhub/clog"
)

// Option 配置选项模式
type Option func(*Options)

// Options 加载器选项
type Options struct {
	Name      string   // 配置文件名称（不含扩展名）
	Paths     []string // 配置文件搜索路径
	FileType  string   // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string   // 环境变量前缀
	Logger    clog.Logger
}

func defaultOptions() *Options {
	return &Options{
		Name:      "config",
		Paths:     []string{".", "./configs"},
		FileType:  "yaml",
		EnvPrefix: "WORKHUB",
		Logger:    clog.Discard(),
	}
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithConfigPath 追加配置文件搜索路径
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.Paths = append(o.Paths, path)
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *Options) {
		o.Paths = paths
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(o *Options) {
		o.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = strings.ToUpper(prefix)
	}
}

// WithLogger 设置 Logger，内部会自动添加 namespace: "config"
func WithLogger(logger clog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger.WithNamespace("config")
		}
	}
}
