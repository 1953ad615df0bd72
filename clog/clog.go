package clog

import "github.com/ceyewan/workhub/xerrors"

// New 创建一个新的 Logger 实例
//
// config - 日志配置，如果为 nil 会使用开发环境默认配置
// opts   - 函数式选项列表，用于命名空间、Context 字段等配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("")
	}

	if err := config.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid config")
	}

	return newLogger(config, applyOptions(opts...))
}

// Must 类似 New，但出错时 panic，仅用于初始化阶段
func Must(config *Config, opts ...Option) Logger {
	return xerrors.Must(New(config, opts...))
}
