// Package config 为 workhub 各服务提供统一的配置加载，基于 Viper 实现。
//
// 配置来源优先级：环境变量 > .env > 环境特定配置（<name>.<env>.yaml）> 基础配置。
// 环境由 <PREFIX>_ENV 指定，例如 WORKHUB_ENV=prod 会合并 user-service.prod.yaml。
//
// 基本使用：
//
//	loader := config.MustLoad(
//		config.WithConfigName("user-service"),
//		config.WithConfigPaths("./configs"),
//		config.WithEnvPrefix("WORKHUB"),
//	)
//
//	var cfg app.Config
//	if err := loader.Unmarshal(&cfg); err != nil {
//		return err
//	}
//
//	// 监听配置变化
//	ch, _ := loader.Watch(ctx, "log.level")
//	for event := range ch {
//		logger.SetLevel(...)
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 从所有来源加载配置并开始监听文件变化
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
