// Package clog 提供基于 slog 的结构化日志组件。
// 支持 Context 字段提取、OpenTelemetry TraceID 注入和命名空间管理。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("service started", clog.String("addr", ":8081"))
//
// 使用函数式选项：
//
//	logger, _ := clog.New(&clog.Config{Level: "info"},
//	    clog.WithNamespace("user-service", "api"),
//	    clog.WithTraceContext(), // 自动提取 trace_id, span_id
//	)
package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 创建子 Logger：
//
//	childLogger := logger.With(clog.String("dependency", "user-service"))
//	namespacedLogger := logger.WithNamespace("breaker")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// 带 Context 的版本会自动提取配置的 Context 字段以及 TraceID
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	//   logger.WithNamespace("task-service").WithNamespace("peer")
	//   // 最终命名空间为 "task-service.peer"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对所有共享同一 handler 的子 Logger 生效
	SetLevel(level Level) error

	// Flush 强制同步所有缓冲区的日志
	Flush()
}
