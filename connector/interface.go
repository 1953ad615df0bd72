// Package connector 管理关系型数据库连接的生命周期。
//
// 当前提供两种实现：
//   - MySQL：生产部署使用
//   - SQLite：本地开发与测试使用（支持 file::memory: 内存库）
//
// NewXXX() 只校验配置、不建立连接，Connect() 时才真正打开连接池。
// Connect() 是幂等的，Close() 之后可以再次 Connect()。
//
// 基本使用：
//
//	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Path: "workhub.db"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	gormDB := conn.GetClient()
//
// 资源所有权：Connector 拥有底层连接，db 组件只借用它，不负责关闭。
package connector

import (
	"context"

	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为，方法均为并发安全
type Connector interface {
	// Connect 建立连接，已连接时直接返回 nil
	//
	// 连接失败返回的错误同时匹配 ErrConnection 与 xerrors.ErrUnavailable。
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，可重复调用
	Close() error

	// HealthCheck 主动探测连接，未连接时返回 ErrClientNil
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次探测的结果，不产生网络请求
	IsHealthy() bool

	// Name 返回连接器名称，用于日志区分多个实例
	Name() string
}

// TypedConnector 在 Connector 基础上暴露类型化的客户端
type TypedConnector[T any] interface {
	Connector
	// GetClient 返回底层客户端，未连接时返回零值
	GetClient() T
}

// SQLConnector 基于 GORM 的关系型数据库连接器
type SQLConnector interface {
	TypedConnector[*gorm.DB]
	// Driver 返回驱动名称（"mysql" 或 "sqlite"）
	Driver() string
}

// MySQLConnector MySQL 连接器
type MySQLConnector interface {
	SQLConnector
}

// SQLiteConnector SQLite 连接器
type SQLiteConnector interface {
	SQLConnector
}
