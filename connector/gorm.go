package connector

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/workhub/clog"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormConnector 是 MySQL 与 SQLite 连接器的公共实现
//
// 各驱动只提供 dialector 和连接池调优，连接生命周期在这里统一管理。
type gormConnector struct {
	name    string
	driver  string
	logger  clog.Logger
	open    func() gorm.Dialector
	tune    func(*sql.DB)
	healthy atomic.Bool

	mu sync.RWMutex
	db *gorm.DB
}

// Connect 建立连接
func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect")

	db, err := gorm.Open(c.open(), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	if err != nil {
		c.logger.Error("failed to open database", clog.Error(err))
		return unavailable(ErrConnection, "%s connector[%s]: %v", c.driver, c.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return unavailable(ErrConnection, "%s connector[%s]: failed to get db instance: %v", c.driver, c.name, err)
	}
	if c.tune != nil {
		c.tune(sqlDB)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		c.logger.Error("failed to ping database", clog.Error(err))
		_ = sqlDB.Close()
		return unavailable(ErrConnection, "%s connector[%s]: ping failed: %v", c.driver, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("successfully connected")
	return nil
}

// Close 关闭连接
func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close connection", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info("connection closed")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *gormConnector) HealthCheck(ctx context.Context) error {
	db := c.GetClient()
	if db == nil {
		c.healthy.Store(false)
		return unavailable(ErrClientNil, "%s connector[%s]", c.driver, c.name)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.healthy.Store(false)
		return unavailable(ErrHealthCheck, "%s connector[%s]: %v", c.driver, c.name, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("health check failed", clog.Error(err))
		return unavailable(ErrHealthCheck, "%s connector[%s]: %v", c.driver, c.name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *gormConnector) IsHealthy() bool { return c.healthy.Load() }

func (c *gormConnector) Name() string { return c.name }

func (c *gormConnector) Driver() string { return c.driver }

// GetClient 返回 GORM 客户端，未连接时为 nil
func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
