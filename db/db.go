// Package db 在 connector 提供的 GORM 连接之上封装数据库组件。
//
// db 组件提供：
//   - 按请求 context 派生的 *gorm.DB
//   - 事务封装
//   - clog 适配的 GORM 日志
//   - OpenTelemetry 链路追踪（otelgorm 插件）
//   - 启动时的 AutoMigrate
//
// 基本使用：
//
//	conn, _ := connector.New(&cfg.Database, connector.WithLogger(logger))
//	_ = conn.Connect(ctx)
//	defer conn.Close()
//
//	database, _ := db.New(conn, db.WithLogger(logger), db.WithTracer(tp))
//	if err := database.AutoMigrate(ctx, &user.User{}); err != nil {
//		return err
//	}
//
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return tx.Create(&u).Error
//	})
//
// db 组件借用连接器的连接，Close 不会关闭底层连接池。
package db

import (
	"context"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/connector"
	"github.com/ceyewan/workhub/xerrors"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DB 定义了数据库组件的核心能力
type DB interface {
	// DB 获取绑定了 ctx 的 *gorm.DB，业务查询直接使用
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务，fn 中的 tx 仅在当前事务范围内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// AutoMigrate 按模型创建或更新表结构
	AutoMigrate(ctx context.Context, models ...any) error

	// Close 关闭组件
	Close() error
}

type database struct {
	client *gorm.DB
	logger clog.Logger
}

// New 基于已连接的连接器创建数据库组件
func New(conn connector.SQLConnector, opts ...Option) (DB, error) {
	if conn == nil {
		return nil, ErrConnectorRequired
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrapf(connector.ErrClientNil, "db: connector %s", conn.Name())
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	// Session 派生新实例，避免修改连接器持有的全局配置
	gormDB := client.Session(&gorm.Session{
		Logger: newGormLogger(opt.logger, opt.silentMode, opt.slowThreshold),
	})

	if opt.tracer != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(opt.tracer),
			otelgorm.WithDBName(conn.Name()),
			otelgorm.WithoutQueryVariables(),
		)
		if err := gormDB.Use(plugin); err != nil {
			return nil, xerrors.Wrap(err, "db: register otelgorm plugin")
		}
	}

	opt.logger.Info("db component ready",
		clog.String("driver", conn.Driver()),
		clog.Bool("tracing", opt.tracer != nil))

	return &database{client: gormDB, logger: opt.logger}, nil
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) AutoMigrate(ctx context.Context, models ...any) error {
	if err := d.client.WithContext(ctx).AutoMigrate(models...); err != nil {
		d.logger.ErrorContext(ctx, "auto migrate failed", clog.Error(err))
		return xerrors.Wrap(err, "db: auto migrate")
	}
	d.logger.Info("auto migrate completed", clog.Int("models", len(models)))
	return nil
}

// Close 连接由连接器管理，这里不做任何事
func (d *database) Close() error {
	return nil
}
