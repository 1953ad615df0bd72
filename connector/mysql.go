package connector

import (
	"database/sql"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/xerrors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 创建 MySQL 连接器
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "mysql config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := newOptions(opts)
	dsn := cfg.dsn()

	return &gormConnector{
		name:   cfg.Name,
		driver: DriverMySQL,
		logger: opt.logger.With(
			clog.String("connector", DriverMySQL),
			clog.String("name", cfg.Name),
			clog.String("host", cfg.Host),
		),
		open: func() gorm.Dialector { return mysql.Open(dsn) },
		tune: func(db *sql.DB) {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		},
	}, nil
}
