package connector

import (
	"database/sql"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/xerrors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 创建 SQLite 连接器
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := newOptions(opts)
	path := cfg.Path

	return &gormConnector{
		name:   cfg.Name,
		driver: DriverSQLite,
		logger: opt.logger.With(
			clog.String("connector", DriverSQLite),
			clog.String("name", cfg.Name),
			clog.String("path", path),
		),
		open: func() gorm.Dialector { return sqlite.Open(path) },
		// SQLite 单写者，限制为一个连接避免 database is locked
		tune: func(db *sql.DB) { db.SetMaxOpenConns(1) },
	}, nil
}
