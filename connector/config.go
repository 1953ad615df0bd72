package connector

import (
	"fmt"
	"time"

	"github.com/ceyewan/workhub/xerrors"
)

// 支持的驱动名称
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config 数据库连接配置，对应配置文件中的 database 段
//
//	database:
//	  driver: sqlite
//	  sqlite:
//	    path: ./data/user.db
type Config struct {
	Driver string       `mapstructure:"driver"` // mysql | sqlite (默认: sqlite)
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// MySQLConfig MySQL 连接配置
type MySQLConfig struct {
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	// DSN 完整连接串，若提供则忽略 Host/Port 等字段
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 默认: 3306
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	Charset         string        `mapstructure:"charset"`           // 默认: "utf8mb4"
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`   // 默认: 5s
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 默认: 10
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 默认: 100
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 默认: 1h
}

func (c *MySQLConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
}

func (c *MySQLConfig) validate() error {
	c.setDefaults()
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return xerrors.Wrap(ErrConfig, "mysql host is required")
	}
	if c.Port <= 0 {
		return xerrors.Wrapf(ErrConfig, "mysql port must be positive, got %d", c.Port)
	}
	if c.Username == "" {
		return xerrors.Wrap(ErrConfig, "mysql username is required")
	}
	if c.Database == "" {
		return xerrors.Wrap(ErrConfig, "mysql database is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return xerrors.Wrapf(ErrConfig, "mysql max_idle_conns (%d) exceeds max_open_conns (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// dsn 返回最终使用的连接串
func (c *MySQLConfig) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&timeout=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset, c.ConnectTimeout)
}

// SQLiteConfig SQLite 连接配置
type SQLiteConfig struct {
	Name string `mapstructure:"name"` // 默认: "default"
	// Path 数据库文件路径，"file::memory:?cache=shared" 为共享内存库
	Path string `mapstructure:"path"`
}

func (c *SQLiteConfig) validate() error {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Path == "" {
		return xerrors.Wrap(ErrConfig, "sqlite path is required")
	}
	return nil
}

// New 按 Driver 创建对应的连接器
func New(cfg *Config, opts ...Option) (SQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "database config is nil")
	}
	switch cfg.Driver {
	case DriverMySQL:
		return NewMySQL(&cfg.MySQL, opts...)
	case DriverSQLite, "":
		return NewSQLite(&cfg.SQLite, opts...)
	default:
		return nil, xerrors.Wrapf(ErrConfig, "unsupported driver %q", cfg.Driver)
	}
}
