package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/workhub/connector"
	"github.com/ceyewan/workhub/db"
)

// NewSQLiteConfig 返回独立命名的共享内存库配置，测试之间互不可见
func NewSQLiteConfig() *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-" + NewID(),
		Path: fmt.Sprintf("file:%s?mode=memory&cache=shared", NewID()),
	}
}

// NewSQLiteConnector 获取已连接的 SQLite 内存库连接器，生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	conn, err := connector.NewSQLite(NewSQLiteConfig(), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewDB 返回建好表的 db 组件
func NewDB(t *testing.T, models ...any) db.DB {
	t.Helper()
	database, err := db.New(NewSQLiteConnector(t), db.WithLogger(NewLogger()), db.WithSilentMode())
	require.NoError(t, err)
	if len(models) > 0 {
		require.NoError(t, database.AutoMigrate(context.Background(), models...))
	}
	return database
}
