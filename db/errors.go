package db

import (
	"github.com/ceyewan/workhub/xerrors"
	"gorm.io/gorm"
)

var (
	// ErrConnectorRequired 未提供连接器
	ErrConnectorRequired = xerrors.Wrap(xerrors.ErrInvalidInput, "db: connector is required")
)

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return xerrors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate 判断是否为唯一键冲突，需要连接器开启 TranslateError
func IsDuplicate(err error) bool {
	return xerrors.Is(err, gorm.ErrDuplicatedKey)
}
