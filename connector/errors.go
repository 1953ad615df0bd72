package connector

import (
	"fmt"

	"github.com/ceyewan/workhub/xerrors"
)

// 连接器哨兵错误
var (
	ErrClientNil   = xerrors.New("connector: client is nil, call Connect first")
	ErrConnection  = xerrors.New("connector: connection failed")
	ErrConfig      = xerrors.Wrap(xerrors.ErrInvalidInput, "connector: invalid config")
	ErrHealthCheck = xerrors.New("connector: health check failed")
)

// unavailable 将连接类错误同时标记为 ErrUnavailable，便于上层按分类处理
func unavailable(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w (%w)", fmt.Sprintf(format, args...), sentinel, xerrors.ErrUnavailable)
}
