package peer

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/ceyewan/workhub/xerrors"
)

// transportError 将未拿到响应的失败映射到分类：取消、超时或不可用
func transportError(ctx context.Context, peer string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("peer %s: %w", peer, ctxErr)
	}
	var netErr net.Error
	if xerrors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("peer %s: %w: %w", peer, xerrors.ErrTimeout, err)
	}
	return fmt.Errorf("peer %s: %w: %w", peer, xerrors.ErrUnavailable, err)
}

// statusError 将对端的非 2xx 响应映射到分类，5xx 视为对端不可用
func statusError(peer, method, path string, status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return xerrors.Mark(sentinelFor(status), "peer %s: %s %s returned %d: %s", peer, method, path, status, message)
}

func sentinelFor(status int) error {
	switch {
	case status >= http.StatusInternalServerError:
		return xerrors.ErrUnavailable
	case status == http.StatusNotFound:
		return xerrors.ErrNotFound
	case status == http.StatusConflict:
		return xerrors.ErrConflict
	case status == http.StatusUnauthorized:
		return xerrors.ErrUnauthorized
	case status == http.StatusForbidden:
		return xerrors.ErrForbidden
	case status == http.StatusTooManyRequests:
		return xerrors.ErrUnavailable
	default:
		return xerrors.ErrInvalidInput
	}
}
