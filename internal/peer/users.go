package peer

import (
	"context"
	"net/http"
	"net/url"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/workhub/xerrors"
)

// UserServiceName user-service 的依赖名
const UserServiceName = "user-service"

// Users user-service 的查询客户端
//
// 只缓存"用户存在"的结果，不存在的用户每次都会回源，避免新建用户后仍被判定为不存在。
type Users struct {
	client *Client
	cache  *otter.Cache[string, bool]
}

// NewUsers 创建带本地缓存的用户查询客户端
func NewUsers(client *Client, cfg Config) (*Users, error) {
	if client == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "peer: client is required")
	}
	cfg.setDefaults()

	cache, err := otter.New(&otter.Options[string, bool]{
		MaximumSize:      cfg.CacheSize,
		ExpiryCalculator: otter.ExpiryWriting[string, bool](cfg.CacheTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "peer: build user cache")
	}
	return &Users{client: client, cache: cache}, nil
}

// Exists 判断用户是否存在（未删除）
func (u *Users) Exists(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	if ok, hit := u.cache.GetIfPresent(username); hit {
		return ok, nil
	}

	exists, err := call[bool](ctx, u.client, http.MethodGet, "/api/v1/user/check/"+url.PathEscape(username), nil)
	if err != nil {
		return false, err
	}
	if exists {
		u.cache.Set(username, true)
	}
	return exists, nil
}

// Forget 使缓存中的用户失效
func (u *Users) Forget(username string) {
	u.cache.Invalidate(username)
}
