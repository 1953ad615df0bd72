package xerrors

import (
	"context"
	"strings"
)

// Kind 错误的稳定分类名，可写入配置文件（例如熔断器的计数/忽略列表）
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindUnavailable  Kind = "unavailable"
	KindTimeout      Kind = "timeout"
	KindCanceled     Kind = "canceled"
	KindInternal     Kind = "internal"
	KindUnknown      Kind = "unknown"
)

// kindTable 按优先级排列，超时先于其它分类判断
var kindTable = []struct {
	target error
	kind   Kind
}{
	{ErrTimeout, KindTimeout},
	{context.DeadlineExceeded, KindTimeout},
	{context.Canceled, KindCanceled},
	{ErrUnavailable, KindUnavailable},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrInternal, KindInternal},
}

// KindOf 返回错误链上第一个命中的分类，未命中返回 KindUnknown，nil 返回空字符串
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if Is(err, entry.target) {
			return entry.kind
		}
	}
	return KindUnknown
}

// ParseKind 解析配置中的分类名（不区分大小写，允许 "-" 代替 "_"）
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch k {
	case KindNotFound, KindConflict, KindInvalidInput, KindUnauthorized, KindForbidden,
		KindUnavailable, KindTimeout, KindCanceled, KindInternal, KindUnknown:
		return k, nil
	default:
		return "", Wrapf(ErrInvalidInput, "unknown error kind %q", s)
	}
}
