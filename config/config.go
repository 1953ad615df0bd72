package config

import (
	"context"

	"github.com/ceyewan/workhub/xerrors"
)

// New 创建配置加载器，需要调用 Load 后才能读取配置
func New(opts ...Option) (Loader, error) {
	return newLoader(opts...)
}

// MustLoad 创建并加载配置，出错时 panic
// 仅用于初始化阶段
func MustLoad(opts ...Option) Loader {
	l := xerrors.Must(New(opts...))
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
