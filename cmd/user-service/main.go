// user-service 提供用户管理接口，并为其他服务提供用户存在性校验
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/internal/app"
	"github.com/ceyewan/workhub/internal/user"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "user-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := app.LoadConfig(ctx, user.ServiceName)
	if err != nil {
		return err
	}
	rt, err := app.Bootstrap(ctx, cfg, app.WithModels(&user.User{}))
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "user-service: shutdown: %v\n", err)
		}
	}()
	rt.WatchLogLevel(ctx, loader)

	svc := user.NewService(user.NewRepository(rt.DB), user.WithLogger(rt.Logger))
	user.NewHandler(svc, rt.Guard).Register(rt.Router().Group("/api/v1/user"))

	if err := rt.Run(ctx); err != nil {
		rt.Logger.Error("server stopped with error", clog.Error(err))
		return err
	}
	return nil
}
