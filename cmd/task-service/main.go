// task-service 管理任务，并为 project-service 提供项目级任务操作
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/internal/app"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/internal/task"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "task-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := app.LoadConfig(ctx, task.ServiceName)
	if err != nil {
		return err
	}
	rt, err := app.Bootstrap(ctx, cfg, app.WithModels(&task.Task{}))
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "task-service: shutdown: %v\n", err)
		}
	}()
	rt.WatchLogLevel(ctx, loader)

	userClient, userCfg, err := rt.Peer(peer.UserServiceName)
	if err != nil {
		return err
	}
	users, err := peer.NewUsers(userClient, userCfg)
	if err != nil {
		return err
	}

	svc := task.NewService(task.NewRepository(rt.DB), users, task.WithLogger(rt.Logger))
	task.NewHandler(svc, rt.Guard).Register(rt.Router().Group("/api/v1/task"))

	if err := rt.Run(ctx); err != nil {
		rt.Logger.Error("server stopped with error", clog.Error(err))
		return err
	}
	return nil
}
