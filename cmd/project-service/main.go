// project-service 管理项目，依赖 user-service 校验经理、依赖 task-service 统计与处理任务
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
	"github.com/ceyewan/workhub/internal/project"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "project-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := app.LoadConfig(ctx, project.ServiceName)
	if err != nil {
		return err
	}
	rt, err := app.Bootstrap(ctx, cfg, app.WithModels(&project.Project{}))
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "project-service: shutdown: %v\n", err)
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
	taskClient, _, err := rt.Peer(peer.TaskServiceName)
	if err != nil {
		return err
	}

	svc := project.NewService(project.NewRepository(rt.DB), users, peer.NewTasks(taskClient), rt.Logger)
	project.NewHandler(svc, rt.Guard).Register(rt.Router().Group("/api/v1/project"))

	if err := rt.Run(ctx); err != nil {
		rt.Logger.Error("server stopped with error", clog.Error(err))
		return err
	}
	return nil
}
