package peer

import (
	"context"
	"net/http"
	"net/url"
)

// TaskServiceName task-service 的依赖名
const TaskServiceName = "task-service"

// TaskCounts 项目下任务的完成情况
type TaskCounts struct {
	Completed    int64 `json:"completed"`
	NonCompleted int64 `json:"non_completed"`
}

// Tasks task-service 的项目级操作客户端
type Tasks struct {
	client *Client
}

// NewTasks 创建任务客户端
func NewTasks(client *Client) *Tasks {
	return &Tasks{client: client}
}

// Counts 返回项目下已完成与未完成的任务数
func (t *Tasks) Counts(ctx context.Context, projectCode string) (TaskCounts, error) {
	return call[TaskCounts](ctx, t.client, http.MethodGet, "/api/v1/task/count/project/"+url.PathEscape(projectCode), nil)
}

// DeleteByProject 软删除项目下的全部任务
func (t *Tasks) DeleteByProject(ctx context.Context, projectCode string) error {
	_, err := call[any](ctx, t.client, http.MethodDelete, "/api/v1/task/project/"+url.PathEscape(projectCode), nil)
	return err
}

// CompleteByProject 将项目下的全部任务标记为完成
func (t *Tasks) CompleteByProject(ctx context.Context, projectCode string) error {
	_, err := call[any](ctx, t.client, http.MethodPut, "/api/v1/task/project/"+url.PathEscape(projectCode)+"/complete", nil)
	return err
}
