package task

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/xerrors"
)

// ServiceName 任务服务在熔断器注册表中的依赖名
const ServiceName = "task-service"

// StatusUpdate 员工更新任务状态的请求体
type StatusUpdate struct {
	ID         uint   `json:"id"`
	TaskStatus Status `json:"task_status"`
}

// Handler 任务接口
type Handler struct {
	svc   *Service
	guard *resilience.Guard
}

// NewHandler 创建任务接口
func NewHandler(svc *Service, guard *resilience.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

// Register 挂载到 /api/v1/task
func (h *Handler) Register(r gin.IRouter) {
	r.GET("", h.list)
	r.GET("/:id", h.get)
	r.POST("", h.create)
	r.PUT("", h.update)
	r.DELETE("/:id", h.delete)

	r.GET("/employee/pending-tasks", h.pending)
	r.GET("/employee/archive", h.archive)
	r.PUT("/employee/update", h.updateStatus)

	r.GET("/count/project/:code", h.counts)
	r.DELETE("/project/:code", h.deleteByProject)
	r.PUT("/project/:code/complete", h.completeByProject)
}

func (h *Handler) list(c *gin.Context) {
	h.guard.Handle(c, ServiceName, resilience.List, "", func(ctx context.Context) (resilience.Envelope, error) {
		tasks, err := h.svc.List(ctx)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Task are successfully retrieved", tasks), nil
	})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.SingleLookup, c.Param("id"), func(ctx context.Context) (resilience.Envelope, error) {
		t, err := h.svc.Get(ctx, id)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Task is successfully retrieved", t), nil
	})
}

func (h *Handler) create(c *gin.Context) {
	var t Task
	if !bind(c, &t) {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, t.TaskSubject, func(ctx context.Context) (resilience.Envelope, error) {
		created, err := h.svc.Create(ctx, &t)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.Created("Task is successfully created", created), nil
	})
}

func (h *Handler) update(c *gin.Context) {
	var t Task
	if !bind(c, &t) {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, strconv.FormatUint(uint64(t.ID), 10), func(ctx context.Context) (resilience.Envelope, error) {
		updated, err := h.svc.Update(ctx, &t)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Task is successfully updated", updated), nil
	})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Action, c.Param("id"), func(ctx context.Context) (resilience.Envelope, error) {
		if err := h.svc.Delete(ctx, id); err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Task is successfully deleted", nil), nil
	})
}

func (h *Handler) pending(c *gin.Context) {
	h.byEmployee(c, h.svc.Pending)
}

func (h *Handler) archive(c *gin.Context) {
	h.byEmployee(c, h.svc.Archive)
}

func (h *Handler) byEmployee(c *gin.Context, fetch func(context.Context, string) ([]Task, error)) {
	username := c.Query("user")
	if username == "" {
		resilience.RespondError(c, xerrors.Mark(xerrors.ErrInvalidInput, "query parameter user is required"))
		return
	}
	h.guard.Handle(c, ServiceName, resilience.List, username, func(ctx context.Context) (resilience.Envelope, error) {
		tasks, err := fetch(ctx, username)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Tasks are successfully retrieved", tasks), nil
	})
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req StatusUpdate
	if !bind(c, &req) {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, strconv.FormatUint(uint64(req.ID), 10), func(ctx context.Context) (resilience.Envelope, error) {
		t, err := h.svc.UpdateStatus(ctx, req.ID, req.TaskStatus)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Task is successfully updated", t), nil
	})
}

func (h *Handler) counts(c *gin.Context) {
	code := c.Param("code")
	h.guard.Handle(c, ServiceName, resilience.SingleLookup, code, func(ctx context.Context) (resilience.Envelope, error) {
		counts, err := h.svc.Counts(ctx, code)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Task counts are successfully retrieved", counts), nil
	})
}

func (h *Handler) deleteByProject(c *gin.Context) {
	code := c.Param("code")
	h.guard.Handle(c, ServiceName, resilience.Action, code, func(ctx context.Context) (resilience.Envelope, error) {
		if err := h.svc.DeleteByProject(ctx, code); err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Tasks are successfully deleted", nil), nil
	})
}

func (h *Handler) completeByProject(c *gin.Context) {
	code := c.Param("code")
	h.guard.Handle(c, ServiceName, resilience.Action, code, func(ctx context.Context) (resilience.Envelope, error) {
		if err := h.svc.CompleteByProject(ctx, code); err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Tasks are successfully completed", nil), nil
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		resilience.RespondError(c, xerrors.Mark(xerrors.ErrInvalidInput, "invalid task id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		resilience.RespondError(c, xerrors.Mark(xerrors.ErrInvalidInput, "invalid request body: %v", err))
		return false
	}
	return true
}
