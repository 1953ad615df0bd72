package project

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/xerrors"
)

// ServiceName 项目服务在熔断器注册表中的依赖名
const ServiceName = "project-service"

// Handler 项目接口
type Handler struct {
	svc   *Service
	guard *resilience.Guard
}

// NewHandler 创建项目接口
func NewHandler(svc *Service, guard *resilience.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

// Register 挂载到 /api/v1/project
func (h *Handler) Register(r gin.IRouter) {
	r.GET("", h.list)
	r.GET("/:code", h.get)
	r.POST("", h.create)
	r.PUT("", h.update)
	r.DELETE("/:code", h.delete)
	r.GET("/details/:username", h.details)
	r.PUT("/manager/complete/:code", h.complete)
}

func (h *Handler) list(c *gin.Context) {
	h.guard.Handle(c, ServiceName, resilience.List, "", func(ctx context.Context) (resilience.Envelope, error) {
		projects, err := h.svc.List(ctx)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Projects are successfully retrieved", projects), nil
	})
}

func (h *Handler) get(c *gin.Context) {
	code := c.Param("code")
	h.guard.Handle(c, ServiceName, resilience.SingleLookup, code, func(ctx context.Context) (resilience.Envelope, error) {
		p, err := h.svc.Get(ctx, code)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Project is successfully retrieved", p), nil
	})
}

func (h *Handler) create(c *gin.Context) {
	var p Project
	if !bind(c, &p) {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, p.ProjectCode, func(ctx context.Context) (resilience.Envelope, error) {
		created, err := h.svc.Create(ctx, &p)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.Created("Project is successfully created", created), nil
	})
}

func (h *Handler) update(c *gin.Context) {
	var p Project
	if !bind(c, &p) {
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, p.ProjectCode, func(ctx context.Context) (resilience.Envelope, error) {
		updated, err := h.svc.Update(ctx, &p)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Project is successfully updated", updated), nil
	})
}

func (h *Handler) delete(c *gin.Context) {
	code := c.Param("code")
	h.guard.Handle(c, ServiceName, resilience.Action, code, func(ctx context.Context) (resilience.Envelope, error) {
		if err := h.svc.Delete(ctx, code); err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Project is successfully deleted", nil), nil
	})
}

func (h *Handler) details(c *gin.Context) {
	username := c.Param("username")
	h.guard.Handle(c, ServiceName, resilience.List, username, func(ctx context.Context) (resilience.Envelope, error) {
		details, err := h.svc.Details(ctx, username)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Projects are retrieved with details", details), nil
	})
}

func (h *Handler) complete(c *gin.Context) {
	code := c.Param("code")
	h.guard.Handle(c, ServiceName, resilience.Action, code, func(ctx context.Context) (resilience.Envelope, error) {
		if err := h.svc.Complete(ctx, code); err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Project is successfully completed", nil), nil
	})
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		resilience.RespondError(c, xerrors.Mark(xerrors.ErrInvalidInput, "invalid request body: %v", err))
		return false
	}
	return true
}
