package user

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/xerrors"
)

// ServiceName 用户服务在熔断器注册表中的依赖名
const ServiceName = "user-service"

// Handler 用户接口，每个路由都在 user-service 熔断器保护下执行
type Handler struct {
	svc   *Service
	guard *resilience.Guard
}

// NewHandler 创建用户接口
func NewHandler(svc *Service, guard *resilience.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

// Register 挂载到 /api/v1/user
func (h *Handler) Register(r gin.IRouter) {
	r.GET("", h.list)
	r.GET("/:username", h.get)
	r.GET("/check/:username", h.check)
	r.POST("", h.create)
	r.PUT("", h.update)
	r.DELETE("/:username", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	h.guard.Handle(c, ServiceName, resilience.List, "", func(ctx context.Context) (resilience.Envelope, error) {
		users, err := h.svc.List(ctx)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("Users are successfully retrieved", users), nil
	})
}

func (h *Handler) get(c *gin.Context) {
	username := c.Param("username")
	h.guard.Handle(c, ServiceName, resilience.SingleLookup, username, func(ctx context.Context) (resilience.Envelope, error) {
		u, err := h.svc.Get(ctx, username)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("User is successfully retrieved", u), nil
	})
}

func (h *Handler) check(c *gin.Context) {
	username := c.Param("username")
	h.guard.Handle(c, ServiceName, resilience.SingleLookup, username, func(ctx context.Context) (resilience.Envelope, error) {
		ok, err := h.svc.Exists(ctx, username)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("User existence is checked", ok), nil
	})
}

func (h *Handler) create(c *gin.Context) {
	var u User
	if err := c.ShouldBindJSON(&u); err != nil {
		resilience.RespondError(c, xerrors.Mark(xerrors.ErrInvalidInput, "invalid request body: %v", err))
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, u.UserName, func(ctx context.Context) (resilience.Envelope, error) {
		created, err := h.svc.Create(ctx, &u)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.Created("User is successfully created", created), nil
	})
}

func (h *Handler) update(c *gin.Context) {
	var u User
	if err := c.ShouldBindJSON(&u); err != nil {
		resilience.RespondError(c, xerrors.Mark(xerrors.ErrInvalidInput, "invalid request body: %v", err))
		return
	}
	h.guard.Handle(c, ServiceName, resilience.Modify, u.UserName, func(ctx context.Context) (resilience.Envelope, error) {
		updated, err := h.svc.Update(ctx, &u)
		if err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("User is successfully updated", updated), nil
	})
}

func (h *Handler) delete(c *gin.Context) {
	username := c.Param("username")
	h.guard.Handle(c, ServiceName, resilience.Action, username, func(ctx context.Context) (resilience.Envelope, error) {
		if err := h.svc.Delete(ctx, username); err != nil {
			return resilience.Envelope{}, err
		}
		return resilience.OK("User is successfully deleted", nil), nil
	})
}
