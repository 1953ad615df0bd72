package task

import (
	"context"
	"time"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/xerrors"
)

// 业务错误
var (
	ErrNotFound        = xerrors.Mark(xerrors.ErrNotFound, "Task Not Found")
	ErrInvalidStatus   = xerrors.Mark(xerrors.ErrInvalidInput, "task_status must be one of Open, InProgress, Complete")
	ErrSubjectRequired = xerrors.Mark(xerrors.ErrInvalidInput, "task_subject is required")
	ErrIDRequired      = xerrors.Mark(xerrors.ErrInvalidInput, "id is required")
)

// UserChecker 校验被指派的员工是否存在，由 peer.Users 实现
type UserChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// Service 任务业务逻辑
type Service struct {
	repo   *Repository
	users  UserChecker
	now    func() time.Time
	logger clog.Logger
}

// Option 服务选项
type Option func(*Service)

// WithLogger 设置 logger
func WithLogger(logger clog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.WithNamespace("task")
		}
	}
}

// WithClock 替换当前时间来源
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService 创建任务服务，users 为 nil 时不校验员工
func NewService(repo *Repository, users UserChecker, opts ...Option) *Service {
	s := &Service{repo: repo, users: users, now: time.Now, logger: clog.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List 返回全部任务
func (s *Service) List(ctx context.Context) ([]Task, error) {
	return s.repo.List(ctx)
}

// Get 按 ID 查询
func (s *Service) Get(ctx context.Context, id uint) (*Task, error) {
	t, err := s.repo.Get(ctx, id)
	return t, notFound(err)
}

// Pending 员工未完成的任务
func (s *Service) Pending(ctx context.Context, username string) ([]Task, error) {
	return s.repo.ListByEmployee(ctx, username, false)
}

// Archive 员工已完成的任务
func (s *Service) Archive(ctx context.Context, username string) ([]Task, error) {
	return s.repo.ListByEmployee(ctx, username, true)
}

// Create 新建任务，状态为 Open，指派日期为当天
func (s *Service) Create(ctx context.Context, t *Task) (*Task, error) {
	if t.TaskSubject == "" {
		return nil, ErrSubjectRequired
	}
	if err := s.checkEmployee(ctx, t.AssignedEmployee); err != nil {
		return nil, err
	}
	t.ID = 0
	t.TaskStatus = StatusOpen
	t.AssignedDate = s.today()
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "task created",
		clog.Uint64("id", uint64(t.ID)),
		clog.String("project_code", t.ProjectCode),
		clog.String("assigned_employee", t.AssignedEmployee))
	return t, nil
}

// Update 修改任务内容，未提供状态时保留原状态，指派日期始终保留
func (s *Service) Update(ctx context.Context, in *Task) (*Task, error) {
	if in.ID == 0 {
		return nil, ErrIDRequired
	}
	if in.TaskStatus != "" && !in.TaskStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	t, err := s.repo.Update(ctx, in.ID, func(current *Task) error {
		if in.AssignedEmployee != "" && in.AssignedEmployee != current.AssignedEmployee {
			if err := s.checkEmployee(ctx, in.AssignedEmployee); err != nil {
				return err
			}
			current.AssignedEmployee = in.AssignedEmployee
		}
		current.TaskSubject = in.TaskSubject
		current.TaskDetail = in.TaskDetail
		if in.ProjectCode != "" {
			current.ProjectCode = in.ProjectCode
		}
		if in.TaskStatus != "" {
			current.TaskStatus = in.TaskStatus
		}
		return nil
	})
	return t, notFound(err)
}

// UpdateStatus 员工更新任务状态，其余字段不变
func (s *Service) UpdateStatus(ctx context.Context, id uint, status Status) (*Task, error) {
	if id == 0 {
		return nil, ErrIDRequired
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	t, err := s.repo.Update(ctx, id, func(current *Task) error {
		current.TaskStatus = status
		return nil
	})
	return t, notFound(err)
}

// Delete 软删除任务
func (s *Service) Delete(ctx context.Context, id uint) error {
	return notFound(s.repo.SoftDelete(ctx, id))
}

// Counts 项目下的任务完成情况
func (s *Service) Counts(ctx context.Context, projectCode string) (peer.TaskCounts, error) {
	return s.repo.CountByProject(ctx, projectCode)
}

// DeleteByProject 软删除项目下的全部任务
func (s *Service) DeleteByProject(ctx context.Context, projectCode string) error {
	n, err := s.repo.UpdateByProject(ctx, projectCode, map[string]any{"is_deleted": true})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "project tasks deleted", clog.String("project_code", projectCode), clog.Int64("tasks", n))
	return nil
}

// CompleteByProject 将项目下的全部任务标记为完成
func (s *Service) CompleteByProject(ctx context.Context, projectCode string) error {
	n, err := s.repo.UpdateByProject(ctx, projectCode, map[string]any{"task_status": StatusComplete})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "project tasks completed", clog.String("project_code", projectCode), clog.Int64("tasks", n))
	return nil
}

func (s *Service) checkEmployee(ctx context.Context, username string) error {
	if username == "" {
		return xerrors.Mark(xerrors.ErrInvalidInput, "assigned_employee is required")
	}
	if s.users == nil {
		return nil
	}
	ok, err := s.users.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Mark(xerrors.ErrNotFound, "Employee %s Not Found", username)
	}
	return nil
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func notFound(err error) error {
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
