package project

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/xerrors"
)

// 业务错误
var (
	ErrNotFound         = xerrors.Mark(xerrors.ErrNotFound, "Project Not Found")
	ErrAlreadyExists    = xerrors.Mark(xerrors.ErrConflict, "Project already exists")
	ErrCodeRequired     = xerrors.Mark(xerrors.ErrInvalidInput, "project_code is required")
	ErrInvalidStatus    = xerrors.Mark(xerrors.ErrInvalidInput, "project_status must be one of Open, InProgress, Complete")
	ErrInvalidDateRange = xerrors.Mark(xerrors.ErrInvalidInput, "end_date must not be before start_date")
)

// detailsConcurrency 查询任务统计时对 task-service 的并发上限
const detailsConcurrency = 4

// UserChecker 校验经理是否存在，由 peer.Users 实现
type UserChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// TaskGateway 项目级任务操作，由 peer.Tasks 实现
type TaskGateway interface {
	Counts(ctx context.Context, projectCode string) (peer.TaskCounts, error)
	DeleteByProject(ctx context.Context, projectCode string) error
	CompleteByProject(ctx context.Context, projectCode string) error
}

// Service 项目业务逻辑
type Service struct {
	repo   *Repository
	users  UserChecker
	tasks  TaskGateway
	logger clog.Logger
}

// NewService 创建项目服务
func NewService(repo *Repository, users UserChecker, tasks TaskGateway, logger clog.Logger) *Service {
	if logger == nil {
		logger = clog.Discard()
	}
	return &Service{repo: repo, users: users, tasks: tasks, logger: logger.WithNamespace("project")}
}

// List 返回全部项目
func (s *Service) List(ctx context.Context) ([]Project, error) {
	return s.repo.List(ctx)
}

// Get 按编码查询
func (s *Service) Get(ctx context.Context, code string) (*Project, error) {
	p, err := s.repo.FindByCode(ctx, code)
	return p, notFound(err)
}

// Create 新建项目，状态为 Open
func (s *Service) Create(ctx context.Context, p *Project) (*Project, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.checkManager(ctx, p.AssignedManager); err != nil {
		return nil, err
	}
	p.ID = 0
	p.ProjectStatus = StatusOpen
	if err := s.repo.Create(ctx, p); err != nil {
		if db.IsDuplicate(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "project created",
		clog.String("project_code", p.ProjectCode),
		clog.String("manager", p.AssignedManager))
	return p, nil
}

// Update 修改项目资料，状态保持不变
func (s *Service) Update(ctx context.Context, in *Project) (*Project, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	p, err := s.repo.Mutate(ctx, in.ProjectCode, func(ctx context.Context, p *Project) error {
		if in.AssignedManager != "" && in.AssignedManager != p.AssignedManager {
			if err := s.checkManager(ctx, in.AssignedManager); err != nil {
				return err
			}
			p.AssignedManager = in.AssignedManager
		}
		p.ProjectName = in.ProjectName
		p.ProjectDetail = in.ProjectDetail
		p.StartDate = in.StartDate
		p.EndDate = in.EndDate
		return nil
	})
	return p, notFound(err)
}

// Delete 软删除项目并删除其下的任务，task-service 失败时项目保持不变
func (s *Service) Delete(ctx context.Context, code string) error {
	_, err := s.repo.Mutate(ctx, code, func(ctx context.Context, p *Project) error {
		if err := s.tasks.DeleteByProject(ctx, code); err != nil {
			return err
		}
		p.IsDeleted = true
		p.ProjectCode = tombstone(p)
		return nil
	})
	if err != nil {
		return notFound(err)
	}
	s.logger.InfoContext(ctx, "project deleted", clog.String("project_code", code))
	return nil
}

// Complete 经理结项：项目置为 Complete，其下任务全部完成
func (s *Service) Complete(ctx context.Context, code string) error {
	_, err := s.repo.Mutate(ctx, code, func(ctx context.Context, p *Project) error {
		if err := s.tasks.CompleteByProject(ctx, code); err != nil {
			return err
		}
		p.ProjectStatus = StatusComplete
		return nil
	})
	if err != nil {
		return notFound(err)
	}
	s.logger.InfoContext(ctx, "project completed", clog.String("project_code", code))
	return nil
}

// Details 经理负责的项目及各自的任务完成情况
func (s *Service) Details(ctx context.Context, manager string) ([]Details, error) {
	if err := s.checkManager(ctx, manager); err != nil {
		return nil, err
	}
	projects, err := s.repo.ListByManager(ctx, manager)
	if err != nil {
		return nil, err
	}

	details := make([]Details, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailsConcurrency)
	for i, p := range projects {
		details[i].Project = p
		g.Go(func() error {
			counts, err := s.tasks.Counts(gctx, p.ProjectCode)
			if err != nil {
				return xerrors.Wrapf(err, "count tasks of %s", p.ProjectCode)
			}
			details[i].CompleteTaskCounts = counts.Completed
			details[i].UnfinishedTaskCounts = counts.NonCompleted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Service) checkManager(ctx context.Context, username string) error {
	if username == "" {
		return xerrors.Mark(xerrors.ErrInvalidInput, "assigned_manager is required")
	}
	ok, err := s.users.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Mark(xerrors.ErrNotFound, "Manager %s Not Found", username)
	}
	return nil
}

func validate(p *Project) error {
	if p.ProjectCode == "" {
		return ErrCodeRequired
	}
	if p.ProjectStatus != "" && !p.ProjectStatus.Valid() {
		return ErrInvalidStatus
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func notFound(err error) error {
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
