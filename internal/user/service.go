package user

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/xerrors"
)

// 业务错误，消息直接作为响应的 message
var (
	ErrNotFound         = xerrors.Mark(xerrors.ErrForbidden, "User Not Found")
	ErrAlreadyExists    = xerrors.Mark(xerrors.ErrConflict, "User already exists")
	ErrDoesNotExist     = xerrors.Mark(xerrors.ErrNotFound, "User Does Not Exists")
	ErrUserNameRequired = xerrors.Mark(xerrors.ErrInvalidInput, "user_name is required")
	ErrPasswordMismatch = xerrors.Mark(xerrors.ErrInvalidInput, "pass_word and confirm_pass_word do not match")
	ErrInvalidRole      = xerrors.Mark(xerrors.ErrInvalidInput, "role must be one of Admin, Manager, Employee")
)

// Service 用户业务逻辑
type Service struct {
	repo   *Repository
	cost   int
	logger clog.Logger
}

// Option 服务选项
type Option func(*Service)

// WithLogger 设置 logger
func WithLogger(logger clog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.WithNamespace("user")
		}
	}
}

// WithHashCost 设置 bcrypt 代价，测试中可调低
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// NewService 创建用户服务
func NewService(repo *Repository, opts ...Option) *Service {
	s := &Service{repo: repo, cost: bcrypt.DefaultCost, logger: clog.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List 返回全部用户
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].redact()
	}
	return users, nil
}

// Get 按用户名查询，不存在时返回 ErrNotFound (403)
func (s *Service) Get(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.FindByUserName(ctx, username)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u.redact(), nil
}

// Exists 供其他服务校验用户
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	return s.repo.Exists(ctx, username)
}

// Create 注册新用户，新用户默认启用，角色缺省为 Employee
func (s *Service) Create(ctx context.Context, u *User) (*User, error) {
	if err := s.prepare(u, true); err != nil {
		return nil, err
	}
	u.ID = 0
	u.Enabled = true
	if u.Role == "" {
		u.Role = RoleEmployee
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if db.IsDuplicate(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created", clog.String("user_name", u.UserName), clog.String("role", string(u.Role)))
	return u.redact(), nil
}

// Update 更新资料并重新启用账户
func (s *Service) Update(ctx context.Context, u *User) (*User, error) {
	if err := s.prepare(u, false); err != nil {
		return nil, err
	}
	u.Enabled = true

	if err := s.repo.Update(ctx, u); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrDoesNotExist
		}
		return nil, err
	}
	return u.redact(), nil
}

// Delete 软删除用户
func (s *Service) Delete(ctx context.Context, username string) error {
	if err := s.repo.SoftDelete(ctx, username); err != nil {
		if db.IsNotFound(err) {
			return ErrDoesNotExist
		}
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", clog.String("user_name", username))
	return nil
}

// prepare 校验输入并对密码做哈希，create 为 true 时密码必填
func (s *Service) prepare(u *User, create bool) error {
	if u.UserName == "" {
		return ErrUserNameRequired
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	if u.ConfirmPassWord != "" && u.ConfirmPassWord != u.PassWord {
		return ErrPasswordMismatch
	}
	if u.PassWord == "" {
		if create {
			return xerrors.Mark(xerrors.ErrInvalidInput, "pass_word is required")
		}
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.PassWord), s.cost)
	if err != nil {
		return xerrors.Mark(xerrors.ErrInvalidInput, "invalid pass_word: %v", err)
	}
	u.PassWord = string(hash)
	u.ConfirmPassWord = ""
	return nil
}
