package user

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/xerrors"
)

// Repository 用户表的读写，查询均排除已删除记录
type Repository struct {
	db db.DB
}

// NewRepository 创建用户仓储
func NewRepository(database db.DB) *Repository {
	return &Repository{db: database}
}

func live(tx *gorm.DB) *gorm.DB {
	return tx.Where("is_deleted = ?", false)
}

// List 按名字排序返回全部用户
func (r *Repository) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := live(r.db.DB(ctx)).Order("first_name").Find(&users).Error; err != nil {
		return nil, xerrors.Wrap(err, "user: list")
	}
	return users, nil
}

// FindByUserName 返回 gorm.ErrRecordNotFound 包装后的错误表示不存在
func (r *Repository) FindByUserName(ctx context.Context, username string) (*User, error) {
	return findByUserName(live(r.db.DB(ctx)), username)
}

func findByUserName(tx *gorm.DB, username string) (*User, error) {
	var u User
	if err := tx.Where("user_name = ?", username).First(&u).Error; err != nil {
		return nil, xerrors.Wrapf(err, "user: find %s", username)
	}
	return &u, nil
}

// Exists 判断未删除的用户是否存在
func (r *Repository) Exists(ctx context.Context, username string) (bool, error) {
	var n int64
	if err := live(r.db.DB(ctx)).Model(&User{}).Where("user_name = ?", username).Count(&n).Error; err != nil {
		return false, xerrors.Wrapf(err, "user: check %s", username)
	}
	return n > 0, nil
}

// Create 插入用户，唯一键冲突返回 gorm.ErrDuplicatedKey
func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := r.db.DB(ctx).Create(u).Error; err != nil {
		return xerrors.Wrapf(err, "user: create %s", u.UserName)
	}
	return nil
}

// Update 按用户名覆盖资料，密码为空时保留原密码
func (r *Repository) Update(ctx context.Context, u *User) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := findByUserName(live(tx), u.UserName)
		if err != nil {
			return err
		}
		u.ID = current.ID
		fields := []string{"first_name", "last_name", "enabled", "phone", "role", "gender"}
		if u.PassWord != "" {
			fields = append(fields, "pass_word")
		}
		return tx.Model(current).Select(fields).Updates(u).Error
	})
}

// SoftDelete 软删除并释放用户名
func (r *Repository) SoftDelete(ctx context.Context, username string) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		u, err := findByUserName(live(tx), username)
		if err != nil {
			return err
		}
		return tx.Model(u).Updates(map[string]any{
			"is_deleted": true,
			"user_name":  u.UserName + "-" + strconv.FormatUint(uint64(u.ID), 10),
		}).Error
	})
}
