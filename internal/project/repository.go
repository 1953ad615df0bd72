package project

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/xerrors"
)

// Repository 项目表的读写，查询均排除已删除记录
type Repository struct {
	db db.DB
}

// NewRepository 创建项目仓储
func NewRepository(database db.DB) *Repository {
	return &Repository{db: database}
}

func live(tx *gorm.DB) *gorm.DB {
	return tx.Where("is_deleted = ?", false)
}

// List 按编码排序返回全部项目
func (r *Repository) List(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := live(r.db.DB(ctx)).Order("project_code").Find(&projects).Error; err != nil {
		return nil, xerrors.Wrap(err, "project: list")
	}
	return projects, nil
}

// ListByManager 返回经理负责的项目
func (r *Repository) ListByManager(ctx context.Context, manager string) ([]Project, error) {
	var projects []Project
	if err := live(r.db.DB(ctx)).Where("assigned_manager = ?", manager).Order("project_code").Find(&projects).Error; err != nil {
		return nil, xerrors.Wrapf(err, "project: list by manager %s", manager)
	}
	return projects, nil
}

// FindByCode 不存在时返回包装后的 gorm.ErrRecordNotFound
func (r *Repository) FindByCode(ctx context.Context, code string) (*Project, error) {
	return findByCode(live(r.db.DB(ctx)), code)
}

func findByCode(tx *gorm.DB, code string) (*Project, error) {
	var p Project
	if err := tx.Where("project_code = ?", code).First(&p).Error; err != nil {
		return nil, xerrors.Wrapf(err, "project: find %s", code)
	}
	return &p, nil
}

// Create 插入项目，编码冲突返回 gorm.ErrDuplicatedKey
func (r *Repository) Create(ctx context.Context, p *Project) error {
	if err := r.db.DB(ctx).Create(p).Error; err != nil {
		return xerrors.Wrapf(err, "project: create %s", p.ProjectCode)
	}
	return nil
}

// Mutate 在事务内读取项目并交给 fn 修改后写回
//
// fn 返回错误时事务回滚，可在 fn 中调用其他服务使两边的变更同进同退。
func (r *Repository) Mutate(ctx context.Context, code string, fn func(ctx context.Context, p *Project) error) (*Project, error) {
	var out *Project
	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		p, err := findByCode(live(tx), code)
		if err != nil {
			return err
		}
		if err := fn(ctx, p); err != nil {
			return err
		}
		if err := tx.Save(p).Error; err != nil {
			return xerrors.Wrapf(err, "project: save %s", code)
		}
		out = p
		return nil
	})
	return out, err
}

// tombstone 软删除后的编码
func tombstone(p *Project) string {
	return p.ProjectCode + "-" + strconv.FormatUint(uint64(p.ID), 10)
}
