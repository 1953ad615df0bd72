package task

import (
	"context"

	"gorm.io/gorm"

	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/xerrors"
)

// Repository 任务表的读写，查询均排除已删除记录
type Repository struct {
	db db.DB
}

// NewRepository 创建任务仓储
func NewRepository(database db.DB) *Repository {
	return &Repository{db: database}
}

func live(tx *gorm.DB) *gorm.DB {
	return tx.Where("is_deleted = ?", false)
}

// List 返回全部任务
func (r *Repository) List(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := live(r.db.DB(ctx)).Order("id").Find(&tasks).Error; err != nil {
		return nil, xerrors.Wrap(err, "task: list")
	}
	return tasks, nil
}

// Get 不存在时返回包装后的 gorm.ErrRecordNotFound
func (r *Repository) Get(ctx context.Context, id uint) (*Task, error) {
	return get(live(r.db.DB(ctx)), id)
}

func get(tx *gorm.DB, id uint) (*Task, error) {
	var t Task
	if err := tx.First(&t, id).Error; err != nil {
		return nil, xerrors.Wrapf(err, "task: get %d", id)
	}
	return &t, nil
}

// ListByEmployee 返回员工的任务，complete 为 true 时只返回已完成的，否则只返回未完成的
func (r *Repository) ListByEmployee(ctx context.Context, username string, complete bool) ([]Task, error) {
	q := live(r.db.DB(ctx)).Where("assigned_employee = ?", username)
	if complete {
		q = q.Where("task_status = ?", StatusComplete)
	} else {
		q = q.Where("task_status <> ?", StatusComplete)
	}
	var tasks []Task
	if err := q.Order("assigned_date").Find(&tasks).Error; err != nil {
		return nil, xerrors.Wrapf(err, "task: list by employee %s", username)
	}
	return tasks, nil
}

// Create 插入任务
func (r *Repository) Create(ctx context.Context, t *Task) error {
	if err := r.db.DB(ctx).Create(t).Error; err != nil {
		return xerrors.Wrap(err, "task: create")
	}
	return nil
}

// Update 在事务内读取当前记录，交给 mutate 修改后写回
func (r *Repository) Update(ctx context.Context, id uint, mutate func(current *Task) error) (*Task, error) {
	var out *Task
	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		current, err := get(live(tx), id)
		if err != nil {
			return err
		}
		if err := mutate(current); err != nil {
			return err
		}
		if err := tx.Save(current).Error; err != nil {
			return xerrors.Wrapf(err, "task: update %d", id)
		}
		out = current
		return nil
	})
	return out, err
}

// SoftDelete 软删除单个任务
func (r *Repository) SoftDelete(ctx context.Context, id uint) error {
	res := live(r.db.DB(ctx)).Model(&Task{}).Where("id = ?", id).Update("is_deleted", true)
	if res.Error != nil {
		return xerrors.Wrapf(res.Error, "task: delete %d", id)
	}
	if res.RowsAffected == 0 {
		return xerrors.Wrapf(gorm.ErrRecordNotFound, "task: delete %d", id)
	}
	return nil
}

// CountByProject 统计项目下已完成与未完成的任务
func (r *Repository) CountByProject(ctx context.Context, code string) (peer.TaskCounts, error) {
	var counts peer.TaskCounts
	base := func() *gorm.DB {
		return live(r.db.DB(ctx)).Model(&Task{}).Where("project_code = ?", code)
	}
	if err := base().Where("task_status = ?", StatusComplete).Count(&counts.Completed).Error; err != nil {
		return counts, xerrors.Wrapf(err, "task: count project %s", code)
	}
	if err := base().Where("task_status <> ?", StatusComplete).Count(&counts.NonCompleted).Error; err != nil {
		return counts, xerrors.Wrapf(err, "task: count project %s", code)
	}
	return counts, nil
}

// UpdateByProject 批量修改项目下未删除的任务，返回受影响行数
func (r *Repository) UpdateByProject(ctx context.Context, code string, values map[string]any) (int64, error) {
	res := live(r.db.DB(ctx)).Model(&Task{}).Where("project_code = ?", code).Updates(values)
	if res.Error != nil {
		return 0, xerrors.Wrapf(res.Error, "task: update project %s", code)
	}
	return res.RowsAffected, nil
}
