package task

import "time"

// Status 任务状态
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "InProgress"
	StatusComplete   Status = "Complete"
)

// Valid 判断状态是否合法
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// Task 任务表，删除为软删除
type Task struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TaskSubject      string    `gorm:"size:255" json:"task_subject"`
	TaskDetail       string    `gorm:"type:text" json:"task_detail"`
	TaskStatus       Status    `gorm:"size:16;index" json:"task_status"`
	AssignedDate     time.Time `json:"assigned_date"`
	ProjectCode      string    `gorm:"size:64;index" json:"project_code"`
	AssignedEmployee string    `gorm:"size:128;index" json:"assigned_employee"`
	IsDeleted        bool      `gorm:"index" json:"-"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// TableName 表名
func (Task) TableName() string {
	return "tasks"
}
